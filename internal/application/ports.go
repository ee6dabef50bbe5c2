package application

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

// PasswordHasher is a one-way salted hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// OTPKey is a TOTP secret with its provisioning URI and a scannable QR
// encoding of that URI (PNG data URI).
type OTPKey struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"qr"`
}

// OTPProvider generates and verifies base32 TOTP secrets.
type OTPProvider interface {
	Generate(account string) (OTPKey, error)
	Key(secret, account string) (OTPKey, error)
	Validate(code, secret string) bool
}

// EventPublisher receives auth events. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev entity.AuthEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entity.AuthEvent) error { return nil }
