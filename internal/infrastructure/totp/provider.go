// Package totp issues and checks RFC 6238 codes for authenticator apps.
package totp

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
)

const (
	period = 30
	skew   = 1
	qrSize = 256
)

// Provider generates SHA1 six-digit secrets labelled with Issuer.
type Provider struct {
	Issuer string
	Now    func() time.Time
}

func NewProvider(issuer string) *Provider {
	return &Provider{Issuer: issuer, Now: time.Now}
}

func (p *Provider) Generate(account string) (application.OTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: account,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return application.OTPKey{}, fmt.Errorf("generate totp key: %w", err)
	}
	return p.withQR(key.Secret(), p.uri(key.Secret(), account))
}

// Key rebuilds provisioning data for an existing secret.
func (p *Provider) Key(secret, account string) (application.OTPKey, error) {
	return p.withQR(secret, p.uri(secret, account))
}

func (p *Provider) Validate(code, secret string) bool {
	if secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, p.now(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (p *Provider) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Provider) uri(secret, account string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", p.Issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("digits", "6")
	v.Set("algorithm", "SHA1")
	return "otpauth://totp/" + url.PathEscape(p.Issuer+":"+account) + "?" + v.Encode()
}

func (p *Provider) withQR(secret, uri string) (application.OTPKey, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrSize)
	if err != nil {
		return application.OTPKey{}, fmt.Errorf("encode qr: %w", err)
	}
	return application.OTPKey{
		Secret: secret,
		URI:    uri,
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

var _ application.OTPProvider = (*Provider)(nil)
