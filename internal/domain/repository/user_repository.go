package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// UserPatch lists the fields to overwrite; nil fields are left untouched.
// An empty TOTPSecret clears the stored secret.
type UserPatch struct {
	PasswordHash  *string
	TOTPSecret    *string
	TOTPEnabled   *bool
	TermsAccepted *bool
	LastSeen      *time.Time
}

func (p UserPatch) Empty() bool {
	return p.PasswordHash == nil && p.TOTPSecret == nil && p.TOTPEnabled == nil &&
		p.TermsAccepted == nil && p.LastSeen == nil
}

// UserRepository defines the credential store operations.
// Insert returns ErrDuplicate when the email is already taken.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	Insert(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, id int64, patch UserPatch) error
}
