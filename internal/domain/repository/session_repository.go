package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

// SessionRepository persists sessions with a fixed idle expiry.
// Get returns ErrNotFound for unknown or expired ids.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*entity.Session, error)
	Save(ctx context.Context, s *entity.Session) error
	Delete(ctx context.Context, id string) error
}
