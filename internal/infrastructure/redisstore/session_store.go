// Package redisstore keeps sessions in Redis as JSON values with a sliding
// idle expiry.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

type SessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewSessionStore returns a store whose entries expire after ttl without a Save.
func NewSessionStore(rdb redis.Cmdable, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		return nil, repository.ErrNotFound
	}
	var sess entity.Session
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, helpers.KeySession(id), &sess)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	sess.ID = id
	return &sess, nil
}

// Save writes the session and restarts its idle timer.
func (s *SessionStore) Save(ctx context.Context, sess *entity.Session) error {
	if err := helpers.RedisSetJSON(ctx, s.rdb, helpers.KeySession(sess.ID), sess, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return helpers.RedisDel(ctx, s.rdb, helpers.KeySession(id))
}

var _ repository.SessionRepository = (*SessionStore)(nil)
