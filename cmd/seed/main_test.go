package main

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/postgres"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Compare(h, p string) bool      { return h == "hashed:"+p }

func TestSeedAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("admin@example.com", "hashed:secret", "Admin", pgxmock.AnyArg(), entity.RoleAdmin, entity.DefaultTimezone).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET terms_accepted = $1 WHERE id = $2`)).
		WithArgs(true, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	u, err := seedAdmin(context.Background(), pginfra.NewUserRepository(mock), plainHasher{}, " Admin@Example.com ", "Admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, u.Role)
	assert.True(t, u.TermsAccepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin_Existing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("admin@example.com", "hashed:secret", "Admin", pgxmock.AnyArg(), entity.RoleAdmin, entity.DefaultTimezone).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = seedAdmin(context.Background(), pginfra.NewUserRepository(mock), plainHasher{}, "admin@example.com", "Admin", "secret")
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
