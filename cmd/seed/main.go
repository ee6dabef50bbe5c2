package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-auth-portal/config"
	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, time.Minute)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	password := cfg.SeedAdminPassword
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	}

	u, err := seedAdmin(ctx, pginfra.NewUserRepository(pool), helpers.Bcrypt{}, cfg.SeedAdminEmail, cfg.SeedAdminName, password)
	if errors.Is(err, repository.ErrDuplicate) {
		fmt.Printf("admin %s already exists; nothing to do\n", cfg.SeedAdminEmail)
		return
	}
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%d email=%s\n", u.ID, u.Email)
	if generated {
		fmt.Printf("generated password: %s\n", password)
	}
}

// seedAdmin creates an admin account that has already accepted the terms.
func seedAdmin(ctx context.Context, users repository.UserRepository, hasher application.PasswordHasher, email, name, password string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("admin email is required")
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Recovery:     uuid.NewString(),
		Role:         entity.RoleAdmin,
		Timezone:     entity.DefaultTimezone,
	}
	if err := users.Insert(ctx, u); err != nil {
		return nil, err
	}
	accepted := true
	if err := users.Update(ctx, u.ID, repository.UserPatch{TermsAccepted: &accepted}); err != nil {
		return nil, fmt.Errorf("accept terms: %w", err)
	}
	u.TermsAccepted = true
	return u, nil
}
