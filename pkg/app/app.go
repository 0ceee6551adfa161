// Package app wires configuration into stores and services. The server and
// the seed loader build their dependencies through it.
package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/platinummonkey/grinplace/pkg/auth"
	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/config"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/storage"
	"github.com/platinummonkey/grinplace/pkg/storage/memory"
	"github.com/platinummonkey/grinplace/pkg/storage/postgres"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// Stores groups the persistence backends selected by configuration
type Stores struct {
	Roles      rbac.Store
	Users      users.Store
	Businesses businesses.Store
	// DB is nil in memory mode.
	DB   *sql.DB
	conn *postgres.ConnectionManager
}

// OpenStores connects to PostgreSQL and applies pending migrations, or
// builds an in-memory store when the memory driver is configured.
func OpenStores(ctx context.Context, cfg storage.Config, logger *observability.Logger) (*Stores, error) {
	if cfg.Driver != "postgres" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		db := memory.New()
		return &Stores{Roles: db.Roles(), Users: db.Users(), Businesses: db.Businesses()}, nil
	}

	conn, err := postgres.NewConnectionManager(postgres.ConnectionConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := postgres.RunMigrations(ctx, conn.DB(), logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := conn.DB()
	return &Stores{
		Roles:      rbac.NewPostgresStore(db),
		Users:      users.NewPostgresStore(db),
		Businesses: businesses.NewPostgresStore(db),
		DB:         db,
		conn:       conn,
	}, nil
}

// Close releases the database pool, if any
func (s *Stores) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// OpenObjectStore builds the configured object store
func OpenObjectStore(ctx context.Context, cfg storage.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectBackend {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	default:
		return storage.NewFilesystemStore(cfg.FilesystemRoot, cfg.FilesystemBaseURL)
	}
}

// Services are the domain services built on top of Stores
type Services struct {
	Tokens     *auth.TokenCodec
	Hasher     *auth.PasswordHasher
	Users      *users.Service
	Roles      *rbac.Service
	Businesses *businesses.Service
}

// NewServices builds the domain services. Without a configured JWT secret a
// random one is generated, which only the development environment permits.
func NewServices(cfg *config.Config, stores *Stores, objects storage.ObjectStore, metrics *observability.Metrics, logger *observability.Logger) (*Services, error) {
	secret := cfg.Auth.JWTSecret
	if cfg.DevelopmentSecret() {
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Warn("No JWT secret configured; using a random secret, tokens will not survive a restart")
	}

	tokens, err := auth.NewTokenCodec(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.HashWorkers, metrics)

	return &Services{
		Tokens: tokens,
		Hasher: hasher,
		Users: users.NewService(stores.Users, stores.Roles, hasher, tokens, objects, users.ServiceConfig{
			AdminRoleName: cfg.Auth.AdminRoleName,
			Metrics:       metrics,
		}),
		Roles:      rbac.NewService(stores.Roles, stores.Users),
		Businesses: businesses.NewService(stores.Businesses, objects, metrics),
	}, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
