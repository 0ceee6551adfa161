package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/grinplace/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id UUID PRIMARY KEY,
					name VARCHAR(50) NOT NULL,
					description VARCHAR(200) NOT NULL DEFAULT '',
					permissions JSONB NOT NULL DEFAULT '[]',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS roles_name_lower_key ON roles (LOWER(name));
			`,
		},
		{
			Version:     2,
			Description: "Create businesses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS businesses (
					id UUID PRIMARY KEY,
					name VARCHAR(100) NOT NULL,
					description VARCHAR(500) NOT NULL DEFAULT '',
					logo TEXT NOT NULL DEFAULT '',
					address JSONB NOT NULL DEFAULT '{}',
					contact JSONB NOT NULL DEFAULT '{}',
					services JSONB NOT NULL DEFAULT '[]',
					schedule JSONB NOT NULL DEFAULT '{}',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					owner_id UUID,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_businesses_owner_id ON businesses (owner_id);
			`,
		},
		{
			Version:     3,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL,
					password_hash TEXT NOT NULL,
					name VARCHAR(255) NOT NULL,
					role_id UUID NOT NULL CONSTRAINT users_role_id_fkey REFERENCES roles(id) ON DELETE RESTRICT,
					business_id UUID CONSTRAINT users_business_id_fkey REFERENCES businesses(id) ON DELETE SET NULL,
					photo TEXT NOT NULL DEFAULT '',
					settings JSONB NOT NULL DEFAULT '{}',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					last_login TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (LOWER(email));
				CREATE INDEX IF NOT EXISTS idx_users_role_id ON users (role_id);
				CREATE INDEX IF NOT EXISTS idx_users_business_id ON users (business_id);
			`,
		},
		{
			Version:     4,
			Description: "Link business owners to users",
			SQL: `
				ALTER TABLE businesses
					ADD CONSTRAINT businesses_owner_id_fkey
					FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL;
			`,
		},
	}
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		if logger != nil {
			logger.WithField("version", migration.Version).Infof("Running migration: %s", migration.Description)
		}

		if err := applyMigration(ctx, db, migration); err != nil {
			return err
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	return versions, nil
}

func applyMigration(ctx context.Context, db *sql.DB, migration Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
		migration.Version, migration.Description,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}
