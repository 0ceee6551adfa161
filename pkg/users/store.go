package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/storage/postgres"
)

// FindOptions controls what a query loads alongside the user.
type FindOptions struct {
	// IncludeRole resolves User.Role in the same query.
	IncludeRole bool
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	// RoleName matches the role name case-insensitively.
	RoleName   string
	BusinessID string
}

// Store persists users. Unknown ids return an apperrors NotFound error and
// email collisions return ErrEmailTaken.
type Store interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string, opts FindOptions) (*User, error)
	// GetByEmail matches the normalized address.
	GetByEmail(ctx context.Context, email string, opts FindOptions) (*User, error)
	List(ctx context.Context, filter ListFilter, opts FindOptions) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, roleID string) (int, error)
	CountActiveByRole(ctx context.Context, roleID string) (int, error)
	CountActive(ctx context.Context) (int, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// ErrEmailTaken is returned when an email is already registered.
var ErrEmailTaken = apperrors.NewConflict("email already registered")

var (
	errUnknownRole     = apperrors.NewFieldValidation("roleId", "role does not exist")
	errUnknownBusiness = apperrors.NewFieldValidation("businessId", "business does not exist")
)

const userColumns = `u.id, u.email, u.password_hash, u.name, u.role_id, u.business_id, u.photo,
	u.settings, u.active, u.last_login, u.created_at, u.updated_at`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a user store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func selectUsers(opts FindOptions, joinRoles bool) string {
	columns := userColumns
	if opts.IncludeRole {
		columns += ", " + rbac.RoleColumns("r")
	}
	query := `SELECT ` + columns + ` FROM users u`
	if opts.IncludeRole || joinRoles {
		query += ` LEFT JOIN roles r ON r.id = u.role_id`
	}
	return query
}

// Create inserts a user
func (s *PostgresStore) Create(ctx context.Context, user *User) error {
	settingsJSON, err := json.Marshal(user.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role_id, business_id, photo,
			settings, active, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.RoleID,
		nullString(user.BusinessID),
		user.Photo,
		string(settingsJSON),
		user.Active,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return writeError("create", err)
	}
	return nil
}

// Get retrieves a user by ID
func (s *PostgresStore) Get(ctx context.Context, id string, opts FindOptions) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("user")
	}
	query := selectUsers(opts, false) + ` WHERE u.id = $1`
	return s.getOne(ctx, query, id, opts)
}

// GetByEmail retrieves a user by normalized email
func (s *PostgresStore) GetByEmail(ctx context.Context, email string, opts FindOptions) (*User, error) {
	query := selectUsers(opts, false) + ` WHERE LOWER(u.email) = $1`
	return s.getOne(ctx, query, NormalizeEmail(email), opts)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg interface{}, opts FindOptions) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg), opts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns users matching filter ordered by name
func (s *PostgresStore) List(ctx context.Context, filter ListFilter, opts FindOptions) ([]*User, error) {
	var conditions []string
	var args []interface{}

	if filter.RoleName != "" {
		args = append(args, filter.RoleName)
		conditions = append(conditions, fmt.Sprintf("LOWER(r.name) = LOWER($%d)", len(args)))
	}
	if filter.BusinessID != "" {
		if _, err := uuid.Parse(filter.BusinessID); err != nil {
			return []*User{}, nil
		}
		args = append(args, filter.BusinessID)
		conditions = append(conditions, fmt.Sprintf("u.business_id = $%d", len(args)))
	}

	query := selectUsers(opts, filter.RoleName != "")
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY u.name, u.email`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		user, err := scanUser(rows, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Update overwrites the mutable fields of a user
func (s *PostgresStore) Update(ctx context.Context, user *User) error {
	settingsJSON, err := json.Marshal(user.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, role_id = $5, business_id = $6,
			photo = $7, settings = $8, active = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.RoleID,
		nullString(user.BusinessID),
		user.Photo,
		string(settingsJSON),
		user.Active,
		user.UpdatedAt,
	)
	if err != nil {
		return writeError("update", err)
	}
	return requireAffected(result)
}

// Delete removes a user
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("user")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result)
}

// CountByRole counts users assigned to roleID
func (s *PostgresStore) CountByRole(ctx context.Context, roleID string) (int, error) {
	if _, err := uuid.Parse(roleID); err != nil {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by role: %w", err)
	}
	return count, nil
}

// CountActiveByRole counts active users assigned to roleID
func (s *PostgresStore) CountActiveByRole(ctx context.Context, roleID string) (int, error) {
	if _, err := uuid.Parse(roleID); err != nil {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1 AND active`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users by role: %w", err)
	}
	return count, nil
}

// CountActive counts active users
func (s *PostgresStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

// TouchLastLogin records a successful login
func (s *PostgresStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return requireAffected(result)
}

// writeError maps constraint violations to domain errors
func writeError(op string, err error) error {
	switch {
	case postgres.IsUniqueViolation(err, "users_email_lower_key"):
		return ErrEmailTaken
	case postgres.IsForeignKeyViolation(err, "users_role_id_fkey"):
		return errUnknownRole
	case postgres.IsForeignKeyViolation(err, "users_business_id_fkey"):
		return errUnknownBusiness
	default:
		return fmt.Errorf("failed to %s user: %w", op, err)
	}
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("user")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner, opts FindOptions) (*User, error) {
	var user User
	var businessID sql.NullString
	var settingsJSON []byte
	var lastLogin sql.NullTime
	var joined rbac.JoinedRole

	dest := []interface{}{
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.RoleID,
		&businessID,
		&user.Photo,
		&settingsJSON,
		&user.Active,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if opts.IncludeRole {
		dest = append(dest, joined.Dest()...)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	user.BusinessID = businessID.String
	if lastLogin.Valid {
		at := lastLogin.Time
		user.LastLogin = &at
	}

	user.Settings = DefaultSettings()
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &user.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
		if user.Settings.Interface == nil {
			user.Settings.Interface = map[string]string{}
		}
	}

	if opts.IncludeRole {
		role, err := joined.Role()
		if err != nil {
			return nil, err
		}
		user.Role = role
	}

	return &user, nil
}
