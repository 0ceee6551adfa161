package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/storage/postgres"
)

// Store persists roles. Lookups of unknown ids return an apperrors NotFound
// error; name uniqueness violations return Conflict.
type Store interface {
	Create(ctx context.Context, role *Role) error
	Get(ctx context.Context, id string) (*Role, error)
	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
}

// ErrRoleNameTaken is returned when a role name collides case-insensitively.
var ErrRoleNameTaken = apperrors.NewConflict("role name already exists")

// ErrRoleInUse is returned when deleting a role still assigned to users.
var ErrRoleInUse = apperrors.NewConflict("role is assigned to users")

const roleColumns = `id, name, description, permissions, active, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a role store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a role
func (s *PostgresStore) Create(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		INSERT INTO roles (` + roleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		string(permissionsJSON),
		role.Active,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, "roles_name_lower_key") {
		return ErrRoleNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// Get retrieves a role by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*Role, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("role")
	}

	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByName retrieves a role by name, ignoring case
func (s *PostgresStore) GetByName(ctx context.Context, name string) (*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE LOWER(name) = LOWER($1)`
	return s.getOne(ctx, query, name)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, arg interface{}) (*Role, error) {
	role, err := scanRole(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// List returns every role ordered by name
func (s *PostgresStore) List(ctx context.Context) ([]*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles ORDER BY LOWER(name)`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []*Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}
	return roles, nil
}

// Update overwrites the mutable fields of a role
func (s *PostgresStore) Update(ctx context.Context, role *Role) error {
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	query := `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		string(permissionsJSON),
		role.Active,
		role.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err, "roles_name_lower_key") {
		return ErrRoleNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return requireAffected(result, "role")
}

// Delete removes a role. The users foreign key rejects deleting a role in use.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("role")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if postgres.IsForeignKeyViolation(err, "") {
		return ErrRoleInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return requireAffected(result, "role")
}

func requireAffected(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound(entity)
	}
	return nil
}

// JoinedRole receives role columns selected through a LEFT JOIN, where
// every column may be NULL. Other stores use it to populate a user's role.
type JoinedRole struct {
	ID          sql.NullString
	Name        sql.NullString
	Description sql.NullString
	Permissions []byte
	Active      sql.NullBool
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

// Dest returns scan destinations in roleColumns order.
func (j *JoinedRole) Dest() []interface{} {
	return []interface{}{
		&j.ID,
		&j.Name,
		&j.Description,
		&j.Permissions,
		&j.Active,
		&j.CreatedAt,
		&j.UpdatedAt,
	}
}

// Role converts the scanned columns, returning nil when the join matched nothing.
func (j *JoinedRole) Role() (*Role, error) {
	if !j.ID.Valid {
		return nil, nil
	}
	role := &Role{
		ID:          j.ID.String,
		Name:        j.Name.String,
		Description: j.Description.String,
		Active:      j.Active.Bool,
		CreatedAt:   j.CreatedAt.Time,
		UpdatedAt:   j.UpdatedAt.Time,
	}
	if len(j.Permissions) > 0 {
		if err := json.Unmarshal(j.Permissions, &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}
	return role, nil
}

// RoleColumns lists the role columns with a table alias prefix, in the
// order JoinedRole.Dest expects.
func RoleColumns(alias string) string {
	return alias + ".id, " + alias + ".name, " + alias + ".description, " + alias + ".permissions, " +
		alias + ".active, " + alias + ".created_at, " + alias + ".updated_at"
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRole(row scanner) (*Role, error) {
	var role Role
	var permissionsJSON []byte

	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&permissionsJSON,
		&role.Active,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(permissionsJSON, &role.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}
	return &role, nil
}
