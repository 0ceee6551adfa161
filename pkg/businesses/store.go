package businesses

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

// Store persists businesses. Unknown ids return an apperrors NotFound error.
type Store interface {
	Create(ctx context.Context, business *Business) error
	Get(ctx context.Context, id string) (*Business, error)
	List(ctx context.Context) ([]*Business, error)
	Update(ctx context.Context, business *Business) error
	// Delete removes the business and detaches its users.
	Delete(ctx context.Context, id string) error
}

var errUnknownOwner = apperrors.NewFieldValidation("ownerId", "owner does not exist")

const businessColumns = `id, name, description, logo, address, contact, services, schedule,
	active, owner_id, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a business store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type documents struct {
	address, contact, services, schedule []byte
}

func marshalDocuments(b *Business) (documents, error) {
	var docs documents
	var err error
	if docs.address, err = json.Marshal(b.Address); err != nil {
		return docs, fmt.Errorf("failed to marshal address: %w", err)
	}
	if docs.contact, err = json.Marshal(b.Contact); err != nil {
		return docs, fmt.Errorf("failed to marshal contact: %w", err)
	}
	services := b.Services
	if services == nil {
		services = []ServiceTag{}
	}
	if docs.services, err = json.Marshal(services); err != nil {
		return docs, fmt.Errorf("failed to marshal services: %w", err)
	}
	if docs.schedule, err = json.Marshal(b.Schedule); err != nil {
		return docs, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return docs, nil
}

// Create inserts a business
func (s *PostgresStore) Create(ctx context.Context, b *Business) error {
	docs, err := marshalDocuments(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		b.ID,
		b.Name,
		b.Description,
		b.Logo,
		string(docs.address),
		string(docs.contact),
		string(docs.services),
		string(docs.schedule),
		b.Active,
		nullString(b.OwnerID),
		b.CreatedAt,
		b.UpdatedAt,
	)
	if postgres.IsForeignKeyViolation(err, "businesses_owner_id_fkey") {
		return errUnknownOwner
	}
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

// Get retrieves a business by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*Business, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("business")
	}

	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`
	b, err := scanBusiness(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("business")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return b, nil
}

// List returns every business ordered by name
func (s *PostgresStore) List(ctx context.Context) ([]*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	list := []*Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate businesses: %w", err)
	}
	return list, nil
}

// Update overwrites the mutable fields of a business
func (s *PostgresStore) Update(ctx context.Context, b *Business) error {
	docs, err := marshalDocuments(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE businesses
		SET name = $2, description = $3, logo = $4, address = $5, contact = $6,
			services = $7, schedule = $8, active = $9, owner_id = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		b.ID,
		b.Name,
		b.Description,
		b.Logo,
		string(docs.address),
		string(docs.contact),
		string(docs.services),
		string(docs.schedule),
		b.Active,
		nullString(b.OwnerID),
		b.UpdatedAt,
	)
	if postgres.IsForeignKeyViolation(err, "businesses_owner_id_fkey") {
		return errUnknownOwner
	}
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a business; the users foreign key clears their business_id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("business")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("business")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBusiness(row scanner) (*Business, error) {
	var b Business
	var docs documents
	var ownerID sql.NullString

	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Description,
		&b.Logo,
		&docs.address,
		&docs.contact,
		&docs.services,
		&docs.schedule,
		&b.Active,
		&ownerID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.OwnerID = ownerID.String

	if err := json.Unmarshal(docs.address, &b.Address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal address: %w", err)
	}
	if err := json.Unmarshal(docs.contact, &b.Contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
	}
	if err := json.Unmarshal(docs.services, &b.Services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal services: %w", err)
	}
	if err := json.Unmarshal(docs.schedule, &b.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	if b.Services == nil {
		b.Services = []ServiceTag{}
	}
	return &b, nil
}
