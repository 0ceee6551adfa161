package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/observability"
)

// UsageCounter counts users assigned to a role.
type UsageCounter interface {
	CountByRole(ctx context.Context, roleID string) (int, error)
}

// CreateRoleInput is the payload for creating a role
type CreateRoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	Active      *bool    `json:"active,omitempty"`
}

// UpdateRoleInput carries the fields to change; nil fields are left alone.
type UpdateRoleInput struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	Active      *bool     `json:"active,omitempty"`
}

// Service enforces the role invariants on top of a Store.
type Service struct {
	store Store
	usage UsageCounter
	now   func() time.Time
}

// NewService creates a role service
func NewService(store Store, usage UsageCounter) *Service {
	return &Service{
		store: store,
		usage: usage,
		now:   time.Now,
	}
}

// Permissions returns the permission vocabulary
func (s *Service) Permissions() []Permission {
	return AllPermissions()
}

// List returns every role except the owner role.
func (s *Service) List(ctx context.Context) ([]*Role, error) {
	roles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*Role, 0, len(roles))
	for _, role := range roles {
		if !role.IsOwner() {
			visible = append(visible, role)
		}
	}
	return visible, nil
}

// Get returns a role by id. The owner role is not exposed.
func (s *Service) Get(ctx context.Context, id string) (*Role, error) {
	role, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsOwner() {
		return nil, apperrors.NewForbidden("the owner role cannot be accessed")
	}
	return role, nil
}

// Create validates and stores a new role.
func (s *Service) Create(ctx context.Context, in CreateRoleInput) (*Role, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	var v apperrors.Validator
	validateName(&v, name)
	validateDescription(&v, description)
	perms, err := ParsePermissions(in.Permissions)
	if mergeErr := v.Merge(err); mergeErr != nil {
		return nil, mergeErr
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if IsOwnerName(name) {
		return nil, apperrors.NewFieldValidation("name", "the owner role cannot be created")
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	role := &Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Permissions: perms,
		Active:      in.Active == nil || *in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, role); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("role_id", role.ID).WithField("role", role.Name).Info("Role created")
	return role, nil
}

// Update applies a partial update. The owner role is immutable and no role
// may be renamed to it.
func (s *Service) Update(ctx context.Context, id string, in UpdateRoleInput) (*Role, error) {
	role, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsOwner() {
		return nil, apperrors.NewValidation("the owner role cannot be modified")
	}

	var v apperrors.Validator
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		validateName(&v, name)
		role.Name = name
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		validateDescription(&v, description)
		role.Description = description
	}
	if in.Permissions != nil {
		perms, err := ParsePermissions(*in.Permissions)
		if mergeErr := v.Merge(err); mergeErr != nil {
			return nil, mergeErr
		}
		if err == nil {
			role.Permissions = perms
		}
	}
	if in.Active != nil {
		role.Active = *in.Active
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if IsOwnerName(role.Name) {
		return nil, apperrors.NewFieldValidation("name", "a role cannot be renamed to owner")
	}
	if in.Name != nil {
		if err := s.ensureNameFree(ctx, role.Name, role.ID); err != nil {
			return nil, err
		}
	}

	role.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, role); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("role_id", role.ID).Info("Role updated")
	return role, nil
}

// Delete removes a role that is not the owner role and has no users.
func (s *Service) Delete(ctx context.Context, id string) error {
	role, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsOwner() {
		return apperrors.NewValidation("the owner role cannot be deleted")
	}

	count, err := s.usage.CountByRole(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if count > 0 {
		return apperrors.NewConflict(fmt.Sprintf("role is assigned to %d user(s)", count))
	}

	if err := s.store.Delete(ctx, role.ID); err != nil {
		return err
	}

	observability.FromContext(ctx).WithField("role_id", role.ID).WithField("role", role.Name).Info("Role deleted")
	return nil
}

// ensureNameFree is a fast-fail check; the unique index on LOWER(name)
// remains the actual guarantee.
func (s *Service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.store.GetByName(ctx, name)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	default:
		return ErrRoleNameTaken
	}
}

func validateName(v *apperrors.Validator, name string) {
	v.Check(name != "", "name", "name is required")
	v.Check(utf8.RuneCountInString(name) <= maxRoleNameLength, "name",
		fmt.Sprintf("name must be at most %d characters", maxRoleNameLength))
}

func validateDescription(v *apperrors.Validator, description string) {
	v.Check(utf8.RuneCountInString(description) <= maxRoleDescriptionLength, "description",
		fmt.Sprintf("description must be at most %d characters", maxRoleDescriptionLength))
}
