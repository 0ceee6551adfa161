package memory

import (
	"context"
	"strings"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/rbac"
)

// RoleStore implements rbac.Store
type RoleStore struct {
	db *DB
}

var _ rbac.Store = (*RoleStore)(nil)

// Create inserts a role
func (s *RoleStore) Create(_ context.Context, role *rbac.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.roleNameTaken(role.Name, role.ID) {
		return rbac.ErrRoleNameTaken
	}
	s.db.roles[role.ID] = copyRole(role)
	return nil
}

// Get retrieves a role by ID
func (s *RoleStore) Get(_ context.Context, id string) (*rbac.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	role, ok := s.db.roles[id]
	if !ok {
		return nil, apperrors.NewNotFound("role")
	}
	return copyRole(role), nil
}

// GetByName retrieves a role by name, ignoring case
func (s *RoleStore) GetByName(_ context.Context, name string) (*rbac.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, role := range s.db.roles {
		if sameName(role.Name, name) {
			return copyRole(role), nil
		}
	}
	return nil, apperrors.NewNotFound("role")
}

// List returns every role ordered by name
func (s *RoleStore) List(_ context.Context) ([]*rbac.Role, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sorted := sortedValues(s.db.roles, func(a, b *rbac.Role) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	roles := make([]*rbac.Role, 0, len(sorted))
	for _, role := range sorted {
		roles = append(roles, copyRole(role))
	}
	return roles, nil
}

// Update overwrites a role
func (s *RoleStore) Update(_ context.Context, role *rbac.Role) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.roles[role.ID]
	if !ok {
		return apperrors.NewNotFound("role")
	}
	if s.db.roleNameTaken(role.Name, role.ID) {
		return rbac.ErrRoleNameTaken
	}
	updated := copyRole(role)
	updated.CreatedAt = existing.CreatedAt
	s.db.roles[role.ID] = updated
	return nil
}

// Delete removes a role that no user references
func (s *RoleStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.roles[id]; !ok {
		return apperrors.NewNotFound("role")
	}
	for _, user := range s.db.users {
		if user.RoleID == id {
			return rbac.ErrRoleInUse
		}
	}
	delete(s.db.roles, id)
	return nil
}

// roleNameTaken must be called with the lock held
func (db *DB) roleNameTaken(name, selfID string) bool {
	for _, role := range db.roles {
		if role.ID != selfID && sameName(role.Name, name) {
			return true
		}
	}
	return false
}
