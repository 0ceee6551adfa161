package memory

import (
	"context"
	"strings"
	"time"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// UserStore implements users.Store
type UserStore struct {
	db *DB
}

var _ users.Store = (*UserStore)(nil)

var (
	errUnknownRole     = apperrors.NewFieldValidation("roleId", "role does not exist")
	errUnknownBusiness = apperrors.NewFieldValidation("businessId", "business does not exist")
)

// Create inserts a user
func (s *UserStore) Create(_ context.Context, user *users.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.db.checkUser(user); err != nil {
		return err
	}
	s.db.users[user.ID] = copyUser(user)
	return nil
}

// Get retrieves a user by ID
func (s *UserStore) Get(_ context.Context, id string, opts users.FindOptions) (*users.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	user, ok := s.db.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user")
	}
	return s.db.readUser(user, opts), nil
}

// GetByEmail retrieves a user by normalized email
func (s *UserStore) GetByEmail(_ context.Context, email string, opts users.FindOptions) (*users.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	email = users.NormalizeEmail(email)
	for _, user := range s.db.users {
		if user.Email == email {
			return s.db.readUser(user, opts), nil
		}
	}
	return nil, apperrors.NewNotFound("user")
}

// List returns users matching filter ordered by name
func (s *UserStore) List(_ context.Context, filter users.ListFilter, opts users.FindOptions) ([]*users.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sorted := sortedValues(s.db.users, func(a, b *users.User) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Email < b.Email
	})

	list := []*users.User{}
	for _, user := range sorted {
		if filter.RoleName != "" {
			role, ok := s.db.roles[user.RoleID]
			if !ok || !sameName(role.Name, filter.RoleName) {
				continue
			}
		}
		if filter.BusinessID != "" && user.BusinessID != filter.BusinessID {
			continue
		}
		list = append(list, s.db.readUser(user, opts))
	}
	return list, nil
}

// Update overwrites a user. LastLogin and CreatedAt are kept.
func (s *UserStore) Update(_ context.Context, user *users.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.users[user.ID]
	if !ok {
		return apperrors.NewNotFound("user")
	}
	if err := s.db.checkUser(user); err != nil {
		return err
	}

	updated := copyUser(user)
	updated.CreatedAt = existing.CreatedAt
	updated.LastLogin = existing.LastLogin
	s.db.users[user.ID] = updated
	return nil
}

// Delete removes a user
func (s *UserStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[id]; !ok {
		return apperrors.NewNotFound("user")
	}
	delete(s.db.users, id)
	for _, b := range s.db.businesses {
		if b.OwnerID == id {
			b.OwnerID = ""
		}
	}
	return nil
}

// CountByRole counts users assigned to roleID
func (s *UserStore) CountByRole(_ context.Context, roleID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	count := 0
	for _, user := range s.db.users {
		if user.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

// CountActiveByRole counts active users assigned to roleID
func (s *UserStore) CountActiveByRole(_ context.Context, roleID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	count := 0
	for _, user := range s.db.users {
		if user.RoleID == roleID && user.Active {
			count++
		}
	}
	return count, nil
}

// CountActive counts active users
func (s *UserStore) CountActive(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	count := 0
	for _, user := range s.db.users {
		if user.Active {
			count++
		}
	}
	return count, nil
}

// TouchLastLogin records a successful login
func (s *UserStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	user, ok := s.db.users[id]
	if !ok {
		return apperrors.NewNotFound("user")
	}
	user.LastLogin = &at
	return nil
}

// checkUser applies the unique and foreign key rules; lock held.
func (db *DB) checkUser(user *users.User) error {
	email := users.NormalizeEmail(user.Email)
	for _, other := range db.users {
		if other.ID != user.ID && strings.EqualFold(other.Email, email) {
			return users.ErrEmailTaken
		}
	}
	if _, ok := db.roles[user.RoleID]; !ok {
		return errUnknownRole
	}
	if user.BusinessID != "" {
		if _, ok := db.businesses[user.BusinessID]; !ok {
			return errUnknownBusiness
		}
	}
	return nil
}

// readUser copies a stored user and resolves its role on request; lock held.
func (db *DB) readUser(user *users.User, opts users.FindOptions) *users.User {
	clone := copyUser(user)
	if opts.IncludeRole {
		clone.Role = copyRole(db.roles[user.RoleID])
	}
	return clone
}
