package memory

import (
	"context"
	"strings"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/businesses"
)

// BusinessStore implements businesses.Store
type BusinessStore struct {
	db *DB
}

var _ businesses.Store = (*BusinessStore)(nil)

var errUnknownOwner = apperrors.NewFieldValidation("ownerId", "owner does not exist")

// Create inserts a business
func (s *BusinessStore) Create(_ context.Context, b *businesses.Business) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.db.checkOwner(b.OwnerID); err != nil {
		return err
	}
	s.db.businesses[b.ID] = copyBusiness(b)
	return nil
}

// Get retrieves a business by ID
func (s *BusinessStore) Get(_ context.Context, id string) (*businesses.Business, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	b, ok := s.db.businesses[id]
	if !ok {
		return nil, apperrors.NewNotFound("business")
	}
	return copyBusiness(b), nil
}

// List returns every business ordered by name
func (s *BusinessStore) List(_ context.Context) ([]*businesses.Business, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sorted := sortedValues(s.db.businesses, func(a, b *businesses.Business) bool {
		return strings.Compare(a.Name, b.Name) < 0
	})
	list := make([]*businesses.Business, 0, len(sorted))
	for _, b := range sorted {
		list = append(list, copyBusiness(b))
	}
	return list, nil
}

// Update overwrites a business
func (s *BusinessStore) Update(_ context.Context, b *businesses.Business) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.businesses[b.ID]
	if !ok {
		return apperrors.NewNotFound("business")
	}
	if err := s.db.checkOwner(b.OwnerID); err != nil {
		return err
	}
	updated := copyBusiness(b)
	updated.CreatedAt = existing.CreatedAt
	s.db.businesses[b.ID] = updated
	return nil
}

// Delete removes a business and clears the business of its users
func (s *BusinessStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.businesses[id]; !ok {
		return apperrors.NewNotFound("business")
	}
	delete(s.db.businesses, id)
	for _, user := range s.db.users {
		if user.BusinessID == id {
			user.BusinessID = ""
		}
	}
	return nil
}

func (db *DB) checkOwner(ownerID string) error {
	if ownerID == "" {
		return nil
	}
	if _, ok := db.users[ownerID]; !ok {
		return errUnknownOwner
	}
	return nil
}
