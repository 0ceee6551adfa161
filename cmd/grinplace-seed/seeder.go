package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/grinplace/pkg/app"
	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// seedConcurrency bounds parallel inserts; each user insert runs bcrypt.
const seedConcurrency = 4

// Result counts what a seeding run created and skipped
type Result struct {
	Created int
	Skipped int
}

func (r *Result) add(created bool) {
	if created {
		r.Created++
	} else {
		r.Skipped++
	}
}

// Seeder loads a fixture into the stores. Records that already exist are
// left untouched so a fixture can be applied repeatedly.
type Seeder struct {
	stores   *app.Stores
	services *app.Services
	logger   *observability.Logger

	mu    sync.Mutex
	roles map[string]*rbac.Role
	users map[string]*users.User
	res   Result
}

// NewSeeder creates a seeder
func NewSeeder(stores *app.Stores, services *app.Services, logger *observability.Logger) *Seeder {
	return &Seeder{
		stores:   stores,
		services: services,
		logger:   logger,
		roles:    make(map[string]*rbac.Role),
		users:    make(map[string]*users.User),
	}
}

// Run applies f. Roles come first, then users without a business (the
// business owners), then businesses, then the remaining users.
func (s *Seeder) Run(ctx context.Context, f *Fixture) (Result, error) {
	if err := s.each(ctx, len(f.Roles), func(ctx context.Context, i int) error {
		return s.seedRole(ctx, f.Roles[i])
	}); err != nil {
		return s.res, err
	}

	var standalone, members []UserFixture
	for _, u := range f.Users {
		if u.Business == "" {
			standalone = append(standalone, u)
		} else {
			members = append(members, u)
		}
	}

	if err := s.each(ctx, len(standalone), func(ctx context.Context, i int) error {
		return s.seedUser(ctx, standalone[i], "")
	}); err != nil {
		return s.res, err
	}

	businessIDs := make(map[string]string, len(f.Businesses))
	for _, b := range f.Businesses {
		id, err := s.seedBusiness(ctx, b)
		if err != nil {
			return s.res, err
		}
		businessIDs[b.Name] = id
	}

	err := s.each(ctx, len(members), func(ctx context.Context, i int) error {
		return s.seedUser(ctx, members[i], businessIDs[members[i].Business])
	})
	return s.res, err
}

func (s *Seeder) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(seedConcurrency)
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error { return fn(groupCtx, i) })
	}
	return group.Wait()
}

func (s *Seeder) record(created bool) {
	s.mu.Lock()
	s.res.add(created)
	s.mu.Unlock()
}

func (s *Seeder) seedRole(ctx context.Context, rf RoleFixture) error {
	logger := s.logger.WithField("role", rf.Name)

	role, err := s.stores.Roles.GetByName(ctx, rf.Name)
	switch {
	case err == nil:
		logger.Info("Role exists, skipping")
		s.record(false)
	case apperrors.KindOf(err) != apperrors.NotFound:
		return fmt.Errorf("failed to look up role %s: %w", rf.Name, err)
	case rf.AllPermissions:
		// The service refuses the reserved owner name, so it goes to the store.
		now := time.Now().UTC()
		role = &rbac.Role{
			ID:          uuid.NewString(),
			Name:        rf.Name,
			Description: rf.Description,
			Permissions: rbac.FullPermissionSet(),
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.stores.Roles.Create(ctx, role); err != nil {
			return fmt.Errorf("failed to create role %s: %w", rf.Name, err)
		}
		logger.Info("Role created")
		s.record(true)
	default:
		role, err = s.services.Roles.Create(ctx, rbac.CreateRoleInput{
			Name:        rf.Name,
			Description: rf.Description,
			Permissions: rf.Permissions,
		})
		if err != nil {
			return fmt.Errorf("failed to create role %s: %w", rf.Name, err)
		}
		logger.Info("Role created")
		s.record(true)
	}

	s.mu.Lock()
	s.roles[rf.Name] = role
	s.mu.Unlock()
	return nil
}

func (s *Seeder) seedUser(ctx context.Context, uf UserFixture, businessID string) error {
	email := users.NormalizeEmail(uf.Email)
	logger := s.logger.WithField("email", email)

	user, err := s.stores.Users.GetByEmail(ctx, email, users.FindOptions{})
	switch {
	case err == nil:
		logger.Info("User exists, skipping")
		s.record(false)
	case apperrors.KindOf(err) != apperrors.NotFound:
		return fmt.Errorf("failed to look up user %s: %w", email, err)
	default:
		s.mu.Lock()
		role := s.roles[uf.Role]
		s.mu.Unlock()
		if role == nil {
			return fmt.Errorf("user %s references unknown role %q", email, uf.Role)
		}

		user, err = s.services.Users.Create(ctx, nil, users.CreateUserInput{
			Email:      email,
			Password:   uf.Password,
			Name:       uf.Name,
			RoleID:     role.ID,
			BusinessID: businessID,
		})
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", email, err)
		}
		logger.Info("User created")
		s.record(true)
	}

	s.mu.Lock()
	s.users[email] = user
	s.mu.Unlock()
	return nil
}

func (s *Seeder) seedBusiness(ctx context.Context, bf BusinessFixture) (string, error) {
	logger := s.logger.WithField("business", bf.Name)

	existing, err := s.stores.Businesses.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list businesses: %w", err)
	}
	for _, b := range existing {
		if strings.EqualFold(b.Name, bf.Name) {
			logger.Info("Business exists, skipping")
			s.record(false)
			return b.ID, nil
		}
	}

	var ownerID string
	if bf.Owner != "" {
		s.mu.Lock()
		owner := s.users[users.NormalizeEmail(bf.Owner)]
		s.mu.Unlock()
		if owner == nil {
			return "", fmt.Errorf("business %s references unknown owner %q", bf.Name, bf.Owner)
		}
		ownerID = owner.ID
	}

	b, err := s.services.Businesses.Create(ctx, nil, businesses.CreateInput{
		Name:        bf.Name,
		Description: bf.Description,
		Address:     bf.Address,
		Contact:     bf.Contact,
		Services:    bf.Services,
		Schedule:    bf.Schedule,
		OwnerID:     ownerID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create business %s: %w", bf.Name, err)
	}
	logger.Info("Business created")
	s.record(true)
	return b.ID, nil
}
