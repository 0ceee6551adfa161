package businesses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/storage"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// LogoFolder is the object-store folder for business logos.
const LogoFolder = "logos"

// CreateInput is the payload for creating a business
type CreateInput struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Logo        string       `json:"logo"`
	Address     Address      `json:"address"`
	Contact     Contact      `json:"contact"`
	Services    []ServiceTag `json:"services"`
	Schedule    Schedule     `json:"schedule"`
	Active      *bool        `json:"active,omitempty"`
	OwnerID     string       `json:"ownerId"`
}

// UpdateInput carries the fields to change; nil fields are left alone.
type UpdateInput struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Logo        *string       `json:"logo,omitempty"`
	Address     *Address      `json:"address,omitempty"`
	Contact     *Contact      `json:"contact,omitempty"`
	Services    *[]ServiceTag `json:"services,omitempty"`
	Schedule    *Schedule     `json:"schedule,omitempty"`
	Active      *bool         `json:"active,omitempty"`
	OwnerID     *string       `json:"ownerId,omitempty"`
}

// Service implements business CRUD with tenancy scoping
type Service struct {
	store   Store
	objects storage.ObjectStore
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a business service. objects may be nil.
func NewService(store Store, objects storage.ObjectStore, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		objects: objects,
		metrics: metrics,
		now:     time.Now,
	}
}

// canManage reports whether actor sees every business
func canManage(actor *users.User) bool {
	return actor != nil && rbac.Authorize(actor.Role, rbac.PermManageBusinesses) == nil
}

// List returns every business for managers, otherwise only the actor's own.
func (s *Service) List(ctx context.Context, actor *users.User) ([]*Business, error) {
	if canManage(actor) {
		return s.store.List(ctx)
	}
	if actor == nil || actor.BusinessID == "" {
		return []*Business{}, nil
	}

	b, err := s.store.Get(ctx, actor.BusinessID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []*Business{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []*Business{b}, nil
}

// Get returns a business the actor may see. Other tenants' businesses are
// reported as not found.
func (s *Service) Get(ctx context.Context, actor *users.User, id string) (*Business, error) {
	if !canManage(actor) && (actor == nil || actor.BusinessID != id) {
		return nil, apperrors.NewNotFound("business")
	}
	return s.store.Get(ctx, id)
}

// Create validates and stores a business. The owner defaults to the actor.
func (s *Service) Create(ctx context.Context, actor *users.User, in CreateInput) (*Business, error) {
	now := s.now().UTC()
	b := &Business{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Logo:        strings.TrimSpace(in.Logo),
		Address:     in.Address,
		Contact:     in.Contact,
		Services:    dedupeServices(in.Services),
		Schedule:    in.Schedule,
		Active:      in.Active == nil || *in.Active,
		OwnerID:     strings.TrimSpace(in.OwnerID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if b.OwnerID == "" && actor != nil {
		b.OwnerID = actor.ID
	}

	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("business_id", b.ID).Info("Business created")
	return b, nil
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Business, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		b.Name = *in.Name
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Logo != nil {
		b.Logo = strings.TrimSpace(*in.Logo)
	}
	if in.Address != nil {
		b.Address = *in.Address
	}
	if in.Contact != nil {
		b.Contact = *in.Contact
	}
	if in.Services != nil {
		b.Services = dedupeServices(*in.Services)
	}
	if in.Schedule != nil {
		b.Schedule = *in.Schedule
	}
	if in.Active != nil {
		b.Active = *in.Active
	}
	if in.OwnerID != nil {
		b.OwnerID = strings.TrimSpace(*in.OwnerID)
	}

	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}

	b.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, b); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("business_id", b.ID).Info("Business updated")
	return b, nil
}

// Delete removes a business and detaches its users
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, b.ID); err != nil {
		return err
	}

	s.discardObject(ctx, b.Logo)
	observability.FromContext(ctx).WithField("business_id", b.ID).Info("Business deleted")
	return nil
}

// UploadLogo stores a new logo and releases the previous one
func (s *Service) UploadLogo(ctx context.Context, id string, logo storage.Upload) (*Business, error) {
	if !logo.IsImage() {
		return nil, apperrors.NewFieldValidation("logo", "file must be an image")
	}
	if s.objects == nil {
		return nil, apperrors.NewInternal("object storage is not configured", nil)
	}

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.objects.Upload(ctx, logo.Object(LogoFolder))
	s.metrics.RecordUpload(LogoFolder, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}

	previous := b.Logo
	b.Logo = url
	b.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, b); err != nil {
		s.discardObject(ctx, url)
		return nil, err
	}

	s.discardObject(ctx, previous)
	return b, nil
}

func (s *Service) discardObject(ctx context.Context, url string) {
	if url == "" || s.objects == nil || !s.objects.Owns(url) {
		return
	}
	if err := s.objects.Delete(ctx, url); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("url", url).Warn("Failed to delete stored object")
	}
}

func dedupeServices(tags []ServiceTag) []ServiceTag {
	seen := make(map[ServiceTag]bool, len(tags))
	out := make([]ServiceTag, 0, len(tags))
	for _, tag := range tags {
		tag = ServiceTag(strings.TrimSpace(string(tag)))
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
