package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/auth"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/storage"
)

// PasswordHasher is the Credential Verifier
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Compare(ctx context.Context, plaintext, digest string) (bool, error)
}

// TokenIssuer signs identity tokens
type TokenIssuer interface {
	Issue(claims auth.Claims, ttl time.Duration) (string, error)
}

// RoleFinder looks roles up; rbac.Store satisfies it.
type RoleFinder interface {
	Get(ctx context.Context, id string) (*rbac.Role, error)
	GetByName(ctx context.Context, name string) (*rbac.Role, error)
}

// ErrInvalidCredentials is the single answer to every failed login.
var ErrInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// PhotoFolder is the object-store folder for profile photos.
const PhotoFolder = "profile"

// ServiceConfig configures a Service
type ServiceConfig struct {
	// AdminRoleName is the top-level administrative role whose last holder
	// cannot be deleted.
	AdminRoleName string
	Metrics       *observability.Metrics
}

// Service implements the user operations
type Service struct {
	store     Store
	roles     RoleFinder
	hasher    PasswordHasher
	tokens    TokenIssuer
	objects   storage.ObjectStore
	adminRole string
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewService creates a user service. objects may be nil, in which case
// photo uploads fail.
func NewService(store Store, roles RoleFinder, hasher PasswordHasher, tokens TokenIssuer, objects storage.ObjectStore, cfg ServiceConfig) *Service {
	adminRole := cfg.AdminRoleName
	if adminRole == "" {
		adminRole = rbac.OwnerRoleName
	}
	return &Service{
		store:     store,
		roles:     roles,
		hasher:    hasher,
		tokens:    tokens,
		objects:   objects,
		adminRole: adminRole,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
}

// CreateUserInput is the payload for creating or registering a user
type CreateUserInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	RoleID     string `json:"roleId"`
	BusinessID string `json:"businessId,omitempty"`
	Active     *bool  `json:"active,omitempty"`
}

// UpdateUserInput carries the fields to change; nil fields are left alone.
type UpdateUserInput struct {
	Email      *string `json:"email,omitempty"`
	Password   *string `json:"password,omitempty"`
	Name       *string `json:"name,omitempty"`
	RoleID     *string `json:"roleId,omitempty"`
	BusinessID *string `json:"businessId,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// ProfileInput is what users may change about themselves
type ProfileInput struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// LoginInput holds credentials
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful login
type LoginResult struct {
	Token string  `json:"token"`
	User  Summary `json:"user"`
}

var withRole = FindOptions{IncludeRole: true}

// List returns users with their roles resolved
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	return s.store.List(ctx, filter, withRole)
}

// ListByRoleName returns users whose role is named name, ignoring case
func (s *Service) ListByRoleName(ctx context.Context, name string) ([]*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewFieldValidation("role", "role name is required")
	}
	return s.store.List(ctx, ListFilter{RoleName: name}, withRole)
}

// Get returns one user with the role resolved
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.store.Get(ctx, id, withRole)
}

// Create adds a user. actor, when set, may only assign roles whose
// permissions it holds itself.
func (s *Service) Create(ctx context.Context, actor *User, in CreateUserInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	roleID := strings.TrimSpace(in.RoleID)

	var v apperrors.Validator
	validateEmail(&v, email)
	validateName(&v, name)
	v.Check(roleID != "", "roleId", "role is required")
	if in.Password == "" {
		v.Add("password", "password is required")
	} else if err := v.Merge(auth.ValidatePassword(in.Password)); err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	role, err := s.assignableRole(ctx, actor, roleID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		RoleID:       role.ID,
		BusinessID:   strings.TrimSpace(in.BusinessID),
		Settings:     DefaultSettings(),
		Active:       in.Active == nil || *in.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Role = role

	observability.FromContext(ctx).WithField("target_user_id", user.ID).WithField("role", role.Name).Info("User created")
	return user, nil
}

// Register creates an account on behalf of an administrator and returns
// the compact view the auth endpoints expose.
func (s *Service) Register(ctx context.Context, actor *User, in CreateUserInput) (Summary, error) {
	user, err := s.Create(ctx, actor, in)
	if err != nil {
		return Summary{}, err
	}
	return user.Summary(), nil
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, actor *User, id string, in UpdateUserInput) (*User, error) {
	user, err := s.store.Get(ctx, id, withRole)
	if err != nil {
		return nil, err
	}
	wasActiveAdmin := s.isAdmin(user) && user.Active

	var v apperrors.Validator
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		validateEmail(&v, email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
		validateName(&v, user.Name)
	}
	if in.Password != nil {
		if err := v.Merge(auth.ValidatePassword(*in.Password)); err != nil {
			return nil, err
		}
	}
	if in.BusinessID != nil {
		user.BusinessID = strings.TrimSpace(*in.BusinessID)
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if in.RoleID != nil && strings.TrimSpace(*in.RoleID) != user.RoleID {
		role, err := s.assignableRole(ctx, actor, strings.TrimSpace(*in.RoleID))
		if err != nil {
			return nil, err
		}
		user.RoleID = role.ID
		user.Role = role
	}

	if wasActiveAdmin && (!s.isAdmin(user) || !user.Active) {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if in.Password != nil {
		hash, err := s.hasher.Hash(ctx, *in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("target_user_id", user.ID).Info("User updated")
	return s.store.Get(ctx, user.ID, withRole)
}

// Delete removes a user, refusing to remove the last active holder of the
// admin role
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.store.Get(ctx, id, withRole)
	if err != nil {
		return err
	}
	if s.isAdmin(user) && user.Active {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.store.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.discardObject(ctx, user.Photo)
	observability.FromContext(ctx).WithField("target_user_id", user.ID).Info("User deleted")
	return nil
}

// Login verifies credentials and issues a token. Unknown, inactive and
// wrong-password attempts are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := NormalizeEmail(in.Email)

	var v apperrors.Validator
	validateEmail(&v, email)
	v.Check(in.Password != "", "password", "password is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx).WithField("email", email)

	user, err := s.store.GetByEmail(ctx, email, withRole)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.metrics.RecordLogin("unknown_user")
		logger.Info("Login failed: unknown user")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		s.metrics.RecordLogin("inactive")
		logger.Info("Login failed: inactive user")
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordLogin("wrong_password")
		logger.Info("Login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(auth.Claims{
		UserID:     user.ID,
		RoleID:     user.RoleID,
		BusinessID: user.BusinessID,
	}, 0)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin("success")
	logger.WithField("user_id", user.ID).Info("Login succeeded")
	return &LoginResult{Token: token, User: user.Summary()}, nil
}

// Profile returns the caller's own record
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.store.Get(ctx, userID, withRole)
}

// UpdateProfile changes the caller's name, email or password
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*User, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewFieldValidation("name", "name cannot be empty")
	}
	return s.Update(ctx, nil, userID, UpdateUserInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
}

// Settings returns the caller's settings
func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	user, err := s.store.Get(ctx, userID, FindOptions{})
	if err != nil {
		return Settings{}, err
	}
	return user.Settings, nil
}

// UpdateSettings merges patch into the caller's settings
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (Settings, error) {
	if err := patch.Validate(); err != nil {
		return Settings{}, err
	}

	user, err := s.store.Get(ctx, userID, FindOptions{})
	if err != nil {
		return Settings{}, err
	}

	user.Settings = user.Settings.Merge(patch)
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		return Settings{}, err
	}
	return user.Settings, nil
}

// UploadPhoto stores a new profile photo and releases the previous one
func (s *Service) UploadPhoto(ctx context.Context, userID string, photo storage.Upload) (*User, error) {
	if !photo.IsImage() {
		return nil, apperrors.NewFieldValidation("photo", "file must be an image")
	}
	if s.objects == nil {
		return nil, apperrors.NewInternal("object storage is not configured", nil)
	}

	user, err := s.store.Get(ctx, userID, FindOptions{})
	if err != nil {
		return nil, err
	}

	url, err := s.objects.Upload(ctx, photo.Object(PhotoFolder))
	s.metrics.RecordUpload(PhotoFolder, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	previous := user.Photo
	user.Photo = url
	user.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, user); err != nil {
		s.discardObject(ctx, url)
		return nil, err
	}

	s.discardObject(ctx, previous)
	return s.store.Get(ctx, user.ID, withRole)
}

// discardObject deletes an uploaded object best-effort
func (s *Service) discardObject(ctx context.Context, url string) {
	if url == "" || s.objects == nil || !s.objects.Owns(url) {
		return
	}
	if err := s.objects.Delete(ctx, url); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("url", url).Warn("Failed to delete stored object")
	}
}

// assignableRole resolves roleID and checks actor holds every permission
// the role grants.
func (s *Service) assignableRole(ctx context.Context, actor *User, roleID string) (*rbac.Role, error) {
	role, err := s.roles.Get(ctx, roleID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errUnknownRole
	}
	if err != nil {
		return nil, err
	}

	if actor != nil {
		if err := rbac.Authorize(actor.Role, role.Permissions.Slice()...); err != nil {
			return nil, apperrors.NewForbidden("cannot assign a role with permissions you do not hold")
		}
	}
	return role, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.store.GetByEmail(ctx, email, FindOptions{})
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	default:
		return ErrEmailTaken
	}
}

func (s *Service) isAdmin(user *User) bool {
	return user.Role != nil && strings.EqualFold(user.Role.Name, s.adminRole)
}

// ensureNotLastAdmin fails when at most one active user holds the admin role
func (s *Service) ensureNotLastAdmin(ctx context.Context) error {
	admin, err := s.roles.GetByName(ctx, s.adminRole)
	if err != nil {
		return err
	}
	count, err := s.store.CountActiveByRole(ctx, admin.ID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return apperrors.NewValidation(fmt.Sprintf("cannot remove the last %s user", s.adminRole))
	}
	return nil
}

func validateEmail(v *apperrors.Validator, email string) {
	switch {
	case email == "":
		v.Add("email", "email is required")
	case len(email) > maxEmailLength || !validEmail(email):
		v.Add("email", "invalid email")
	}
}

func validateName(v *apperrors.Validator, name string) {
	v.Check(name != "", "name", "name is required")
	v.Check(utf8.RuneCountInString(name) <= maxNameLength, "name",
		fmt.Sprintf("name must be at most %d characters", maxNameLength))
}
