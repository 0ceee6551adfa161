package users

import (
	"net/mail"
	"strings"
	"time"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/rbac"
)

// Settings are per-user interface preferences.
type Settings struct {
	Theme         string            `json:"theme"`
	Language      string            `json:"language"`
	Notifications bool              `json:"notifications"`
	Interface     map[string]string `json:"interfaceSettings"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:         "light",
		Language:      "es",
		Notifications: true,
		Interface:     map[string]string{},
	}
}

// SettingsPatch carries the settings keys a client sent. Interface entries
// are merged key by key; an empty value removes the key.
type SettingsPatch struct {
	Theme         *string           `json:"theme,omitempty"`
	Language      *string           `json:"language,omitempty"`
	Notifications *bool             `json:"notifications,omitempty"`
	Interface     map[string]string `json:"interfaceSettings,omitempty"`
}

var validThemes = map[string]bool{"light": true, "dark": true}

// Validate checks the provided keys
func (p SettingsPatch) Validate() error {
	var v apperrors.Validator
	if p.Theme != nil {
		v.Check(validThemes[*p.Theme], "theme", "theme must be light or dark")
	}
	if p.Language != nil {
		n := len(*p.Language)
		v.Check(n >= 2 && n <= 5, "language", "language must be a language code")
	}
	return v.Err()
}

// Merge returns s with the patch applied.
func (s Settings) Merge(p SettingsPatch) Settings {
	merged := s
	if p.Theme != nil {
		merged.Theme = *p.Theme
	}
	if p.Language != nil {
		merged.Language = *p.Language
	}
	if p.Notifications != nil {
		merged.Notifications = *p.Notifications
	}

	merged.Interface = make(map[string]string, len(s.Interface)+len(p.Interface))
	for k, v := range s.Interface {
		merged.Interface[k] = v
	}
	for k, v := range p.Interface {
		if v == "" {
			delete(merged.Interface, k)
			continue
		}
		merged.Interface[k] = v
	}
	return merged
}

// User is an account. Role is populated only when a query asks for it.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	RoleID       string     `json:"roleId"`
	Role         *rbac.Role `json:"role,omitempty"`
	BusinessID   string     `json:"businessId,omitempty"`
	Photo        string     `json:"photo,omitempty"`
	Settings     Settings   `json:"settings"`
	Active       bool       `json:"active"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Summary is the compact user view returned by the auth endpoints.
type Summary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       *rbac.Role `json:"role,omitempty"`
	BusinessID string     `json:"businessId,omitempty"`
	Photo      string     `json:"photo,omitempty"`
}

// Summary returns the compact view of u
func (u *User) Summary() Summary {
	return Summary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		BusinessID: u.BusinessID,
		Photo:      u.Photo,
	}
}

// NormalizeEmail trims and lower-cases an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts bare addresses with a dotted domain, rejecting
// display-name forms.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

const (
	maxNameLength  = 100
	maxEmailLength = 254
)
