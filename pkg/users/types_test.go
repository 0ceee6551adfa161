package users

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

func strPtr(s string) *string { return &s }

func TestSettings_Merge(t *testing.T) {
	base := DefaultSettings()
	base.Interface["sidebar"] = "collapsed"
	base.Interface["density"] = "compact"

	off := false
	merged := base.Merge(SettingsPatch{
		Theme:         strPtr("dark"),
		Notifications: &off,
		Interface:     map[string]string{"density": "", "accent": "teal"},
	})

	assert.Equal(t, "dark", merged.Theme)
	assert.Equal(t, "es", merged.Language)
	assert.False(t, merged.Notifications)
	assert.Equal(t, map[string]string{"sidebar": "collapsed", "accent": "teal"}, merged.Interface)

	// the receiver is left untouched
	assert.Equal(t, "light", base.Theme)
	assert.Equal(t, "compact", base.Interface["density"])
}

func TestSettingsPatch_Validate(t *testing.T) {
	tests := []struct {
		name  string
		patch SettingsPatch
		ok    bool
	}{
		{"empty", SettingsPatch{}, true},
		{"dark theme", SettingsPatch{Theme: strPtr("dark")}, true},
		{"unknown theme", SettingsPatch{Theme: strPtr("neon")}, false},
		{"language code", SettingsPatch{Language: strPtr("en-US")}, true},
		{"language too short", SettingsPatch{Language: strPtr("e")}, false},
		{"language too long", SettingsPatch{Language: strPtr("english")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
		})
	}
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	user := &User{ID: "u1", Email: "a@example.com", PasswordHash: "$2a$10$secret", Settings: DefaultSettings()}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "passwordHash")
	assert.Contains(t, string(data), `"interfaceSettings":{}`)
}

func TestValidEmail(t *testing.T) {
	tests := map[string]bool{
		"ana@example.com":         true,
		"ana.lopez+shop@mail.com": true,
		"ana@localhost":           false,
		"ana@example.":            false,
		"Ana <ana@example.com>":   false,
		"not-an-email":            false,
		"":                        false,
	}
	for email, want := range tests {
		assert.Equal(t, want, validEmail(email), email)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}
