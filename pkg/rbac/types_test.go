package rbac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

func TestAllPermissions(t *testing.T) {
	perms := AllPermissions()
	require.Len(t, perms, 22)
	assert.Equal(t, PermOwner, perms[0])
	assert.Equal(t, PermManageTasks, perms[len(perms)-1])

	// Returned slice is a copy
	perms[0] = "mutated"
	assert.Equal(t, PermOwner, AllPermissions()[0])
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		want    []Permission
		wantErr string
	}{
		{
			name:   "empty",
			tokens: nil,
			want:   []Permission{},
		},
		{
			name:   "known tokens are ordered by vocabulary",
			tokens: []string{"execute_sales", "manage_users"},
			want:   []Permission{PermManageUsers, PermExecuteSales},
		},
		{
			name:   "duplicates collapse",
			tokens: []string{"manage_sales", "manage_sales"},
			want:   []Permission{PermManageSales},
		},
		{
			name:    "unknown token fails",
			tokens:  []string{"manage_users", "launch_rockets", "admin"},
			wantErr: "unknown permissions: launch_rockets, admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParsePermissions(tt.tokens)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Slice())
		})
	}
}

func TestPermissionSet_Missing(t *testing.T) {
	set := NewPermissionSet(PermManageSales, PermViewDashboard)

	assert.Empty(t, set.Missing(PermManageSales))
	assert.Empty(t, set.Missing())
	assert.Equal(t, []Permission{PermManageUsers, PermManageRoles},
		set.Missing(PermManageUsers, PermManageSales, PermManageRoles))
}

func TestPermissionSet_JSON(t *testing.T) {
	role := Role{
		ID:          "r1",
		Name:        "staff",
		Permissions: NewPermissionSet(PermExecuteSales, PermManageUsers),
		Active:      true,
	}

	data, err := json.Marshal(role)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"permissions":["manage_users","execute_sales"]`)

	var decoded Role
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Permissions.Has(PermExecuteSales))
	assert.True(t, decoded.Permissions.Has(PermManageUsers))

	err = json.Unmarshal([]byte(`{"permissions":["nope"]}`), &decoded)
	require.Error(t, err)
}

func TestIsOwnerName(t *testing.T) {
	assert.True(t, IsOwnerName("owner"))
	assert.True(t, IsOwnerName("Owner"))
	assert.True(t, IsOwnerName(" OWNER "))
	assert.False(t, IsOwnerName("owners"))
	assert.False(t, IsOwnerName("admin"))
}
