package rbac

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

// Permission is one grantable capability.
type Permission string

const (
	PermOwner            Permission = "owner"
	PermManageUsers      Permission = "manage_users"
	PermManageRoles      Permission = "manage_roles"
	PermManageBusinesses Permission = "manage_businesses"
	PermManageInventory  Permission = "manage_inventory"
	PermManageSuppliers  Permission = "manage_suppliers"
	PermManageRepairs    Permission = "manage_repairs"
	PermManageSales      Permission = "manage_sales"
	PermManageCustomers  Permission = "manage_customers"
	PermManageCash       Permission = "manage_cash"
	PermManageBrands     Permission = "manage_brands"
	PermManageProducts   Permission = "manage_products"
	PermManageServices   Permission = "manage_services"
	PermManageReports    Permission = "manage_reports"
	PermManageSettings   Permission = "manage_settings"
	PermViewDashboard    Permission = "view_dashboard"
	PermViewReports      Permission = "view_reports"
	PermExecuteSales     Permission = "execute_sales"
	PermExecuteRepairs   Permission = "execute_repairs"
	PermApproveBudgets   Permission = "approve_budgets"
	PermManageDocuments  Permission = "manage_documents"
	PermManageTasks      Permission = "manage_tasks"
)

// vocabulary is the fixed, ordered list of known permissions.
var vocabulary = []Permission{
	PermOwner,
	PermManageUsers,
	PermManageRoles,
	PermManageBusinesses,
	PermManageInventory,
	PermManageSuppliers,
	PermManageRepairs,
	PermManageSales,
	PermManageCustomers,
	PermManageCash,
	PermManageBrands,
	PermManageProducts,
	PermManageServices,
	PermManageReports,
	PermManageSettings,
	PermViewDashboard,
	PermViewReports,
	PermExecuteSales,
	PermExecuteRepairs,
	PermApproveBudgets,
	PermManageDocuments,
	PermManageTasks,
}

var vocabularyIndex = func() map[Permission]int {
	index := make(map[Permission]int, len(vocabulary))
	for i, p := range vocabulary {
		index[p] = i
	}
	return index
}()

// AllPermissions returns a copy of the permission vocabulary in display order.
func AllPermissions() []Permission {
	out := make([]Permission, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Valid reports whether p belongs to the vocabulary.
func (p Permission) Valid() bool {
	_, ok := vocabularyIndex[p]
	return ok
}

// PermissionSet is an unordered set of known permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from perms. Callers are expected to pass
// vocabulary members; use ParsePermissions for untrusted input.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// FullPermissionSet contains every known permission.
func FullPermissionSet() PermissionSet {
	return NewPermissionSet(vocabulary...)
}

// ParsePermissions validates tokens against the vocabulary. Duplicates
// collapse; any unknown token fails the whole list.
func ParsePermissions(tokens []string) (PermissionSet, error) {
	set := make(PermissionSet, len(tokens))
	var unknown []string
	for _, token := range tokens {
		p := Permission(strings.TrimSpace(token))
		if !p.Valid() {
			unknown = append(unknown, token)
			continue
		}
		set[p] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewFieldValidation("permissions",
			fmt.Sprintf("unknown permissions: %s", strings.Join(unknown, ", ")))
	}
	return set, nil
}

// Has reports membership of p
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Missing returns the required permissions absent from the set, in the
// order they were given.
func (s PermissionSet) Missing(required ...Permission) []Permission {
	var missing []Permission
	for _, p := range required {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Slice returns the members in vocabulary order.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return vocabularyIndex[out[i]] < vocabularyIndex[out[j]]
	})
	return out
}

// MarshalJSON encodes the set as an ordered array of tokens.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of tokens, rejecting unknown ones.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return err
	}
	parsed, err := ParsePermissions(tokens)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// OwnerRoleName is the privileged role that cannot be managed through the API.
const OwnerRoleName = "owner"

const (
	maxRoleNameLength        = 50
	maxRoleDescriptionLength = 200
)

// Role is a named set of permissions.
type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Permissions PermissionSet `json:"permissions"`
	Active      bool          `json:"active"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// IsOwner reports whether the role is the privileged owner role.
func (r *Role) IsOwner() bool {
	return IsOwnerName(r.Name)
}

// IsOwnerName compares name with the owner role case-insensitively.
func IsOwnerName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), OwnerRoleName)
}
