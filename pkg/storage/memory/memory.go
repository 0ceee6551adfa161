// Package memory is an in-memory Identity Store. It enforces the same
// uniqueness and referential rules as the PostgreSQL schema and is used by
// tests and the memory database driver.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// DB holds every entity behind one lock so cross-entity rules (role in use,
// business detach) see a consistent view.
type DB struct {
	mu         sync.RWMutex
	roles      map[string]*rbac.Role
	users      map[string]*users.User
	businesses map[string]*businesses.Business
}

// New creates an empty store
func New() *DB {
	return &DB{
		roles:      make(map[string]*rbac.Role),
		users:      make(map[string]*users.User),
		businesses: make(map[string]*businesses.Business),
	}
}

// Roles returns the role store view
func (db *DB) Roles() *RoleStore {
	return &RoleStore{db: db}
}

// Users returns the user store view
func (db *DB) Users() *UserStore {
	return &UserStore{db: db}
}

// Businesses returns the business store view
func (db *DB) Businesses() *BusinessStore {
	return &BusinessStore{db: db}
}

func copyRole(r *rbac.Role) *rbac.Role {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Permissions = rbac.NewPermissionSet(r.Permissions.Slice()...)
	return &clone
}

func copyUser(u *users.User) *users.User {
	clone := *u
	clone.Role = nil
	clone.Settings.Interface = make(map[string]string, len(u.Settings.Interface))
	for k, v := range u.Settings.Interface {
		clone.Settings.Interface[k] = v
	}
	if u.LastLogin != nil {
		at := *u.LastLogin
		clone.LastLogin = &at
	}
	return &clone
}

func copyBusiness(b *businesses.Business) *businesses.Business {
	clone := *b
	clone.Services = append([]businesses.ServiceTag{}, b.Services...)
	return &clone
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortedValues[T any](m map[string]T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
