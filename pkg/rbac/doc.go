// Package rbac provides role-based access control for grinplace.
//
// # Overview
//
// Access is granted by static set membership. A Role carries a PermissionSet
// drawn from a fixed vocabulary, and every protected route declares the
// permissions it requires. There is no inheritance and no policy evaluation:
// a request is allowed only when the caller's role holds all of them.
//
// # Vocabulary
//
// The vocabulary is ordered and closed:
//
//	owner, manage_users, manage_roles, manage_businesses, manage_inventory,
//	manage_suppliers, manage_repairs, manage_sales, manage_customers,
//	manage_cash, manage_brands, manage_products, manage_services,
//	manage_reports, manage_settings, view_dashboard, view_reports,
//	execute_sales, execute_repairs, approve_budgets, manage_documents,
//	manage_tasks
//
// ParsePermissions rejects any token outside it.
//
// # Authorization Gate
//
//	if err := rbac.Authorize(user.Role, rbac.PermManageUsers); err != nil {
//	    // err is an apperrors Forbidden error
//	}
//
// Authorize performs no special-casing of role names. The owner role is
// simply seeded with every permission.
//
// # Roles
//
// Service enforces the role invariants:
//
//   - names are unique ignoring case (backed by a unique index on LOWER(name))
//   - the owner role cannot be created, read, modified or deleted through the API
//   - a role cannot be deleted while users reference it
//
// PostgresStore persists roles with permissions stored as a JSONB array.
package rbac
