package rbac

import (
	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

// Authorize allows the request when role grants every required permission.
// It decides on set membership alone; neither the role name nor its active
// flag carries meaning here.
func Authorize(role *Role, required ...Permission) error {
	if role == nil || len(role.Permissions) == 0 {
		return apperrors.NewForbidden("no permissions assigned")
	}
	if missing := role.Permissions.Missing(required...); len(missing) > 0 {
		return apperrors.NewForbidden("insufficient permissions")
	}
	return nil
}
