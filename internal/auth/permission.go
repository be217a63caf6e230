package auth

import (
	"context"
	"errors"
	"fmt"
)

// PermissionChecker answers "does user U hold permission P" by
// traversing user → roles → permissions through the read-only
// stores. Absence of data anywhere in the chain means "no
// permission", never an error: the caller cannot distinguish
// "denied" from "misconfigured", which keeps authorization fail
// closed by default. Only transport failures surface, wrapped as
// ErrStoreUnavailable.
//
// The traversal performs one store round-trip per role and per
// permission on every check.
type PermissionChecker struct {
	users UserStore
	roles RoleStore
	perms PermissionStore
}

// NewPermissionChecker wires the resolver with its collaborators.
func NewPermissionChecker(users UserStore, roles RoleStore, perms PermissionStore) *PermissionChecker {
	return &PermissionChecker{users: users, roles: roles, perms: perms}
}

// HasPermission reports whether the user holds a permission with
// exactly the given name (case-sensitive). Role order is not
// significant; the first matching permission wins.
func (p *PermissionChecker) HasPermission(ctx context.Context, userID, permissionName string) (bool, error) {
	u, err := p.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(u.RoleIDs) == 0 {
		return false, nil
	}

	for _, roleID := range u.RoleIDs {
		role, err := p.roles.FindByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Dangling role assignment; skip rather than fail the check.
				continue
			}
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for _, permID := range role.PermissionIDs {
			perm, err := p.perms.FindByID(ctx, permID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			if perm.Name == permissionName {
				return true, nil
			}
		}
	}
	return false, nil
}
