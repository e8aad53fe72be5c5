package auth

import "slices"

// RoleAuthorizer compares a caller's role with an operation's required set.
type RoleAuthorizer struct{}

// Authorize allows anyone when required is empty. Otherwise an empty caller
// role is ErrUnauthenticated and a role outside the set is a Rejection with
// ReasonInsufficientRole naming the required roles.
func (RoleAuthorizer) Authorize(required []Role, caller Role) error {
	if len(required) == 0 {
		return nil
	}
	if caller == "" {
		return ErrUnauthenticated
	}
	if slices.Contains(required, caller) {
		return nil
	}
	return &Rejection{
		Reason:        ReasonInsufficientRole,
		RequiredRoles: slices.Clone(required),
	}
}
