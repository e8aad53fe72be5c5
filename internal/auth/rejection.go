package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Reason identifies why a request was denied.
type Reason string

const (
	ReasonCSRFTokenMissing  Reason = "csrf_token_missing"
	ReasonCSRFTokenMismatch Reason = "csrf_token_mismatch"
	ReasonUnknownOperation  Reason = "unknown_operation"
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonInsufficientRole  Reason = "insufficient_role"
)

// Stable client-facing error codes.
const (
	CodeCSRFTokenMissing = "CSRF_TOKEN_MISSING"
	CodeCSRFTokenInvalid = "CSRF_TOKEN_INVALID"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
)

// Rejection is the error returned when the pipeline denies a request.
// Match a reason with errors.Is against the Err* values below; extract the
// details with errors.As.
type Rejection struct {
	Reason        Reason
	RequiredRoles []Role // set only for ReasonInsufficientRole
}

// Sentinel rejections for errors.Is.
var (
	ErrCSRFTokenMissing  = &Rejection{Reason: ReasonCSRFTokenMissing}
	ErrCSRFTokenMismatch = &Rejection{Reason: ReasonCSRFTokenMismatch}
	ErrUnknownOperation  = &Rejection{Reason: ReasonUnknownOperation}
	ErrUnauthenticated   = &Rejection{Reason: ReasonUnauthenticated}
	ErrInsufficientRole  = &Rejection{Reason: ReasonInsufficientRole}
)

func (r *Rejection) Error() string {
	if r.Reason == ReasonInsufficientRole && len(r.RequiredRoles) > 0 {
		return fmt.Sprintf("access denied: %s (requires one of %s)", r.Reason, joinRoles(r.RequiredRoles))
	}
	return "access denied: " + string(r.Reason)
}

// Is matches any Rejection with the same Reason.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// Code returns the stable client-facing code for the reason.
// CSRF mismatch and unknown-operation share codes with other reasons;
// only server logs tell them apart.
func (r *Rejection) Code() string {
	switch r.Reason {
	case ReasonCSRFTokenMissing:
		return CodeCSRFTokenMissing
	case ReasonCSRFTokenMismatch:
		return CodeCSRFTokenInvalid
	case ReasonUnauthenticated:
		return CodeUnauthenticated
	default:
		return CodeForbidden
	}
}

// Message is a client-safe description.
func (r *Rejection) Message() string {
	switch r.Reason {
	case ReasonCSRFTokenMissing:
		return "CSRF token missing"
	case ReasonCSRFTokenMismatch:
		return "CSRF token invalid"
	case ReasonUnauthenticated:
		return "authentication required"
	case ReasonInsufficientRole:
		return "insufficient role"
	default:
		return "operation not permitted"
	}
}

// Details returns the optional payload for the client, or nil.
// Only role rejections carry one: the operation's required roles.
func (r *Rejection) Details() map[string]any {
	if r.Reason != ReasonInsufficientRole || len(r.RequiredRoles) == 0 {
		return nil
	}
	roles := make([]string, len(r.RequiredRoles))
	for i, role := range r.RequiredRoles {
		roles[i] = string(role)
	}
	return map[string]any{"requiredRoles": roles}
}

// AsRejection unwraps err to a *Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
