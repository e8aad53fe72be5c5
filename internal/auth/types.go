package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is the authorisation tier carried by a principal and its tokens.
type Role string

const (
	// RoleAdmin manages accounts and reads the audit trail.
	RoleAdmin Role = "ADMIN"

	// RoleTeacher can read the audit trail for their courses.
	RoleTeacher Role = "TEACHER"

	// RoleStudent is the lowest-privilege role and the issuance default
	// when a credential has no principal record.
	RoleStudent Role = "STUDENT"

	// RoleStakeholder is an external party (parent, sponsor) with read access.
	RoleStakeholder Role = "STAKEHOLDER"
)

// AllRoles lists every valid role, highest privilege first.
var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleStakeholder}

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool {
	for _, v := range AllRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Credential is a stored login record. PrincipalID may be empty for
// accounts that were never linked to a principal.
type Credential struct {
	AccountID    string    `json:"account_id"`
	PrincipalID  string    `json:"principal_id,omitempty"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Active       bool      `json:"active"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the role-bearing identity behind a credential.
type Principal struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a credential joined with its principal's role, for listings.
type Account struct {
	Credential
	Role Role `json:"role,omitempty"`
}

// Identity is what a successful credential check yields.
// It never carries the password hash.
type Identity struct {
	AccountID   string
	PrincipalID string
	Username    string
	Email       string
}

// TokenClaims are the decoded contents of a verified bearer token.
type TokenClaims struct {
	Subject   string    `json:"sub"` // principal ID
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	AccountID string    `json:"accountId"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Sentinel errors for auth operations.
//
// The three credential failures all match ErrInvalidCredentials so callers
// can collapse them with a single errors.Is check.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = fmt.Errorf("%w: account not found", ErrInvalidCredentials)
	ErrAccountInactive    = fmt.Errorf("%w: account is inactive", ErrInvalidCredentials)
	ErrBadPassword        = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)

	ErrInfrastructure    = errors.New("auth infrastructure failure")
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrUsernameExists    = errors.New("username already exists")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidRole       = errors.New("invalid role")
)

// FailureKind names a login failure for logs, audit rows and metrics.
// It returns "" for nil.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrAccountInactive):
		return "inactive"
	case errors.Is(err, ErrBadPassword):
		return "bad_password"
	default:
		return "infrastructure"
	}
}
