package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// OperationKind classifies an operation for CSRF purposes.
type OperationKind string

const (
	// KindQuery operations are read-only and never CSRF-checked.
	KindQuery OperationKind = "query"

	// KindMutation operations change state and need a matching token pair.
	KindMutation OperationKind = "mutation"

	// KindSubscription is recognised but always denied: there is no
	// streaming surface to protect it.
	KindSubscription OperationKind = "subscription"

	// KindUnknown is what unregistered operations resolve to.
	KindUnknown OperationKind = "unknown"
)

// csrfTokenBytes is the entropy of a freshly minted CSRF token.
const csrfTokenBytes = 32

// CSRFGuard enforces the double-submit pattern: on mutations the cookie value
// and header value must both be present and byte-identical.
//
// The exemption set is fixed at construction and keyed by operation id.
type CSRFGuard struct {
	exempt map[string]struct{}
}

// NewCSRFGuard returns a guard that lets the named mutations through without tokens.
func NewCSRFGuard(exemptOperations ...string) *CSRFGuard {
	g := &CSRFGuard{exempt: make(map[string]struct{}, len(exemptOperations))}
	for _, op := range exemptOperations {
		g.exempt[op] = struct{}{}
	}
	return g
}

// Exempt reports whether operation skips the token comparison.
func (g *CSRFGuard) Exempt(operation string) bool {
	_, ok := g.exempt[operation]
	return ok
}

// Check applies the double-submit rule for an operation of the given kind.
//
// Queries are always allowed. Mutations need both tokens (ErrCSRFTokenMissing)
// and they must match in constant time (ErrCSRFTokenMismatch). Any other kind
// is ErrUnknownOperation.
func (g *CSRFGuard) Check(kind OperationKind, cookieToken, headerToken string) error {
	switch kind {
	case KindQuery:
		return nil
	case KindMutation:
		if cookieToken == "" || headerToken == "" {
			return ErrCSRFTokenMissing
		}
		// ConstantTimeCompare rejects differing lengths up front and otherwise
		// visits every byte.
		if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
			return ErrCSRFTokenMismatch
		}
		return nil
	default:
		return ErrUnknownOperation
	}
}

// CheckOperation is Check with the exemption list applied to mutations.
func (g *CSRFGuard) CheckOperation(operation string, kind OperationKind, cookieToken, headerToken string) error {
	if kind == KindMutation && g.Exempt(operation) {
		return nil
	}
	return g.Check(kind, cookieToken, headerToken)
}

// NewCSRFToken returns a random URL-safe token for the CSRF cookie.
func NewCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
