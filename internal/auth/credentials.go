package auth

import (
	"context"
	"errors"
	"fmt"
)

// AccountLookup finds a credential by exact username.
// A miss must be reported as ErrAccountNotFound.
type AccountLookup interface {
	FindByUsername(ctx context.Context, username string) (*Credential, error)
}

// CredentialVerifier checks a username/password pair against stored hashes.
// It holds no mutable state and is safe for concurrent use.
type CredentialVerifier struct {
	accounts AccountLookup
}

// NewCredentialVerifier creates a verifier backed by the given lookup.
func NewCredentialVerifier(accounts AccountLookup) *CredentialVerifier {
	return &CredentialVerifier{accounts: accounts}
}

// Verify returns the caller's Identity when the username exists, the account
// is active and the password matches.
//
// Failures are ErrAccountNotFound, ErrAccountInactive or ErrBadPassword (all
// matching ErrInvalidCredentials), or an error wrapping ErrInfrastructure when
// the lookup fails or the stored hash cannot be parsed.
//
// Inactive accounts are rejected before the password is hashed.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*Identity, error) {
	cred, err := v.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: looking up account: %w", ErrInfrastructure, err)
	}

	if !cred.Active {
		return nil, ErrAccountInactive
	}

	ok, err := VerifyPassword(password, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %w", ErrInfrastructure, cred.AccountID, err)
	}
	if !ok {
		return nil, ErrBadPassword
	}

	return &Identity{
		AccountID:   cred.AccountID,
		PrincipalID: cred.PrincipalID,
		Username:    cred.Username,
		Email:       cred.Email,
	}, nil
}
