package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenExpiry is used when TokenConfig.Expiry is not positive.
const DefaultTokenExpiry = time.Hour

// minSecretLength matches the HS256 key size.
const minSecretLength = 32

// RoleLookup resolves a principal's current role.
// A missing principal must be reported as ErrPrincipalNotFound.
type RoleLookup interface {
	RoleForPrincipal(ctx context.Context, principalID string) (Role, error)
}

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string // optional; checked on verify when set

	// Now overrides the clock, mainly for expiry tests.
	Now func() time.Time
}

// TokenCodec issues and verifies HS256 bearer tokens.
// The secret is read-only after construction, so a codec is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	expiry time.Duration
	issuer string
	roles  RoleLookup
	now    func() time.Time
	parser *jwt.Parser
}

// wireClaims is the JSON body of the token.
type wireClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	AccountID string `json:"accountId"`
}

// NewTokenCodec validates cfg and builds a codec that reads roles from roles.
func NewTokenCodec(cfg TokenConfig, roles RoleLookup) (*TokenCodec, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	if roles == nil {
		return nil, errors.New("role lookup is required")
	}

	c := &TokenCodec{
		secret: []byte(cfg.Secret),
		expiry: cfg.Expiry,
		issuer: cfg.Issuer,
		roles:  roles,
		now:    cfg.Now,
	}
	if c.expiry <= 0 {
		c.expiry = DefaultTokenExpiry
	}
	if c.now == nil {
		c.now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	c.parser = jwt.NewParser(opts...)

	return c, nil
}

// Expiry returns the lifetime of issued tokens.
func (c *TokenCodec) Expiry() time.Duration {
	return c.expiry
}

// Issue signs a token for id. The role is read from the role lookup at call
// time; a principal with no record gets RoleStudent. Other lookup failures
// wrap ErrInfrastructure.
func (c *TokenCodec) Issue(ctx context.Context, id Identity) (string, *TokenClaims, error) {
	role, err := c.roleFor(ctx, id.PrincipalID)
	if err != nil {
		return "", nil, err
	}

	now := c.now()
	claims := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.PrincipalID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
		},
		Username:  id.Username,
		Email:     id.Email,
		Role:      role,
		AccountID: id.AccountID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing access token: %w", err)
	}
	return signed, claims.toTokenClaims(), nil
}

func (c *TokenCodec) roleFor(ctx context.Context, principalID string) (Role, error) {
	if principalID == "" {
		return RoleStudent, nil
	}
	role, err := c.roles.RoleForPrincipal(ctx, principalID)
	switch {
	case errors.Is(err, ErrPrincipalNotFound):
		return RoleStudent, nil
	case err != nil:
		return "", fmt.Errorf("%w: looking up role: %w", ErrInfrastructure, err)
	case !role.Valid():
		return "", fmt.Errorf("%w: principal %s has unknown role %q", ErrInfrastructure, principalID, role)
	}
	return role, nil
}

// Verify checks signature, algorithm and expiry. Every failure wraps
// ErrTokenInvalid; callers must not expose the cause to clients.
func (c *TokenCodec) Verify(token string) (*TokenClaims, error) {
	var claims wireClaims
	parsed, err := c.parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("%w: missing accountId", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", ErrTokenInvalid)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", ErrTokenInvalid)
	}

	return claims.toTokenClaims(), nil
}

func (w wireClaims) toTokenClaims() *TokenClaims {
	tc := &TokenClaims{
		Subject:   w.Subject,
		Username:  w.Username,
		Email:     w.Email,
		Role:      w.Role,
		AccountID: w.AccountID,
	}
	if w.IssuedAt != nil {
		tc.IssuedAt = w.IssuedAt.UTC()
	}
	if w.ExpiresAt != nil {
		tc.ExpiresAt = w.ExpiresAt.UTC()
	}
	return tc
}
