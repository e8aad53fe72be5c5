package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// LoginResult is returned for a successful login.
type LoginResult struct {
	AccessToken string       `json:"accessToken"`
	Claims      *TokenClaims `json:"-"`
}

// Authenticator turns a username/password pair into a signed access token.
type Authenticator struct {
	verifier *CredentialVerifier
	codec    *TokenCodec
	events   EventSink
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthenticator wires a verifier to a codec. sink and logger may be nil.
func NewAuthenticator(verifier *CredentialVerifier, codec *TokenCodec, sink EventSink, logger *slog.Logger) *Authenticator {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		verifier: verifier,
		codec:    codec,
		events:   sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Login returns (nil, nil) for any credential failure so callers cannot tell
// unknown users, inactive accounts and wrong passwords apart. Infrastructure
// faults are returned as errors wrapping ErrInfrastructure.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	event := LoginEvent{
		Username:   username,
		ClientAddr: ClientAddrFromContext(ctx),
	}

	id, err := a.verifier.Verify(ctx, username, password)
	if err != nil {
		event.Failure = FailureKind(err)
		event.At = a.now()
		a.events.LoginAttempted(ctx, event)

		if errors.Is(err, ErrInvalidCredentials) {
			a.logger.Info("login rejected", "username", username, "reason", event.Failure)
			return nil, nil
		}
		a.logger.Error("login failed on infrastructure fault", "username", username, "error", err)
		return nil, err
	}

	event.AccountID = id.AccountID
	event.PrincipalID = id.PrincipalID

	token, claims, err := a.codec.Issue(ctx, *id)
	if err != nil {
		event.Failure = FailureKind(err)
		event.At = a.now()
		a.events.LoginAttempted(ctx, event)
		a.logger.Error("issuing token failed", "username", username, "error", err)
		return nil, err
	}

	event.Success = true
	event.Role = claims.Role
	event.At = a.now()
	a.events.LoginAttempted(ctx, event)
	a.logger.Info("login succeeded", "username", username, "role", claims.Role)

	return &LoginResult{AccessToken: token, Claims: claims}, nil
}
