package auth

import (
	"context"
	"time"
)

// LoginEvent describes one login attempt. It never carries the password.
type LoginEvent struct {
	Username    string
	AccountID   string
	PrincipalID string
	Role        Role
	Success     bool
	Failure     string // FailureKind of the error, "" on success
	ClientAddr  string
	At          time.Time
}

// DecisionEvent describes one pipeline evaluation.
type DecisionEvent struct {
	Operation     string
	Kind          OperationKind
	Allowed       bool
	Anonymous     bool
	Reason        Reason // "" when allowed
	Code          string // client code when denied
	RequiredRoles []Role
	Subject       string
	Username      string
	Role          Role
	ClientAddr    string
	Latency       time.Duration
	At            time.Time
}

// EventSink receives security events. Implementations must not block the
// caller for long; the request is waiting.
type EventSink interface {
	LoginAttempted(ctx context.Context, e LoginEvent)
	AccessDecided(ctx context.Context, e DecisionEvent)
}

type nopSink struct{}

func (nopSink) LoginAttempted(context.Context, LoginEvent)   {}
func (nopSink) AccessDecided(context.Context, DecisionEvent) {}
