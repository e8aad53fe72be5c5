package auth

import (
	"context"
	"time"
)

// TokenVerifier decodes a bearer token. *TokenCodec implements it.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// Request is the auth-relevant slice of an incoming operation.
type Request struct {
	Operation   string
	CSRFCookie  string
	CSRFHeader  string
	BearerToken string // without the "Bearer " prefix
}

// Decision is the result of an allowed evaluation.
type Decision struct {
	Operation string
	Policy    OperationPolicy

	// Claims is nil when the caller is anonymous: no token, or an invalid
	// token on an operation that requires no roles.
	Claims *TokenClaims
}

// Pipeline runs CSRF check, token verification and role check in that order,
// stopping at the first failure.
type Pipeline struct {
	policies *PolicyTable
	csrf     *CSRFGuard
	tokens   TokenVerifier
	roles    RoleAuthorizer
	events   EventSink
	now      func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEventSink reports every decision to sink.
func WithEventSink(sink EventSink) PipelineOption {
	return func(p *Pipeline) {
		if sink != nil {
			p.events = sink
		}
	}
}

// WithClock overrides the clock used for event timestamps and latency.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline builds a pipeline whose CSRF exemptions come from policies.
func NewPipeline(policies *PolicyTable, tokens TokenVerifier, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		policies: policies,
		csrf:     NewCSRFGuard(policies.CSRFExemptions()...),
		tokens:   tokens,
		events:   nopSink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policies returns the table the pipeline consults.
func (p *Pipeline) Policies() *PolicyTable {
	return p.policies
}

// Evaluate decides whether req may proceed. A denial is returned as an error
// matching one of the Err* rejections; the first failing stage wins.
//
// An empty bearer token skips verification entirely.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) (*Decision, error) {
	start := p.now()
	policy := p.policies.Lookup(req.Operation)

	claims, err := p.evaluate(policy, req)

	p.emit(ctx, req.Operation, policy, claims, err, start)
	if err != nil {
		return nil, err
	}
	return &Decision{Operation: req.Operation, Policy: policy, Claims: claims}, nil
}

func (p *Pipeline) evaluate(policy OperationPolicy, req Request) (*TokenClaims, error) {
	if err := p.csrf.CheckOperation(req.Operation, policy.Kind, req.CSRFCookie, req.CSRFHeader); err != nil {
		return nil, err
	}

	var claims *TokenClaims
	if req.BearerToken != "" {
		// An invalid token downgrades the caller to anonymous; the role
		// stage then denies if the operation needs a role.
		if c, err := p.tokens.Verify(req.BearerToken); err == nil {
			claims = c
		}
	}

	var role Role
	if claims != nil {
		role = claims.Role
	}
	// Claims are returned alongside a role denial so the event names the caller.
	return claims, p.roles.Authorize(policy.RequiredRoles, role)
}

func (p *Pipeline) emit(ctx context.Context, op string, policy OperationPolicy, claims *TokenClaims, err error, start time.Time) {
	now := p.now()
	e := DecisionEvent{
		Operation:     op,
		Kind:          policy.Kind,
		Allowed:       err == nil,
		Anonymous:     claims == nil,
		RequiredRoles: policy.RequiredRoles,
		ClientAddr:    ClientAddrFromContext(ctx),
		Latency:       now.Sub(start),
		At:            now,
	}
	if claims != nil {
		e.Subject = claims.Subject
		e.Username = claims.Username
		e.Role = claims.Role
	}
	if rej, ok := AsRejection(err); ok {
		e.Reason = rej.Reason
		e.Code = rej.Code()
	}
	p.events.AccessDecided(ctx, e)
}
