package auth

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Operation identifiers served by the HTTP API.
const (
	OpCSRFToken        = "csrfToken"
	OpLogin            = "login"
	OpLogout           = "logout"
	OpMe               = "me"
	OpListAccounts     = "listAccounts"
	OpSetAccountActive = "setAccountActive"
	OpAuditLog         = "auditLog"
	OpSystemMetrics    = "systemMetrics"
)

// OperationPolicy is the static access rule for one operation.
type OperationPolicy struct {
	Kind          OperationKind
	RequiredRoles []Role // empty means public
	CSRFExempt    bool   // only meaningful for mutations
}

// PolicyTable maps operation ids to policies. It is immutable once built.
type PolicyTable struct {
	ops map[string]OperationPolicy
}

// NewPolicyTable validates policies and copies them into a table.
func NewPolicyTable(policies map[string]OperationPolicy) (*PolicyTable, error) {
	t := &PolicyTable{ops: make(map[string]OperationPolicy, len(policies))}
	var errs []error

	for id, p := range policies {
		if id == "" {
			errs = append(errs, errors.New("empty operation id"))
			continue
		}
		switch p.Kind {
		case KindQuery, KindMutation, KindSubscription:
		default:
			errs = append(errs, fmt.Errorf("operation %s: invalid kind %q", id, p.Kind))
		}
		if p.CSRFExempt && p.Kind != KindMutation {
			errs = append(errs, fmt.Errorf("operation %s: csrf exemption only applies to mutations", id))
		}
		for _, r := range p.RequiredRoles {
			if !r.Valid() {
				errs = append(errs, fmt.Errorf("operation %s: %w: %q", id, ErrInvalidRole, r))
			}
		}

		p.RequiredRoles = slices.Clone(p.RequiredRoles)
		t.ops[id] = p
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup returns the policy for operation. Unregistered ids get KindUnknown,
// which the CSRF stage denies.
func (t *PolicyTable) Lookup(operation string) OperationPolicy {
	p, ok := t.ops[operation]
	if !ok {
		return OperationPolicy{Kind: KindUnknown}
	}
	p.RequiredRoles = slices.Clone(p.RequiredRoles)
	return p
}

// Operations returns the registered ids in sorted order.
func (t *PolicyTable) Operations() []string {
	ids := make([]string, 0, len(t.ops))
	for id := range t.ops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CSRFExemptions returns the ids of mutations that skip the CSRF check.
func (t *PolicyTable) CSRFExemptions() []string {
	var ids []string
	for _, id := range t.Operations() {
		if t.ops[id].CSRFExempt {
			ids = append(ids, id)
		}
	}
	return ids
}

// DefaultPolicies describes the built-in API surface.
//
// login is CSRF-exempt because it runs before the client has a CSRF cookie.
func DefaultPolicies() map[string]OperationPolicy {
	return map[string]OperationPolicy{
		OpCSRFToken:        {Kind: KindQuery},
		OpLogin:            {Kind: KindMutation, CSRFExempt: true},
		OpLogout:           {Kind: KindMutation},
		OpMe:               {Kind: KindQuery, RequiredRoles: AllRoles},
		OpListAccounts:     {Kind: KindQuery, RequiredRoles: []Role{RoleAdmin}},
		OpSetAccountActive: {Kind: KindMutation, RequiredRoles: []Role{RoleAdmin}},
		OpAuditLog:         {Kind: KindQuery, RequiredRoles: []Role{RoleAdmin, RoleTeacher}},
		OpSystemMetrics:    {Kind: KindQuery, RequiredRoles: []Role{RoleAdmin}},
	}
}
