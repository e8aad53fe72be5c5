package events

import (
	"time"

	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
)

// securityEvent is the MQTT payload. It never carries tokens or passwords.
type securityEvent struct {
	Type          string    `json:"type"`
	Operation     string    `json:"operation,omitempty"`
	Username      string    `json:"username,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Role          string    `json:"role,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Code          string    `json:"code,omitempty"`
	RequiredRoles []string  `json:"required_roles,omitempty"`
	ClientAddr    string    `json:"client_addr,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func loginPayload(eventType string, e auth.LoginEvent) securityEvent {
	return securityEvent{
		Type:       eventType,
		Operation:  auth.OpLogin,
		Username:   e.Username,
		Subject:    e.PrincipalID,
		Reason:     e.Failure,
		ClientAddr: e.ClientAddr,
		Timestamp:  e.At.UTC(),
	}
}

func decisionPayload(e auth.DecisionEvent) securityEvent {
	return securityEvent{
		Type:          TypeAccessDenied,
		Operation:     e.Operation,
		Username:      e.Username,
		Subject:       e.Subject,
		Role:          string(e.Role),
		Reason:        string(e.Reason),
		Code:          e.Code,
		RequiredRoles: roleNames(e.RequiredRoles),
		ClientAddr:    e.ClientAddr,
		Timestamp:     e.At.UTC(),
	}
}

func loginAuditEntry(e auth.LoginEvent) *audit.AuditLog {
	entry := &audit.AuditLog{
		Action:     audit.ActionLogin,
		Operation:  auth.OpLogin,
		Username:   e.Username,
		Subject:    e.PrincipalID,
		Role:       string(e.Role),
		Outcome:    audit.OutcomeSuccess,
		RemoteAddr: e.ClientAddr,
		CreatedAt:  e.At,
	}
	if !e.Success {
		entry.Outcome = audit.OutcomeFailure
		entry.Details = map[string]any{"failure": e.Failure}
	}
	return entry
}

func decisionAuditEntry(e auth.DecisionEvent) *audit.AuditLog {
	entry := &audit.AuditLog{
		Action:     audit.ActionAuthorize,
		Operation:  e.Operation,
		Username:   e.Username,
		Subject:    e.Subject,
		Role:       string(e.Role),
		Outcome:    audit.OutcomeAllowed,
		RemoteAddr: e.ClientAddr,
		CreatedAt:  e.At,
	}
	if !e.Allowed {
		entry.Outcome = audit.OutcomeDenied
		entry.Code = e.Code
		entry.Details = map[string]any{"reason": string(e.Reason)}
		if len(e.RequiredRoles) > 0 {
			entry.Details["required_roles"] = roleNames(e.RequiredRoles)
		}
	}
	return entry
}

func roleNames(roles []auth.Role) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
