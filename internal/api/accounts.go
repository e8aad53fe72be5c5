package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
)

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// handleListAccounts returns all accounts with their roles.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		s.logger.Error("list accounts failed", "error", err)
		writeInternalError(w, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// handleSetAccountActive enables or disables an account.
func (s *Server) handleSetAccountActive(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Active == nil {
		writeBadRequest(w, "active is required")
		return
	}

	if err := s.accounts.SetActive(r.Context(), username, *req.Active); err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			writeNotFound(w, "account not found")
			return
		}
		s.logger.Error("set account active failed", "username", username, "error", err)
		writeInternalError(w, "failed to update account")
		return
	}

	entry := &audit.AuditLog{
		Action:     audit.ActionAccountEdit,
		Operation:  auth.OpSetAccountActive,
		Outcome:    audit.OutcomeSuccess,
		RemoteAddr: auth.ClientAddrFromContext(r.Context()),
		Details:    map[string]any{"target": username, "active": *req.Active},
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		entry.Username = claims.Username
		entry.Subject = claims.Subject
		entry.Role = string(claims.Role)
	}
	s.record(r, entry)

	writeJSON(w, http.StatusOK, map[string]any{
		"username": username,
		"active":   *req.Active,
	})
}
