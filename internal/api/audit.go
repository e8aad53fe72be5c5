package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/edugate-core/internal/audit"
)

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: login, logout, authorize, account.update
//   - outcome: allowed, denied, success, failure
//   - username: exact username
//   - since: RFC 3339 timestamp
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

var (
	auditActions  = []string{audit.ActionLogin, audit.ActionLogout, audit.ActionAuthorize, audit.ActionAccountEdit}
	auditOutcomes = []string{audit.OutcomeAllowed, audit.OutcomeDenied, audit.OutcomeSuccess, audit.OutcomeFailure}
)

func parseAuditFilter(q url.Values) (audit.Filter, error) {
	filter := audit.Filter{
		Action:   q.Get("action"),
		Outcome:  q.Get("outcome"),
		Username: q.Get("username"),
	}
	if filter.Action != "" && !slices.Contains(auditActions, filter.Action) {
		return filter, fmt.Errorf("action must be one of %s", strings.Join(auditActions, ", "))
	}
	if filter.Outcome != "" && !slices.Contains(auditOutcomes, filter.Outcome) {
		return filter, fmt.Errorf("outcome must be one of %s", strings.Join(auditOutcomes, ", "))
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.Since = t
	}

	var err error
	if filter.Limit, err = nonNegative(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = nonNegative(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

// nonNegative parses an optional integer query parameter. Absent means zero.
func nonNegative(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
