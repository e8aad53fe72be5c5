package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
)

// defaultCSRFCookieTTL applies when the configured TTL is not positive.
const defaultCSRFCookieTTL = 12 * time.Hour

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
// AccessToken is null for every credential failure.
type loginResponse struct {
	AccessToken *string `json:"accessToken"`
}

// csrfResponse is the response body for GET /auth/csrf.
type csrfResponse struct {
	CSRFToken string `json:"csrfToken"`
}

// handleCSRFToken mints a CSRF token, sets it as a script-readable cookie and
// echoes it in the body.
func (s *Server) handleCSRFToken(w http.ResponseWriter, _ *http.Request) {
	token, err := auth.NewCSRFToken()
	if err != nil {
		s.logger.Error("generating csrf token failed", "error", err)
		writeInternalError(w, "failed to generate csrf token")
		return
	}

	http.SetCookie(w, s.csrfCookie(token, s.csrfTTL()))
	writeJSON(w, http.StatusOK, csrfResponse{CSRFToken: token})
}

// handleLogin exchanges a username and password for an access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeInternalError(w, "login temporarily unavailable")
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, loginResponse{})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: &result.AccessToken})
}

// handleLogout clears the CSRF cookie. Tokens are stateless, so discarding the
// access token is up to the client.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	entry := &audit.AuditLog{
		Action:     audit.ActionLogout,
		Operation:  auth.OpLogout,
		Outcome:    audit.OutcomeSuccess,
		RemoteAddr: auth.ClientAddrFromContext(r.Context()),
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		entry.Username = claims.Username
		entry.Subject = claims.Subject
		entry.Role = string(claims.Role)
	}
	s.record(r, entry)

	http.SetCookie(w, s.csrfCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller's verified claims.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		// Unreachable while the me policy requires a role.
		writeRejection(w, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

// csrfCookie builds the CSRF cookie. A negative ttl deletes it.
// The cookie is not HttpOnly: the client reads it to fill the CSRF header.
func (s *Server) csrfCookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     s.csrfCfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: false,
		Secure:   s.csrfCfg.Secure,
		SameSite: parseSameSite(s.csrfCfg.SameSite),
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func (s *Server) csrfTTL() time.Duration {
	if s.csrfCfg.CookieTTLMinutes <= 0 {
		return defaultCSRFCookieTTL
	}
	return time.Duration(s.csrfCfg.CookieTTLMinutes) * time.Minute
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// record forwards an audit entry to the recorder, if one is configured.
func (s *Server) record(r *http.Request, entry *audit.AuditLog) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(r.Context(), entry)
}
