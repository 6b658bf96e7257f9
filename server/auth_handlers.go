package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/ezekl/budget-server/authn"
	"github.com/ezekl/budget-server/quickbooks"
	"github.com/ezekl/budget-server/sessions"
)

// sessionCookieValue reads the raw signed cookie value, empty when absent.
func sessionCookieValue(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.config.GetCookieMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   s.env == "PROD" || getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginHandler starts the QuickBooks authorization flow: it binds a pending
// session to the browser via the cookie and redirects to the provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login, err := s.auth.BeginLogin(r.Context())
		if err != nil {
			if errors.Is(err, authn.ErrNotConfigured) {
				writeError(w, http.StatusServiceUnavailable, "QuickBooks credentials not configured")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to start login")
			return
		}
		s.setSessionCookie(w, r, login.CookieValue)
		http.Redirect(w, r, login.RedirectURL, http.StatusFound)
	}
}

// CallbackHandler completes the flow when QuickBooks redirects back.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		cookieValue, err := s.auth.CompleteCallback(
			r.Context(),
			query.Get("code"),
			query.Get("state"),
			query.Get("error"),
			query.Get("realmId"),
		)
		if err != nil {
			status, message := callbackErrorStatus(err)
			writeError(w, status, message)
			return
		}
		s.setSessionCookie(w, r, cookieValue)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func callbackErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, authn.ErrProviderDenied):
		return http.StatusBadRequest, "authorization was denied"
	case errors.Is(err, authn.ErrMissingCode):
		return http.StatusBadRequest, "authorization code missing"
	case errors.Is(err, authn.ErrCsrfState):
		return http.StatusBadRequest, "state verification failed, restart login"
	case errors.Is(err, authn.ErrNotConfigured):
		return http.StatusServiceUnavailable, "QuickBooks credentials not configured"
	}
	var provErr *quickbooks.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, "token exchange failed"
	}
	return http.StatusInternalServerError, "callback processing failed"
}

// StatusHandler reports the session standing without touching the provider.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.auth.Status(r.Context(), sessionCookieValue(r))

		var expiresAt *string
		if status.ExpiresAt != nil {
			formatted := status.ExpiresAt.UTC().Format(time.RFC3339)
			expiresAt = &formatted
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": status.Authenticated,
			"token_valid":   status.TokenValid,
			"realm_id":      status.RealmID,
			"expires_at":    expiresAt,
		})
	}
}

// RefreshHandler forces the access token back inside the freshness window.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.guard.Authorize(r.Context(), sessionCookieValue(r))
		if errors.Is(err, authn.ErrTokenExpired) {
			session, err = s.guard.RefreshIfNeeded(r.Context(), session.ID)
		}
		if err != nil {
			status, message := guardErrorStatus(err)
			writeError(w, status, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"token_expiry": session.TokenExpiry.UTC().Format(time.RFC3339),
			"expires_in":   int(time.Until(session.TokenExpiry).Seconds()),
		})
	}
}

// LogoutHandler ends the session. It always clears the cookie and reports
// success, even when there was nothing to log out of.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Logout(r.Context(), sessionCookieValue(r))
		s.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

func guardErrorStatus(err error) (int, string) {
	if errors.Is(err, authn.ErrUnauthenticated) {
		return http.StatusUnauthorized, "not authenticated"
	}
	var provErr *quickbooks.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, "upstream provider unavailable"
	}
	return http.StatusInternalServerError, "session lookup failed"
}

// requireSession authorizes the request, transparently refreshing a stale
// token. On failure it writes the error response and reports false.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (sessions.Session, bool) {
	session, err := s.guard.Authorize(r.Context(), sessionCookieValue(r))
	if errors.Is(err, authn.ErrTokenExpired) {
		session, err = s.guard.RefreshIfNeeded(r.Context(), session.ID)
	}
	if err != nil {
		status, message := guardErrorStatus(err)
		writeError(w, status, message)
		return sessions.Session{}, false
	}
	return session, true
}
