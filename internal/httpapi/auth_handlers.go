package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"eebook.org/internal/audit"
	"eebook.org/internal/auth"
	"eebook.org/internal/users"
)

const refreshCookieName = "refresh_token"

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User   *users.User     `json:"user,omitempty"`
	Tokens *auth.TokenPair `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Register(r.Context(), users.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrUsernameTaken):
			writeError(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, users.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "user.register", map[string]any{
		"user_id": u.ID.String(),
		"email":   u.Email,
	})
	w.Header().Set("Location", "/v1/users/"+u.ID.String())
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			_ = audit.LogEvent(r.Context(), "auth.login_failed", map[string]any{
				"email": req.Email,
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, users.ErrInactive):
			writeError(w, r, http.StatusForbidden, "account deactivated")
		default:
			writeError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	pair, err := a.auth.CreateTokenPair(r.Context(), u.ID, fingerprint(r))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session creation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": u.ID.String(),
	})
	a.setRefreshCookie(w, pair.RefreshHandle, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{User: u, Tokens: pair})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	handle := a.refreshHandle(w, r)
	if handle == "" {
		writeError(w, r, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := a.auth.RefreshTokenPair(r.Context(), handle, fingerprint(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			// Reuse of a rotated or revoked handle is a signal worth
			// keeping in the audit trail.
			_ = audit.LogEvent(r.Context(), "auth.refresh_rejected", nil)
			a.clearRefreshCookie(w)
			writeError(w, r, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	a.setRefreshCookie(w, pair.RefreshHandle, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{Tokens: pair})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	handle := a.refreshHandle(w, r)
	token := tokenFromContext(r.Context())

	revoked, err := a.auth.RevokeTokenPair(r.Context(), token, handle)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"revoked": revoked,
	})
	a.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	u, err := a.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// refreshHandle prefers the HTTP-only cookie and falls back to a JSON
// body for non-browser clients. An empty result means neither was sent.
func (a *API) refreshHandle(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (a *API) setRefreshCookie(w http.ResponseWriter, handle string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    handle,
		Path:     "/v1/auth",
		Domain:   a.cookies.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		Domain:   a.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// fingerprint ties a refresh token to the client that obtained it: the
// client IP plus a digest of the user agent.
func fingerprint(r *http.Request) string {
	sum := sha256.Sum256([]byte(r.UserAgent()))
	return clientIP(r) + ":" + hex.EncodeToString(sum[:8])
}
