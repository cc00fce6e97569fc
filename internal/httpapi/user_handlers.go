package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"eebook.org/internal/audit"
	"eebook.org/internal/auth"
	"eebook.org/internal/users"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type listUsersResponse struct {
	Items  []*users.User `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	idPart, action, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodDelete:
			a.deleteUser(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case "activate":
		a.transitionUser(w, r, id, "user.activate", a.users.Activate)
	case "deactivate":
		a.transitionUser(w, r, id, "user.deactivate", a.users.Deactivate)
	case "verify":
		a.transitionUser(w, r, id, "user.verify", a.users.VerifyEmail)
	case "password":
		a.changePassword(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	onlyActive := q.Get("active") == "true"

	items, err := a.users.List(r.Context(), onlyActive, limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "list failed")
		return
	}
	if items == nil {
		items = []*users.User{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Items: items, Limit: limit, Offset: offset})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleUsersError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := a.users.Remove(r.Context(), id); err != nil {
		handleUsersError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{
		"user_id": id.String(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) transitionUser(w http.ResponseWriter, r *http.Request, id uuid.UUID,
	event string, apply func(ctx context.Context, id uuid.UUID) error) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := apply(r.Context(), id); err != nil {
		handleUsersError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"user_id": id.String(),
	})
	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleUsersError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// Only the account owner may rotate their own password.
	if caller, ok := auth.UserIDFromContext(r.Context()); !ok || caller != id {
		writeError(w, r, http.StatusForbidden, "cannot change another user's password")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := a.users.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidCredentials):
			writeError(w, r, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, users.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "user not found")
		case errors.Is(err, users.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "password change failed")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "user.password_change", map[string]any{
		"user_id": id.String(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleUsersError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
