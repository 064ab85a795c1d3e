package httpapi

import (
	"net/http"
	"strings"

	"seclock.org/internal/auth"
)

type createLockRequest struct {
	ID             string `json:"id"`
	OwnerPrivilege string `json:"owner_privilege"`
}

type setLockStateRequest struct {
	IsOpen *bool `json:"is_open"`
}

func (a *API) handleLocksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLocks(w, r)
	case http.MethodPost:
		a.createLock(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLockResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/locks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getLock(w, r, id)
	case http.MethodPut:
		a.setLockState(w, r, id)
	case http.MethodDelete:
		a.deleteLock(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listLocks(w http.ResponseWriter, r *http.Request) {
	items, err := a.locks.List(r.Context())
	if err != nil {
		handleLockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getLock(w http.ResponseWriter, r *http.Request, id string) {
	l, err := a.locks.Get(r.Context(), id)
	if err != nil {
		handleLockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) createLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req createLockRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.locks.Create(r.Context(), actor, req.ID, req.OwnerPrivilege)
	if err != nil {
		handleLockError(w, r, err)
		return
	}
	w.Header().Set("Location", "/locks/"+l.ID)
	writeJSON(w, http.StatusCreated, l)
}

// setLockState is the open/close transition. The body must carry an explicit
// boolean is_open; anything else is a 400 before any authorization runs.
func (a *API) setLockState(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var req setLockStateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsOpen == nil {
		writeError(w, r, http.StatusBadRequest, "is_open boolean is required")
		return
	}
	l, err := a.locks.SetState(r.Context(), actor, id, *req.IsOpen)
	if err != nil {
		handleLockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *API) deleteLock(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := a.locks.Delete(r.Context(), actor, id); err != nil {
		handleLockError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "lock " + id + " deleted"})
}
