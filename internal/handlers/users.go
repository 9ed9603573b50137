package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}
	h.JSON(w, http.StatusOK, user)
}

// GetUser handles user profile lookup.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}
	h.JSON(w, http.StatusOK, user)
}
