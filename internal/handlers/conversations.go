package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eldtechnologies/chats/internal/access"
	"github.com/eldtechnologies/chats/internal/models"
)

// AddParticipantRequest represents the add_participant request body.
type AddParticipantRequest struct {
	UserID string `json:"user_id"`
}

// StatusResponse acknowledges an action without returning a resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// ListConversations returns the conversations the requester participates in.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	page, err := parsePage(r)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	convs, err := h.conversations.List(r.Context(), user.ID, page)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	h.JSON(w, http.StatusOK, convs)
}

// CreateConversation creates a conversation with the requester as a participant.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	var req access.CreateConversationInput
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	conv, err := h.conversations.Create(r.Context(), user.ID, req)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, conv)
}

// GetConversation returns a single conversation visible to the requester.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	id, ok := conversationParam(r)
	if !ok {
		h.Fail(w, r, access.ErrNotFound)
		return
	}

	conv, err := h.conversations.Get(r.Context(), user.ID, id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, conv)
}

// UpdateConversation changes the title of a conversation.
func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	id, ok := conversationParam(r)
	if !ok {
		h.Fail(w, r, access.ErrNotFound)
		return
	}

	var req access.UpdateConversationInput
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	conv, err := h.conversations.Update(r.Context(), user.ID, id, req)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, conv)
}

// DeleteConversation removes a conversation with its participants and messages.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	id, ok := conversationParam(r)
	if !ok {
		h.Fail(w, r, access.ErrNotFound)
		return
	}

	if err := h.conversations.Delete(r.Context(), user.ID, id); err != nil {
		h.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddParticipant adds a user to a conversation.
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	id, ok := conversationParam(r)
	if !ok {
		h.Fail(w, r, access.ErrNotFound)
		return
	}

	var req AddParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	if err := h.conversations.AddParticipant(r.Context(), user.ID, id, req.UserID); err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, StatusResponse{Status: "participant added"})
}

// conversationParam parses the {id} URL parameter. A malformed id cannot
// name any conversation, so callers treat it as not found.
func conversationParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}
