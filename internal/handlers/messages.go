package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eldtechnologies/chats/internal/access"
	"github.com/eldtechnologies/chats/internal/models"
)

// ListMessages returns the messages visible to the requester, oldest first.
// The optional conversation_id query parameter narrows the result.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	convID, err := conversationQuery(r)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	msgs, err := h.messages.List(r.Context(), user.ID, convID, page)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.writeMessages(w, msgs)
}

// RecentMessages returns the newest visible messages, newest first.
func (h *Handler) RecentMessages(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	convID, err := conversationQuery(r)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	msgs, err := h.messages.Recent(r.Context(), user.ID, convID)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.writeMessages(w, msgs)
}

// CreateMessage posts a message as the requester. Any sender in the body is ignored.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	var req access.CreateMessageInput
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	msg, err := h.messages.Create(r.Context(), user.ID, req)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, msg)
}

// GetMessage returns a single message visible to the requester.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	user := h.requester(w, r)
	if user == nil {
		return
	}

	msg, err := h.messages.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, msg)
}

func (h *Handler) writeMessages(w http.ResponseWriter, msgs []models.Message) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	h.JSON(w, http.StatusOK, msgs)
}

// conversationQuery parses the optional conversation_id query parameter.
// A malformed id names no conversation and is reported as not found.
func conversationQuery(r *http.Request) (*uuid.UUID, error) {
	s := r.URL.Query().Get("conversation_id")
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, access.ErrNotFound
	}
	return &id, nil
}
