package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/access"
	"github.com/eldtechnologies/chats/internal/api/middleware"
	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

// maxPageSize caps the limit query parameter on list endpoints.
const maxPageSize = 500

var errInvalidJSON = errors.New("invalid JSON body")

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db            store.DataStore
	redis         *store.RedisStore
	tokens        *crypto.TokenIssuer
	conversations *access.Conversations
	messages      *access.Messages
	log           zerolog.Logger
}

// Options configures a Handler.
type Options struct {
	OpenInvites bool
}

// NewHandler creates a new Handler. redis may be nil when rate limiting is disabled.
func NewHandler(db store.DataStore, redis *store.RedisStore, tokens *crypto.TokenIssuer, log zerolog.Logger, opts Options) *Handler {
	return &Handler{
		db:            db,
		redis:         redis,
		tokens:        tokens,
		conversations: access.NewConversations(db, log, opts.OpenInvites),
		messages:      access.NewMessages(db, log),
		log:           log,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Fail maps an error from the access layer onto an HTTP response.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *access.ValidationError
	switch {
	case errors.Is(err, access.ErrNotFound):
		h.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, access.ErrUserNotFound):
		h.Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, access.ErrUserIDRequired), errors.Is(err, access.ErrNotParticipant):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &verr):
		h.JSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, errInvalidJSON):
		h.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		h.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errInvalidJSON
}

// requester returns the authenticated user, or writes 401 and returns nil.
func (h *Handler) requester(w http.ResponseWriter, r *http.Request) *models.User {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return user
}

// parsePage reads the optional limit and offset query parameters.
func parsePage(r *http.Request) (store.Page, error) {
	var page store.Page
	q := r.URL.Query()

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return page, &access.ValidationError{Fields: map[string]string{"limit": "A positive integer is required."}}
		}
		page.Limit = min(n, maxPageSize)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return page, &access.ValidationError{Fields: map[string]string{"offset": "A non-negative integer is required."}}
		}
		page.Offset = n
	}
	return page, nil
}
