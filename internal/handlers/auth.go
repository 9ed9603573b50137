package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/eldtechnologies/chats/internal/access"
	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/metrics"
	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

// Usernames: letters, digits and @.+-_ like most account systems.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9@.+_-]+$`)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// TokenRequest represents the token request body.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse represents the token response.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates a user account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := access.Validate(req); err != nil {
		h.Fail(w, r, err)
		return
	}
	if !usernameRegex.MatchString(req.Username) {
		h.Fail(w, r, &access.ValidationError{Fields: map[string]string{
			"username": "Only letters, digits and @.+-_ are allowed.",
		}})
		return
	}

	existing, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if existing != nil {
		h.Error(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	user := &models.User{
		ID:           crypto.NewUUIDv7(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.Error(w, http.StatusConflict, "username already taken")
			return
		}
		h.Fail(w, r, err)
		return
	}

	metrics.UsersRegistered.Inc()
	h.log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	h.JSON(w, http.StatusCreated, user)
}

// Token exchanges a username and password for a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}
	if err := access.Validate(req); err != nil {
		h.Fail(w, r, err)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if user == nil || crypto.ComparePassword(user.PasswordHash, req.Password) != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt.UTC()})
}
