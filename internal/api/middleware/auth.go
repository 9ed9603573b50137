package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// AuthMiddleware authenticates requests carrying a bearer token.
type AuthMiddleware struct {
	store  store.DataStore
	tokens *crypto.TokenIssuer
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(s store.DataStore, tokens *crypto.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{
		store:  s,
		tokens: tokens,
	}
}

// RequireAuth verifies the bearer token and loads the user it names.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="chats"`)
			jsonError(w, http.StatusUnauthorized, "authentication credentials were not provided")
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := m.store.GetUserByID(r.Context(), userID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "user not found")
			return
		}

		setLogUser(r.Context(), user.ID.String())
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// WithUser returns a copy of ctx carrying user, as RequireAuth would.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
