package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/chats/internal/models"
)

func createConversation(t *testing.T, h *Handler, owner *models.User, body string) models.Conversation {
	t.Helper()
	rec := call(h.CreateConversation, http.MethodPost, "/conversations", "/conversations", body, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Conversation](t, rec)
}

func TestCreateConversation(t *testing.T) {
	h, s := newTestHandler(t, false)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	conv := createConversation(t, h, alice, fmt.Sprintf(`{"title":"plans","participants":[%q]}`, bob.ID))
	assert.Equal(t, "plans", conv.Title)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, conv.Participants)

	// An empty body still creates a conversation with just the requester.
	conv = createConversation(t, h, alice, "")
	assert.Equal(t, []uuid.UUID{alice.ID}, conv.Participants)

	rec := call(h.CreateConversation, http.MethodPost, "/conversations", "/conversations",
		fmt.Sprintf(`{"participants":[%q]}`, uuid.New()), alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.CreateConversation, http.MethodPost, "/conversations", "/conversations",
		`{"participants":["not-a-uuid"]}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListConversationsEmptyIsArray(t *testing.T) {
	h, s := newTestHandler(t, false)
	alice := createUser(t, s, "alice")

	rec := call(h.ListConversations, http.MethodGet, "/conversations", "/conversations", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListConversationsPaging(t *testing.T) {
	h, s := newTestHandler(t, false)
	alice := createUser(t, s, "alice")
	for i := 0; i < 3; i++ {
		createConversation(t, h, alice, fmt.Sprintf(`{"title":"c%d"}`, i))
	}

	rec := call(h.ListConversations, http.MethodGet, "/conversations", "/conversations?limit=2", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Conversation](t, rec), 2)

	rec = call(h.ListConversations, http.MethodGet, "/conversations", "/conversations?limit=2&offset=2", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Conversation](t, rec), 1)

	rec = call(h.ListConversations, http.MethodGet, "/conversations", "/conversations?limit=-1", "", alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationDetailScoped(t *testing.T) {
	h, s := newTestHandler(t, false)
	alice := createUser(t, s, "alice")
	eve := createUser(t, s, "eve")
	conv := createConversation(t, h, alice, `{"title":"private"}`)
	path := "/conversations/" + conv.ID.String()

	rec := call(h.GetConversation, http.MethodGet, "/conversations/{id}", path, "", alice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(h.GetConversation, http.MethodGet, "/conversations/{id}", path, "", eve)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.GetConversation, http.MethodGet, "/conversations/{id}", "/conversations/nope", "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.UpdateConversation, http.MethodPatch, "/conversations/{id}", path, `{"title":"hijacked"}`, eve)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.UpdateConversation, http.MethodPatch, "/conversations/{id}", path, `{"title":"renamed"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[models.Conversation](t, rec).Title)

	rec = call(h.UpdateConversation, http.MethodPatch, "/conversations/{id}", path, `{}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[models.Conversation](t, rec).Title)

	rec = call(h.UpdateConversation, http.MethodPatch, "/conversations/{id}", path, "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[models.Conversation](t, rec).Title)

	rec = call(h.DeleteConversation, http.MethodDelete, "/conversations/{id}", path, "", eve)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.DeleteConversation, http.MethodDelete, "/conversations/{id}", path, "", alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = call(h.GetConversation, http.MethodGet, "/conversations/{id}", path, "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddParticipantHandler(t *testing.T) {
	h, s := newTestHandler(t, false)
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	conv := createConversation(t, h, alice, "")

	pattern := "/conversations/{id}/add_participant"
	path := "/conversations/" + conv.ID.String() + "/add_participant"

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   map[string]string
	}{
		{"empty body", path, "", http.StatusBadRequest, map[string]string{"error": "User ID is required"}},
		{"empty object", path, `{}`, http.StatusBadRequest, map[string]string{"error": "User ID is required"}},
		{"blank user id", path, `{"user_id":""}`, http.StatusBadRequest, map[string]string{"error": "User ID is required"}},
		{"unknown user", path, fmt.Sprintf(`{"user_id":%q}`, uuid.New()), http.StatusNotFound, nil},
		{"unknown conversation", "/conversations/" + uuid.NewString() + "/add_participant", fmt.Sprintf(`{"user_id":%q}`, bob.ID), http.StatusNotFound, nil},
		{"success", path, fmt.Sprintf(`{"user_id":%q}`, bob.ID), http.StatusOK, map[string]string{"status": "participant added"}},
		{"idempotent", path, fmt.Sprintf(`{"user_id":%q}`, bob.ID), http.StatusOK, map[string]string{"status": "participant added"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(h.AddParticipant, http.MethodPost, pattern, tt.path, tt.body, alice)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.want != nil {
				assert.Equal(t, tt.want, decode[map[string]string](t, rec))
			}
		})
	}

	rec := call(h.GetConversation, http.MethodGet, "/conversations/{id}", "/conversations/"+conv.ID.String(), "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, decode[models.Conversation](t, rec).Participants)
}

func TestAddParticipantInvitePolicy(t *testing.T) {
	for _, open := range []bool{false, true} {
		t.Run(fmt.Sprintf("open=%v", open), func(t *testing.T) {
			h, s := newTestHandler(t, open)
			alice := createUser(t, s, "alice")
			eve := createUser(t, s, "eve")
			conv := createConversation(t, h, alice, "")

			rec := call(h.AddParticipant, http.MethodPost, "/conversations/{id}/add_participant",
				"/conversations/"+conv.ID.String()+"/add_participant",
				fmt.Sprintf(`{"user_id":%q}`, eve.ID), eve)

			if open {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, rec.Code)
			}
		})
	}
}
