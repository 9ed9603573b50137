package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/chats/internal/models"
)

// runStoreTests runs the DataStore behaviour shared by every backend.
// newStore must return an empty store.
func runStoreTests(t *testing.T, newStore func(t *testing.T) DataStore) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ConversationMembership", func(t *testing.T) { testConversationMembership(t, newStore(t)) })
	t.Run("UpdateAndDeleteConversation", func(t *testing.T) { testUpdateAndDeleteConversation(t, newStore(t)) })
	t.Run("ListMessages", func(t *testing.T) { testListMessages(t, newStore(t)) })
}

func createUser(t *testing.T, s DataStore, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     name,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createConversation(t *testing.T, s DataStore, at time.Time, members ...uuid.UUID) *models.Conversation {
	t.Helper()
	c := &models.Conversation{
		ID:           uuid.Must(uuid.NewV7()),
		Participants: members,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(t, s.CreateConversation(context.Background(), c))
	return c
}

func testUsers(t *testing.T, s DataStore) {
	ctx := context.Background()

	alice := createUser(t, s, "alice")

	got, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, alice.CreatedAt.UnixMicro(), got.CreatedAt.UnixMicro())

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, alice.ID, byName.ID)

	missing, err := s.GetUserByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{ID: uuid.New(), Username: "alice", PasswordHash: "x", CreatedAt: time.Now()}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicate)
}

func testConversationMembership(t *testing.T, s DataStore) {
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")
	carol := createUser(t, s, "carol")

	now := time.Now()
	c1 := createConversation(t, s, now, alice.ID, alice.ID)
	c2 := createConversation(t, s, now.Add(time.Second), alice.ID, bob.ID)

	got, err := s.GetConversation(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID}, got.Participants)

	require.NoError(t, s.AddParticipant(ctx, c1.ID, carol.ID))
	require.NoError(t, s.AddParticipant(ctx, c1.ID, carol.ID))

	got, err = s.GetConversation(ctx, c1.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, carol.ID}, got.Participants)

	ok, err := s.IsParticipant(ctx, c1.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsParticipant(ctx, c1.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	aliceConvs, err := s.ListConversationsByParticipant(ctx, alice.ID, Page{})
	require.NoError(t, err)
	require.Len(t, aliceConvs, 2)
	assert.Equal(t, c2.ID, aliceConvs[0].ID, "newest conversation first")
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, aliceConvs[0].Participants)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, carol.ID}, aliceConvs[1].Participants)

	bobConvs, err := s.ListConversationsByParticipant(ctx, bob.ID, Page{})
	require.NoError(t, err)
	require.Len(t, bobConvs, 1)
	assert.Equal(t, c2.ID, bobConvs[0].ID)

	paged, err := s.ListConversationsByParticipant(ctx, alice.ID, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, c1.ID, paged[0].ID)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, carol.ID}, paged[0].Participants)

	first, err := s.ListConversationsByParticipant(ctx, alice.ID, Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, c2.ID, first[0].ID)
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, first[0].Participants)

	none, err := s.ListConversationsByParticipant(ctx, uuid.New(), Page{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	missing, err := s.GetConversation(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testUpdateAndDeleteConversation(t *testing.T, s DataStore) {
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	c := createConversation(t, s, time.Now(), alice.ID)
	require.NoError(t, s.CreateMessage(ctx, &models.Message{
		ID: "01HZX0000000000000000000AA", ConversationID: c.ID, SenderID: alice.ID, Body: "hi", Timestamp: time.Now(),
	}))

	updated, err := s.UpdateConversationTitle(ctx, c.ID, "planning")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "planning", updated.Title)

	none, err := s.UpdateConversationTitle(ctx, uuid.New(), "x")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.DeleteConversation(ctx, c.ID))

	gone, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	msg, err := s.GetMessage(ctx, "01HZX0000000000000000000AA")
	require.NoError(t, err)
	assert.Nil(t, msg, "messages are removed with their conversation")
}

func testListMessages(t *testing.T, s DataStore) {
	ctx := context.Background()

	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	base := time.Now()
	shared := createConversation(t, s, base, alice.ID, bob.ID)
	private := createConversation(t, s, base, bob.ID)

	post := func(id string, conv uuid.UUID, sender uuid.UUID, offset time.Duration) {
		require.NoError(t, s.CreateMessage(ctx, &models.Message{
			ID: id, ConversationID: conv, SenderID: sender, Body: id, Timestamp: base.Add(offset),
		}))
	}
	post("01HZX0000000000000000000A1", shared.ID, alice.ID, time.Second)
	post("01HZX0000000000000000000A2", private.ID, bob.ID, 2*time.Second)
	post("01HZX0000000000000000000A3", shared.ID, bob.ID, 3*time.Second)

	visible, err := s.ListMessages(ctx, MessageFilter{ParticipantID: alice.ID})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "01HZX0000000000000000000A1", visible[0].ID)
	assert.Equal(t, "01HZX0000000000000000000A3", visible[1].ID)

	bobNewest, err := s.ListMessages(ctx, MessageFilter{ParticipantID: bob.ID, Newest: true, Page: Page{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, bobNewest, 2)
	assert.Equal(t, "01HZX0000000000000000000A3", bobNewest[0].ID)
	assert.Equal(t, "01HZX0000000000000000000A2", bobNewest[1].ID)

	convID := private.ID
	inConv, err := s.ListMessages(ctx, MessageFilter{ConversationID: &convID})
	require.NoError(t, err)
	require.Len(t, inConv, 1)
	assert.Equal(t, bob.ID, inConv[0].SenderID)
	assert.Equal(t, base.Add(2*time.Second).UnixMicro(), inConv[0].Timestamp.UnixMicro())

	msg, err := s.GetMessage(ctx, "01HZX0000000000000000000A3")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, shared.ID, msg.ConversationID)
}
