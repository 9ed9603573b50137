package access

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

type fixture struct {
	store         *store.SQLiteStore
	conversations *Conversations
	messages      *Messages
	clock         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	f := &fixture{
		store:         s,
		conversations: NewConversations(s, zerolog.Nop(), false),
		messages:      NewMessages(s, zerolog.Nop()),
		clock:         time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	tick := func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.conversations.now = tick
	f.messages.now = tick
	return f
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &models.User{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     name,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) conversation(t *testing.T, owner uuid.UUID, others ...uuid.UUID) *models.Conversation {
	t.Helper()
	conv, err := f.conversations.Create(context.Background(), owner, CreateConversationInput{Participants: others})
	require.NoError(t, err)
	return conv
}

func (f *fixture) post(t *testing.T, sender, conv uuid.UUID, body string) *models.Message {
	t.Helper()
	msg, err := f.messages.Create(context.Background(), sender, CreateMessageInput{Conversation: conv, Body: body})
	require.NoError(t, err)
	return msg
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func messageID(m models.Message) string { return m.ID }

func conversationID(c models.Conversation) string { return c.ID.String() }
