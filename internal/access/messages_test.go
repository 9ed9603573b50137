package access

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
	"github.com/eldtechnologies/chats/internal/store/mocks"
)

func TestMessages_CreateForcesSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	c1 := f.conversation(t, u1, u2)

	msg := f.post(t, u2, c1.ID, "hi")
	assert.Equal(t, u2, msg.SenderID)
	assert.Equal(t, c1.ID, msg.ConversationID)
	assert.Len(t, msg.ID, 26)

	stored, err := f.store.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, u2, stored.SenderID)
	assert.Equal(t, "hi", stored.Body)
	assert.True(t, msg.Timestamp.Equal(stored.Timestamp))
}

func TestMessages_CreateRejectsNonParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u3 := f.user(t, "u3")
	c1 := f.conversation(t, u1)

	_, err := f.messages.Create(ctx, u3, CreateMessageInput{Conversation: c1.ID, Body: "let me in"})
	require.ErrorIs(t, err, ErrNotParticipant)

	all, err := f.messages.List(ctx, u1, nil, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, all, "rejected message must not be persisted")
}

func TestMessages_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	c1 := f.conversation(t, u1)

	cases := []struct {
		name  string
		in    CreateMessageInput
		field string
	}{
		{"missing conversation", CreateMessageInput{Body: "x"}, "conversation"},
		{"unknown conversation", CreateMessageInput{Conversation: uuid.New(), Body: "x"}, "conversation"},
		{"empty body", CreateMessageInput{Conversation: c1.ID}, "body"},
		{"body too long", CreateMessageInput{Conversation: c1.ID, Body: strings.Repeat("a", 4097)}, "body"},
		{"multibyte body too long", CreateMessageInput{Conversation: c1.ID, Body: strings.Repeat("é", 2049)}, "body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.messages.Create(ctx, u1, tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}

	msg, err := f.messages.Create(ctx, u1, CreateMessageInput{Conversation: c1.ID, Body: strings.Repeat("é", 2048)})
	require.NoError(t, err)
	assert.Len(t, msg.Body, 4096)
}

func TestMessages_ListIffParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	u3 := f.user(t, "u3")

	shared := f.conversation(t, u1, u2)
	solo := f.conversation(t, u3)

	m1 := f.post(t, u1, shared.ID, "one")
	m2 := f.post(t, u3, solo.ID, "two")
	m3 := f.post(t, u2, shared.ID, "three")

	cases := map[uuid.UUID][]string{
		u1: {m1.ID, m3.ID},
		u2: {m1.ID, m3.ID},
		u3: {m2.ID},
	}
	for user, want := range cases {
		got, err := f.messages.List(ctx, user, nil, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, want, ids(got, messageID))
	}
}

func TestMessages_ListByConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	u3 := f.user(t, "u3")

	c1 := f.conversation(t, u1, u2)
	c2 := f.conversation(t, u1)
	m1 := f.post(t, u2, c1.ID, "hi")
	f.post(t, u1, c2.ID, "elsewhere")

	got, err := f.messages.List(ctx, u1, &c1.ID, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID}, ids(got, messageID))

	stranger, err := f.messages.List(ctx, u3, &c1.ID, store.Page{})
	require.NoError(t, err)
	assert.NotNil(t, stranger)
	assert.Empty(t, stranger, "non-participants get an empty set, not an error")

	missing := uuid.New()
	_, err = f.messages.List(ctx, u1, &missing, store.Page{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages_Recent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")

	c1 := f.conversation(t, u1)
	c2 := f.conversation(t, u1, u2)
	hidden := f.conversation(t, u2)

	var posted []*models.Message
	for i := 0; i < 14; i++ {
		conv := c1.ID
		if i%2 == 1 {
			conv = c2.ID
		}
		posted = append(posted, f.post(t, u1, conv, "msg"))
	}
	newest := f.post(t, u2, hidden.ID, "not for u1")

	recent, err := f.messages.Recent(ctx, u1, nil)
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)

	for i, msg := range recent {
		assert.Equal(t, posted[len(posted)-1-i].ID, msg.ID)
		assert.NotEqual(t, newest.ID, msg.ID)
		if i > 0 {
			assert.False(t, msg.Timestamp.After(recent[i-1].Timestamp), "descending by timestamp")
		}
	}

	onlyC2, err := f.messages.Recent(ctx, u1, &c2.ID)
	require.NoError(t, err)
	require.Len(t, onlyC2, 7)
	for _, msg := range onlyC2 {
		assert.Equal(t, c2.ID, msg.ConversationID)
	}

	notMine, err := f.messages.Recent(ctx, u1, &hidden.ID)
	require.NoError(t, err)
	assert.Empty(t, notMine)
}

func TestMessages_GetScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")
	c1 := f.conversation(t, u1)
	msg := f.post(t, u1, c1.ID, "secret")

	got, err := f.messages.Get(ctx, u1, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Body)

	_, err = f.messages.Get(ctx, u2, msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.messages.Get(ctx, u1, "01J00000000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages_CreateStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ds := mocks.NewMockDataStore(ctrl)
	m := NewMessages(ds, zerolog.Nop())

	ctx := context.Background()
	requester := uuid.New()
	conv := &models.Conversation{ID: uuid.New(), Participants: []uuid.UUID{requester}}
	boom := errors.New("disk full")

	ds.EXPECT().GetConversation(ctx, conv.ID).Return(conv, nil)
	ds.EXPECT().CreateMessage(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, msg *models.Message) error {
		assert.Equal(t, requester, msg.SenderID)
		return boom
	})

	_, err := m.Create(ctx, requester, CreateMessageInput{Conversation: conv.ID, Body: "hi"})
	assert.ErrorIs(t, err, boom)
}

func TestMessages_NonParticipantNeverWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	ds := mocks.NewMockDataStore(ctrl)
	m := NewMessages(ds, zerolog.Nop())

	ctx := context.Background()
	conv := &models.Conversation{ID: uuid.New(), Participants: []uuid.UUID{uuid.New()}}

	ds.EXPECT().GetConversation(ctx, conv.ID).Return(conv, nil)
	ds.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Times(0)

	_, err := m.Create(ctx, uuid.New(), CreateMessageInput{Conversation: conv.ID, Body: "hi"})
	assert.ErrorIs(t, err, ErrNotParticipant)
}
