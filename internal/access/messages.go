package access

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/metrics"
	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

// RecentLimit caps the number of messages returned by Recent.
const RecentLimit = 10

// CreateMessageInput is the writable part of a message. The sender is never
// read from input.
type CreateMessageInput struct {
	Conversation uuid.UUID `json:"conversation" validate:"required"`
	Body         string    `json:"body" validate:"required,maxbytes=4096"`
}

// Messages resolves which messages a requester may see and guards message creation.
type Messages struct {
	store store.DataStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewMessages creates the message access component.
func NewMessages(s store.DataStore, log zerolog.Logger) *Messages {
	return &Messages{
		store: s,
		log:   log.With().Str("component", "messages").Logger(),
		now:   time.Now,
	}
}

// List returns the messages visible to requester, oldest first.
//
// With a conversation ID, the conversation must exist (ErrNotFound) and the
// result is empty unless requester participates in it. Without one, the
// result spans every conversation requester participates in.
func (m *Messages) List(ctx context.Context, requester uuid.UUID, conversationID *uuid.UUID, page store.Page) ([]models.Message, error) {
	return m.list(ctx, store.MessageFilter{ParticipantID: requester, Page: page}, conversationID)
}

// Recent returns at most RecentLimit messages from the same visible set as
// List, newest first.
func (m *Messages) Recent(ctx context.Context, requester uuid.UUID, conversationID *uuid.UUID) ([]models.Message, error) {
	filter := store.MessageFilter{
		ParticipantID: requester,
		Newest:        true,
		Page:          store.Page{Limit: RecentLimit},
	}
	return m.list(ctx, filter, conversationID)
}

func (m *Messages) list(ctx context.Context, filter store.MessageFilter, conversationID *uuid.UUID) ([]models.Message, error) {
	if conversationID != nil {
		conv, err := m.store.GetConversation(ctx, *conversationID)
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		if conv == nil {
			return nil, ErrNotFound
		}
		if !conv.HasParticipant(filter.ParticipantID) {
			return []models.Message{}, nil
		}
		filter.ConversationID = conversationID
	}

	messages, err := m.store.ListMessages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Get returns a message whose conversation includes requester.
func (m *Messages) Get(ctx context.Context, requester uuid.UUID, id string) (*models.Message, error) {
	msg, err := m.store.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, ErrNotFound
	}

	ok, err := m.store.IsParticipant(ctx, msg.ConversationID, requester)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return msg, nil
}

// Create posts a message as requester. The conversation must exist and
// include requester, otherwise nothing is persisted.
func (m *Messages) Create(ctx context.Context, requester uuid.UUID, in CreateMessageInput) (*models.Message, error) {
	if err := Validate(in); err != nil {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		return nil, err
	}

	conv, err := m.store.GetConversation(ctx, in.Conversation)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		metrics.MessagesRejected.WithLabelValues("invalid").Inc()
		return nil, fieldError("conversation", doesNotExist(in.Conversation))
	}
	if !conv.HasParticipant(requester) {
		metrics.MessagesRejected.WithLabelValues("not_participant").Inc()
		m.log.Warn().
			Str("conversation_id", conv.ID.String()).
			Str("requester", requester.String()).
			Msg("message rejected: requester is not a participant")
		return nil, ErrNotParticipant
	}

	now := m.now().UTC().Truncate(time.Microsecond)
	msg := &models.Message{
		ID:             crypto.NewULID(now),
		ConversationID: conv.ID,
		SenderID:       requester,
		Body:           in.Body,
		Timestamp:      now,
	}
	if err := m.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	metrics.MessagesPosted.Inc()
	return msg, nil
}
