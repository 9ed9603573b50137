// Package access implements participant scoping for conversations and
// messages: who may see, create and change what.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/crypto"
	"github.com/eldtechnologies/chats/internal/metrics"
	"github.com/eldtechnologies/chats/internal/models"
	"github.com/eldtechnologies/chats/internal/store"
)

// CreateConversationInput is the writable part of a conversation.
type CreateConversationInput struct {
	Title        string      `json:"title" validate:"max=255"`
	Participants []uuid.UUID `json:"participants"`
}

// UpdateConversationInput carries the fields a participant may change.
// Fields left nil keep their stored value.
type UpdateConversationInput struct {
	Title *string `json:"title" validate:"omitempty,max=255"`
}

// Conversations resolves which conversations a requester may see and
// manages their participant sets.
type Conversations struct {
	store       store.DataStore
	log         zerolog.Logger
	openInvites bool
	now         func() time.Time
}

// NewConversations creates the conversation access component. When
// openInvites is set, add_participant resolves the conversation without
// requiring the caller to be a participant.
func NewConversations(s store.DataStore, log zerolog.Logger, openInvites bool) *Conversations {
	return &Conversations{
		store:       s,
		log:         log.With().Str("component", "conversations").Logger(),
		openInvites: openInvites,
		now:         time.Now,
	}
}

// List returns exactly the conversations whose participants include requester.
func (c *Conversations) List(ctx context.Context, requester uuid.UUID, page store.Page) ([]models.Conversation, error) {
	convs, err := c.store.ListConversationsByParticipant(ctx, requester, page)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Get returns a conversation the requester participates in. Conversations
// that exist but exclude the requester are reported as ErrNotFound.
func (c *Conversations) Get(ctx context.Context, requester, id uuid.UUID) (*models.Conversation, error) {
	conv, err := c.store.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil || !conv.HasParticipant(requester) {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Create persists a new conversation. The requester always ends up in the
// participant set, whatever the input lists.
func (c *Conversations) Create(ctx context.Context, requester uuid.UUID, in CreateConversationInput) (*models.Conversation, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	participants := make([]uuid.UUID, 0, len(in.Participants)+1)
	seen := map[uuid.UUID]bool{requester: true}
	for _, id := range in.Participants {
		if seen[id] {
			continue
		}
		seen[id] = true

		user, err := c.store.GetUserByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("look up participant: %w", err)
		}
		if user == nil {
			return nil, fieldError("participants", doesNotExist(id))
		}
		participants = append(participants, id)
	}
	participants = append(participants, requester)

	now := c.now().UTC().Truncate(time.Microsecond)
	conv := &models.Conversation{
		ID:           crypto.NewUUIDv7(),
		Title:        strings.TrimSpace(in.Title),
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	metrics.ConversationsCreated.Inc()
	return conv, nil
}

// Update applies a partial update to a conversation the requester
// participates in. An input without a title returns the conversation unchanged.
func (c *Conversations) Update(ctx context.Context, requester, id uuid.UUID, in UpdateConversationInput) (*models.Conversation, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	current, err := c.Get(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if in.Title == nil {
		return current, nil
	}

	conv, err := c.store.UpdateConversationTitle(ctx, id, strings.TrimSpace(*in.Title))
	if err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	return conv, nil
}

// Delete removes a conversation the requester participates in, along with its messages.
func (c *Conversations) Delete(ctx context.Context, requester, id uuid.UUID) error {
	if _, err := c.Get(ctx, requester, id); err != nil {
		return err
	}
	if err := c.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	c.log.Info().
		Str("conversation_id", id.String()).
		Str("requester", requester.String()).
		Msg("conversation deleted")
	return nil
}

// AddParticipant adds userID to the conversation. The conversation is looked
// up first (ErrNotFound), then userID is checked (ErrUserIDRequired,
// ErrUserNotFound). Adding an existing participant is a no-op.
//
// The caller's own membership is not checked beyond the lookup: with open
// invites disabled the lookup is scoped like Get, so only participants can
// resolve the conversation; with open invites enabled any caller can.
func (c *Conversations) AddParticipant(ctx context.Context, requester, id uuid.UUID, userID string) error {
	if err := c.resolveForInvite(ctx, requester, id); err != nil {
		return err
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fieldError("user_id", "Must be a valid UUID.")
	}

	user, err := c.store.GetUserByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := c.store.AddParticipant(ctx, id, uid); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	metrics.ParticipantsAdded.Inc()
	c.log.Info().
		Str("conversation_id", id.String()).
		Str("user_id", uid.String()).
		Str("requester", requester.String()).
		Msg("participant added")
	return nil
}

func (c *Conversations) resolveForInvite(ctx context.Context, requester, id uuid.UUID) error {
	if !c.openInvites {
		_, err := c.Get(ctx, requester, id)
		return err
	}

	conv, err := c.store.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return ErrNotFound
	}
	return nil
}
