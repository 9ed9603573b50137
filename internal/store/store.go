package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eldtechnologies/chats/internal/models"
)

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

// Page bounds a list query. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// MessageFilter selects messages for a list query.
//
// When ConversationID is set only that conversation's messages are returned,
// otherwise messages from every conversation ParticipantID belongs to.
// Newest orders by timestamp descending instead of ascending.
type MessageFilter struct {
	ConversationID *uuid.UUID
	ParticipantID  uuid.UUID
	Newest         bool
	Page
}

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . DataStore

// DataStore defines the interface for persistent storage of users,
// conversations and messages. Both PostgresStore and SQLiteStore implement
// this interface. Lookups return (nil, nil) when the row does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Conversation operations
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversationsByParticipant(ctx context.Context, userID uuid.UUID, page Page) ([]models.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)

	// Message operations
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error)
}
