package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a chat message posted into a conversation.
type Message struct {
	ID             string    `json:"id"` // ULID
	ConversationID uuid.UUID `json:"conversation"`
	SenderID       uuid.UUID `json:"sender"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
}
