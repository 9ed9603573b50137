package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents a thread shared by a set of participants.
type Conversation struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Participants []uuid.UUID `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
