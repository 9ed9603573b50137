package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account that can take part in conversations.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
