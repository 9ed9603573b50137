package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/chats/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser inserts a new user. Returns ErrDuplicate if the username is taken.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt.UnixMicro())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = fromMicros(createdAt)
	return user, nil
}

// CreateConversation inserts a conversation and its participants in one transaction.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO conversations (id, title, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`, conv.ID, conv.Title, conv.CreatedAt.UnixMicro(), conv.UpdatedAt.UnixMicro())
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, userID := range conv.Participants {
			batch.Queue(`
				INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (conversation_id, user_id) DO NOTHING
			`, conv.ID, userID, conv.CreatedAt.UnixMicro())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// GetConversation retrieves a conversation with its participants.
func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var createdAt, updatedAt int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, created_at, updated_at
		FROM conversations WHERE id = $1
	`, id).Scan(&conv.ID, &conv.Title, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	conv.CreatedAt = fromMicros(createdAt)
	conv.UpdatedAt = fromMicros(updatedAt)

	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at, user_id
	`, id)
	if err != nil {
		return nil, err
	}
	participants, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	conv.Participants = participants
	return conv, nil
}

// ListConversationsByParticipant returns the conversations userID belongs to, newest first.
func (s *PostgresStore) ListConversationsByParticipant(ctx context.Context, userID uuid.UUID, page Page) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at,
			ARRAY(
				SELECT m.user_id FROM conversation_participants m
				WHERE m.conversation_id = c.id
				ORDER BY m.joined_at, m.user_id
			)
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`, userID, pgLimit(page), page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		var createdAt, updatedAt int64
		if err := rows.Scan(&conv.ID, &conv.Title, &createdAt, &updatedAt, &conv.Participants); err != nil {
			return nil, err
		}
		conv.CreatedAt = fromMicros(createdAt)
		conv.UpdatedAt = fromMicros(updatedAt)
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// UpdateConversationTitle sets the title and returns the updated conversation.
func (s *PostgresStore) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*models.Conversation, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $1, updated_at = $2 WHERE id = $3
	`, title, time.Now().UnixMicro(), id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return s.GetConversation(ctx, id)
}

// DeleteConversation removes a conversation together with its participants and messages.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

// AddParticipant adds userID to the conversation. Adding an existing member is a no-op.
func (s *PostgresStore) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	now := time.Now().UnixMicro()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID, userID, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		_, err = s.pool.Exec(ctx, `
			UPDATE conversations SET updated_at = $1 WHERE id = $2
		`, now, conversationID)
	}
	return err
}

// IsParticipant reports whether userID belongs to the conversation.
func (s *PostgresStore) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&exists)
	return exists, err
}

// CreateMessage inserts a message.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.Body, msg.Timestamp.UnixMicro())
	return err
}

// GetMessage retrieves a message by ID.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	var createdAt int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, sender_id, body, created_at
		FROM messages WHERE id = $1
	`, id).Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Body, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msg.Timestamp = fromMicros(createdAt)
	return msg, nil
}

// ListMessages returns messages matching the filter.
func (s *PostgresStore) ListMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.body, m.created_at
		FROM messages m
	`
	var args []any
	if filter.ConversationID != nil {
		query += ` WHERE m.conversation_id = $1`
		args = append(args, *filter.ConversationID)
	} else {
		query += `
		JOIN conversation_participants p ON p.conversation_id = m.conversation_id
		WHERE p.user_id = $1`
		args = append(args, filter.ParticipantID)
	}
	if filter.Newest {
		query += ` ORDER BY m.created_at DESC, m.id DESC`
	} else {
		query += ` ORDER BY m.created_at ASC, m.id ASC`
	}
	query += ` LIMIT $2 OFFSET $3`
	args = append(args, pgLimit(filter.Page), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Body, &createdAt); err != nil {
			return nil, err
		}
		msg.Timestamp = fromMicros(createdAt)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// pgLimit maps a zero limit to NULL, which PostgreSQL treats as LIMIT ALL.
func pgLimit(p Page) any {
	if p.Limit <= 0 {
		return nil
	}
	return p.Limit
}
