package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/chats/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chats.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chats.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversation_participants (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at INTEGER NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL REFERENCES users(id),
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_participants_user ON conversation_participants(user_id);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new user. Returns ErrDuplicate if the username is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID.String(), user.Username, user.PasswordHash, user.CreatedAt.UnixMicro())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id.String())
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = fromMicros(createdAt)
	return user, nil
}

// CreateConversation inserts a conversation and its participants in one transaction.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, conv.ID.String(), conv.Title, conv.CreatedAt.UnixMicro(), conv.UpdatedAt.UnixMicro())
	if err != nil {
		return err
	}

	for _, userID := range conv.Participants {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES (?, ?, ?)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
		`, conv.ID.String(), userID.String(), conv.CreatedAt.UnixMicro())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetConversation retrieves a conversation with its participants.
func (s *SQLiteStore) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id.String()).Scan(&conv.ID, &conv.Title, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	conv.CreatedAt = fromMicros(createdAt)
	conv.UpdatedAt = fromMicros(updatedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY joined_at, user_id
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conv.Participants = []uuid.UUID{}
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, userID)
	}
	return conv, rows.Err()
}

// ListConversationsByParticipant returns the conversations userID belongs to, newest first.
func (s *SQLiteStore) ListConversationsByParticipant(ctx context.Context, userID uuid.UUID, page Page) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = ?
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?
	`, userID.String(), sqliteLimit(page), page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []models.Conversation{}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var conv models.Conversation
		var createdAt, updatedAt int64
		if err := rows.Scan(&conv.ID, &conv.Title, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		conv.CreatedAt = fromMicros(createdAt)
		conv.UpdatedAt = fromMicros(updatedAt)
		conv.Participants = []uuid.UUID{}
		index[conv.ID] = len(convs)
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return convs, nil
	}

	placeholders := make([]string, len(convs))
	ids := make([]any, len(convs))
	for i, conv := range convs {
		placeholders[i] = "?"
		ids[i] = conv.ID.String()
	}
	members, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, user_id
		FROM conversation_participants
		WHERE conversation_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY joined_at, user_id
	`, ids...)
	if err != nil {
		return nil, err
	}
	defer members.Close()

	for members.Next() {
		var convID, memberID uuid.UUID
		if err := members.Scan(&convID, &memberID); err != nil {
			return nil, err
		}
		if i, ok := index[convID]; ok {
			convs[i].Participants = append(convs[i].Participants, memberID)
		}
	}
	return convs, members.Err()
}

// UpdateConversationTitle sets the title and returns the updated conversation.
func (s *SQLiteStore) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*models.Conversation, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?
	`, title, time.Now().UnixMicro(), id.String())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetConversation(ctx, id)
}

// DeleteConversation removes a conversation together with its participants and messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id.String())
	return err
}

// AddParticipant adds userID to the conversation. Adding an existing member is a no-op.
func (s *SQLiteStore) AddParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	now := time.Now().UnixMicro()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`, conversationID.String(), userID.String(), now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		_, err = s.db.ExecContext(ctx, `
			UPDATE conversations SET updated_at = ? WHERE id = ?
		`, now, conversationID.String())
	}
	return err
}

// IsParticipant reports whether userID belongs to the conversation.
func (s *SQLiteStore) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = ? AND user_id = ?
		)
	`, conversationID.String(), userID.String()).Scan(&exists)
	return exists == 1, err
}

// CreateMessage inserts a message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID.String(), msg.SenderID.String(), msg.Body, msg.Timestamp.UnixMicro())
	return err
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, body, created_at
		FROM messages WHERE id = ?
	`, id).Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Body, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msg.Timestamp = fromMicros(createdAt)
	return msg, nil
}

// ListMessages returns messages matching the filter.
func (s *SQLiteStore) ListMessages(ctx context.Context, filter MessageFilter) ([]models.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.body, m.created_at
		FROM messages m
	`
	var args []any
	if filter.ConversationID != nil {
		query += ` WHERE m.conversation_id = ?`
		args = append(args, filter.ConversationID.String())
	} else {
		query += `
		JOIN conversation_participants p ON p.conversation_id = m.conversation_id
		WHERE p.user_id = ?`
		args = append(args, filter.ParticipantID.String())
	}
	if filter.Newest {
		query += ` ORDER BY m.created_at DESC, m.id DESC`
	} else {
		query += ` ORDER BY m.created_at ASC, m.id ASC`
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, sqliteLimit(filter.Page), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// sqliteLimit maps a zero limit to SQLite's "no limit".
func sqliteLimit(p Page) int {
	if p.Limit <= 0 {
		return -1
	}
	return p.Limit
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
