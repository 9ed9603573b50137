// Package chats provides a client for the chats conversation API.
package chats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrNotLoggedIn is returned by authenticated calls made without a token.
var ErrNotLoggedIn = errors.New("not logged in")

// Client is a chats API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	Token      string
	HTTPClient *http.Client
}

// Config holds saved credentials.
type Config struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("chats error %d: %s %v", e.StatusCode, e.Message, e.Fields)
	}
	return fmt.Sprintf("chats error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new client and loads any saved token.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := os.Getenv("CHATS_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".chats")
	}

	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	_ = c.LoadConfig()
	return c
}

// LoadConfig loads the saved token from disk.
func (c *Client) LoadConfig() error {
	data, err := os.ReadFile(filepath.Join(c.ConfigDir, "token.json"))
	if err != nil {
		return err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return err
	}
	if !config.ExpiresAt.IsZero() && time.Now().After(config.ExpiresAt) {
		return errors.New("saved token expired")
	}

	c.Token = config.Token
	return nil
}

// SaveConfig saves the token to disk.
func (c *Client) SaveConfig(expiresAt time.Time) error {
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}

	data, _ := json.MarshalIndent(Config{Token: c.Token, ExpiresAt: expiresAt}, "", "  ")
	return os.WriteFile(filepath.Join(c.ConfigDir, "token.json"), data, 0600)
}

// doRequest performs an HTTP request and decodes the JSON response into out.
func (c *Client) doRequest(method, path string, in, out any, authenticated bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if c.Token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		json.Unmarshal(respBody, &errResp)
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Fields: errResp.Fields}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account.
func (c *Client) Register(username, password string) (*User, error) {
	var user User
	if err := c.doRequest("POST", "/auth/register", credentials{username, password}, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

// TokenResponse is the response from the token endpoint.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges credentials for a token and keeps it on the client.
// When save is set the token is also written to ConfigDir.
func (c *Client) Login(username, password string, save bool) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.doRequest("POST", "/auth/token", credentials{username, password}, &resp, false); err != nil {
		return nil, err
	}

	c.Token = resp.Token
	if save {
		if err := c.SaveConfig(resp.ExpiresAt); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// Me returns the logged-in user.
func (c *Client) Me() (*User, error) {
	var user User
	if err := c.doRequest("GET", "/users/me", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser returns a user's profile.
func (c *Client) GetUser(userID string) (*User, error) {
	var user User
	if err := c.doRequest("GET", "/users/"+url.PathEscape(userID), nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// Conversation is a thread shared by its participants.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateConversationRequest is the request body for creating a conversation.
type CreateConversationRequest struct {
	Title        string   `json:"title,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// ListConversations lists the conversations the user participates in.
func (c *Client) ListConversations() ([]Conversation, error) {
	var convs []Conversation
	if err := c.doRequest("GET", "/conversations", nil, &convs, true); err != nil {
		return nil, err
	}
	return convs, nil
}

// CreateConversation creates a conversation. The caller is always a participant.
func (c *Client) CreateConversation(title string, participants ...string) (*Conversation, error) {
	var conv Conversation
	req := CreateConversationRequest{Title: title, Participants: participants}
	if err := c.doRequest("POST", "/conversations", req, &conv, true); err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation returns a single conversation.
func (c *Client) GetConversation(id string) (*Conversation, error) {
	var conv Conversation
	if err := c.doRequest("GET", "/conversations/"+url.PathEscape(id), nil, &conv, true); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RenameConversation changes a conversation's title.
func (c *Client) RenameConversation(id, title string) (*Conversation, error) {
	var conv Conversation
	req := map[string]string{"title": title}
	if err := c.doRequest("PATCH", "/conversations/"+url.PathEscape(id), req, &conv, true); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(id string) error {
	return c.doRequest("DELETE", "/conversations/"+url.PathEscape(id), nil, nil, true)
}

// AddParticipant adds a user to a conversation.
func (c *Client) AddParticipant(conversationID, userID string) error {
	req := map[string]string{"user_id": userID}
	return c.doRequest("POST", "/conversations/"+url.PathEscape(conversationID)+"/add_participant", req, nil, true)
}

// Message is a chat message.
type Message struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation"`
	Sender       string    `json:"sender"`
	Body         string    `json:"body"`
	Timestamp    time.Time `json:"timestamp"`
}

// PostMessageRequest is the request body for posting a message.
type PostMessageRequest struct {
	Conversation string `json:"conversation"`
	Body         string `json:"body"`
}

// PostMessage posts a message to a conversation.
func (c *Client) PostMessage(conversationID, body string) (*Message, error) {
	var msg Message
	req := PostMessageRequest{Conversation: conversationID, Body: body}
	if err := c.doRequest("POST", "/messages", req, &msg, true); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages lists messages, oldest first. An empty conversationID lists
// across every conversation; limit 0 means no limit.
func (c *Client) GetMessages(conversationID string, limit, offset int) ([]Message, error) {
	q := url.Values{}
	if conversationID != "" {
		q.Set("conversation_id", conversationID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var msgs []Message
	if err := c.doRequest("GET", withQuery("/messages", q), nil, &msgs, true); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Recent returns the newest messages, newest first.
func (c *Client) Recent(conversationID string) ([]Message, error) {
	q := url.Values{}
	if conversationID != "" {
		q.Set("conversation_id", conversationID)
	}

	var msgs []Message
	if err := c.doRequest("GET", withQuery("/messages/recent", q), nil, &msgs, true); err != nil {
		return nil, err
	}
	return msgs, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Checks    map[string]any `json:"checks"`
	Timestamp string         `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest("GET", "/health", nil, &resp, false); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			return nil, err
		}
		resp.Status = "degraded"
	}
	return &resp, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
