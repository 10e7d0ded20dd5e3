package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// DefaultPageSize matches the server's default page limit.
	DefaultPageSize = 20
)

// Client talks to the conversation REST endpoints. Every call requires a
// bearer token; calls fail with ErrNotAuthenticated before touching the
// network when none is set.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient builds a store client for the given API base URL and token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the configured bearer token.
func (c *Client) Token() string { return c.token }

// envelope is the server's uniform response shape: exactly one of data or
// error is populated.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// ListConversations fetches one page of the viewer's conversations, most
// recently active first.
func (c *Client) ListConversations(ctx context.Context, userID int64, page, limit int) ([]Conversation, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))
	setPagination(query, page, limit)

	var conversations []Conversation
	if err := c.get(ctx, "/conversations", query, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// CreateConversation creates (or finds) a conversation started by userID.
// A nil otherUserID creates a degenerate shell conversation with no second
// participant.
func (c *Client) CreateConversation(ctx context.Context, userID int64, otherUserID *int64) (*Conversation, error) {
	body := map[string]any{"user1_id": userID}
	if otherUserID != nil {
		body["user2_id"] = *otherUserID
	}

	var conversation Conversation
	if err := c.post(ctx, "/conversations", body, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListMessages fetches one page of a conversation's messages in newest-first
// order, as the server returns them.
func (c *Client) ListMessages(ctx context.Context, conversationID int64, page, limit int) ([]Message, error) {
	query := url.Values{}
	query.Set("conversation_id", strconv.FormatInt(conversationID, 10))
	setPagination(query, page, limit)

	var messages []Message
	if err := c.get(ctx, "/messages", query, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage persists a message. Empty or whitespace-only content is
// rejected with ErrValidation before any request is made.
func (c *Client) SendMessage(ctx context.Context, conversationID, senderID int64, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}

	body := map[string]any{
		"conversation_id": conversationID,
		"sender_id":       senderID,
		"content":         content,
	}

	var message Message
	if err := c.post(ctx, "/messages", body, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func setPagination(query url.Values, page, limit int) {
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrTimeout)
		}
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", req.Method, req.URL.Path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &APIError{Status: resp.StatusCode, Message: "malformed response body"}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Error != "" {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Status: resp.StatusCode, Message: "malformed response data"}
		}
	}
	return nil
}
