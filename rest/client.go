// Package rest is the client for the backend's chat surface. It resolves
// the per-user thread, fetches message history, and posts outbound sends.
// The backend itself is an opaque collaborator; this package only maps its
// JSON envelopes into domain types.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"connect-sync/domain"
	"connect-sync/errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Client struct {
	baseURL  string
	token    string
	identity string
	http     *http.Client
	log      *slog.Logger
	validate *validator.Validate
	pageSize int
}

func NewClient(baseURL, token, identity string, timeout time.Duration, pageSize int, log *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		token:    token,
		identity: identity,
		http:     &http.Client{Timeout: timeout},
		log:      log,
		validate: validator.New(),
		pageSize: pageSize,
	}
}

// threadEnvelope mirrors the backend's ThreadResponse payload.
type threadEnvelope struct {
	ID              int    `json:"id" validate:"required"`
	UserID          string `json:"user_id"`
	RecipientName   string `json:"recipient_name"`
	RecipientAvatar string `json:"recipient_avatar"`
	IsOnline        bool   `json:"is_online"`
	UnreadCount     int    `json:"unread_count"`
	CreatedAt       string `json:"created_at"`
}

// messageEnvelope mirrors the backend's MessageResponse payload.
type messageEnvelope struct {
	ID          json.Number `json:"id" validate:"required"`
	ThreadID    int         `json:"thread_id"`
	SenderID    string      `json:"sender_id" validate:"required"`
	SenderName  string      `json:"sender_name"`
	SenderType  string      `json:"sender_type"`
	Content     string      `json:"content"`
	MessageType string      `json:"message_type"`
	Timestamp   string      `json:"timestamp" validate:"required"`
	ReadStatus  bool        `json:"read_status"`
}

type sendRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
}

// ResolveThread gets or creates the chat thread for the current user.
func (c *Client) ResolveThread(ctx context.Context) (domain.Thread, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/connect/thread", nil, nil)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("resolve thread: %w", err)
	}

	var env threadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Thread{}, fmt.Errorf("decode thread: %w", err)
	}
	if err := c.validate.Struct(env); err != nil {
		return domain.Thread{}, fmt.Errorf("invalid thread envelope: %w", err)
	}

	created, _ := parseTimestamp(env.CreatedAt)
	return domain.Thread{
		ID:              domain.ThreadID(env.ID),
		UserID:          env.UserID,
		RecipientName:   env.RecipientName,
		RecipientAvatar: env.RecipientAvatar,
		IsOnline:        env.IsOnline,
		UnreadCount:     env.UnreadCount,
		CreatedAt:       created,
	}, nil
}

// FetchHistory returns one chronological page of the thread's messages,
// ending before the given cursor when one is provided. The page size is
// passed along even though the backend caps it at 50.
func (c *Client) FetchHistory(ctx context.Context, before *time.Time) ([]domain.Message, error) {
	query := map[string]string{}
	if c.pageSize > 0 {
		query["limit"] = strconv.Itoa(c.pageSize)
	}
	if before != nil {
		query["before"] = before.UTC().Format(time.RFC3339Nano)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/connect/thread/messages", nil, query)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	var envelopes []messageEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	messages := lo.FilterMap(envelopes, func(env messageEnvelope, _ int) (domain.Message, bool) {
		msg, err := c.toMessage(env)
		if err != nil {
			c.log.Warn("Dropping malformed history entry", "error", err)
			return domain.Message{}, false
		}
		return msg, true
	})
	return messages, nil
}

// SendMessage posts one outbound message and returns the persisted envelope
// with its canonical id.
func (c *Client) SendMessage(ctx context.Context, text string) (domain.Message, error) {
	payload := sendRequest{Content: text, MessageType: "text"}
	body, err := c.doRequest(ctx, http.MethodPost, "/connect/thread/messages", payload, nil)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrSendRejected, err)
	}

	var env messageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Message{}, fmt.Errorf("%w: decode: %v", errors.ErrSendRejected, err)
	}
	msg, err := c.toMessage(env)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrSendRejected, err)
	}
	return msg, nil
}

func (c *Client) toMessage(env messageEnvelope) (domain.Message, error) {
	if err := c.validate.Struct(env); err != nil {
		return domain.Message{}, err
	}
	at, err := parseTimestamp(env.Timestamp)
	if err != nil {
		return domain.Message{}, fmt.Errorf("timestamp %q: %w", env.Timestamp, err)
	}
	return domain.Message{
		ID:         env.ID.String(),
		SenderID:   env.SenderID,
		SenderName: env.SenderName,
		Sender:     domain.ClassifySender(env.SenderID, c.identity),
		Text:       env.Content,
		SentAt:     at,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

// parseTimestamp accepts both RFC3339 and the backend's zone-less ISO form.
func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	} {
		if at, err := time.Parse(layout, raw); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported layout")
}

func truncate(data []byte, limit int) string {
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
