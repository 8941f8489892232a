package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connect-sync/domain"
	conerrors "connect-sync/errors"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(server.URL, "token-123", "alice", 5*time.Second, 50, log)
}

func TestClient_ResolveThread(t *testing.T) {
	// Given a backend that returns the user's thread
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/connect/thread", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             7,
			"user_id":        "alice",
			"recipient_name": "Support",
			"is_online":      true,
			"unread_count":   3,
			"created_at":     "2026-08-30T10:00:00",
		})
	})

	// When the thread is resolved
	thread, err := client.ResolveThread(context.Background())

	// Then the envelope maps onto the domain shape
	require.NoError(t, err)
	require.Equal(t, domain.ThreadID(7), thread.ID)
	require.Equal(t, "Support", thread.RecipientName)
	require.True(t, thread.IsOnline)
	require.Equal(t, 3, thread.UnreadCount)
}

func TestClient_FetchHistory_MapsAndClassifiesMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/connect/thread/messages", r.URL.Path)
		require.Empty(t, r.URL.Query().Get("before"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":        1,
				"sender_id": "support-1",
				"content":   "hello",
				"timestamp": "2026-08-31T09:00:00",
			},
			{
				"id":        2,
				"sender_id": "alice",
				"content":   "hi",
				"timestamp": "2026-08-31T09:00:05.123456",
			},
		})
	})

	messages, err := client.FetchHistory(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "1", messages[0].ID)
	require.Equal(t, domain.SenderAssistant, messages[0].Sender)
	require.Equal(t, domain.SenderUser, messages[1].Sender)
	require.Equal(t, 2026, messages[1].SentAt.Year())
}

func TestClient_FetchHistory_PassesThePageSizeAndBeforeCursor(t *testing.T) {
	var gotLimit, gotBefore string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		gotBefore = r.URL.Query().Get("before")
		_, _ = w.Write([]byte("[]"))
	})

	cursor := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	_, err := client.FetchHistory(context.Background(), &cursor)

	require.NoError(t, err)
	require.Equal(t, "50", gotLimit)
	require.Equal(t, "2026-08-31T09:00:00Z", gotBefore)
}

func TestClient_FetchHistory_DropsMalformedEntriesAndKeepsTheRest(t *testing.T) {
	// Given one entry without a sender and one valid entry
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "content": "no sender", "timestamp": "2026-08-31T09:00:00"},
			{"id": 2, "sender_id": "alice", "content": "fine", "timestamp": "2026-08-31T09:00:05"},
		})
	})

	messages, err := client.FetchHistory(context.Background(), nil)

	// Then the malformed entry is dropped, never fatal
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "2", messages[0].ID)
}

func TestClient_SendMessage_ReturnsTheCanonicalEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "my order is late", payload["content"])
		require.Equal(t, "text", payload["message_type"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        42,
			"sender_id": "alice",
			"content":   payload["content"],
			"timestamp": "2026-08-31T09:01:00",
		})
	})

	msg, err := client.SendMessage(context.Background(), "my order is late")

	require.NoError(t, err)
	require.Equal(t, "42", msg.ID)
	require.True(t, msg.Confirmed())
	require.Equal(t, domain.SenderUser, msg.Sender)
}

func TestClient_SendMessage_WrapsBackendRejections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "thread is closed", http.StatusConflict)
	})

	_, err := client.SendMessage(context.Background(), "too late")

	require.ErrorIs(t, err, conerrors.ErrSendRejected)
	require.Contains(t, err.Error(), "409")
}
