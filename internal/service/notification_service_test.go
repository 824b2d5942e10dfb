package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/events"
)

func newTestNotifier(url string, retries int) *NotificationService {
	n := NewNotificationService(nil, config.NotificationConfig{WebhookURL: url, MaxRetries: retries, TimeoutSeconds: 2})
	n.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return n
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var received events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, string(events.EventIssueRejected), r.Header.Get("X-Event-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL, 5).Deliver(context.Background(), events.Event{
		ID:      "e1",
		Type:    events.EventIssueRejected,
		IssueID: "i1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, "i1", received.IssueID)
}

func TestWebhookStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL, 5).Deliver(context.Background(), events.Event{Type: events.EventIssueReported})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestWebhookGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL, 2).Deliver(context.Background(), events.Event{Type: events.EventIssueUpvoted})
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDeliverWithoutWebhookOnlyLogsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewNotificationService(zap.New(core), config.NotificationConfig{MaxRetries: 3})

	for _, eventType := range events.AllEventTypes() {
		require.NoError(t, n.Deliver(context.Background(), events.Event{Type: eventType, IssueID: "i1"}))
	}

	entries := logs.All()
	require.Len(t, entries, len(events.AllEventTypes()))
	for _, entry := range entries {
		assert.Equal(t, "issue event", entry.Message)
	}
}
