package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicfix/civicfix-server/internal/events"
)

type recordingDeliverer struct {
	mu    sync.Mutex
	seen  []events.EventType
	fails bool
}

func (r *recordingDeliverer) Deliver(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, event.Type)
	if r.fails {
		return errors.New("unreachable")
	}
	return nil
}

func TestWorkerDeliversDispatchedEvents(t *testing.T) {
	dispatcher := events.NewDispatcher()
	deliverer := &recordingDeliverer{}
	w := NewNotificationWorker(deliverer, nil, 8)
	StartNotificationWorker(context.Background(), dispatcher, w, 2)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueReported}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueBoosted}))
	w.Stop()

	assert.ElementsMatch(t, []events.EventType{events.EventIssueReported, events.EventIssueBoosted}, deliverer.seen)
}

func TestWorkerDropsWhenFullOrStopped(t *testing.T) {
	w := NewNotificationWorker(&recordingDeliverer{}, nil, 1)
	assert.True(t, w.Enqueue(events.Event{Type: events.EventIssueUpvoted}))
	assert.False(t, w.Enqueue(events.Event{Type: events.EventIssueUpvoted}))

	w.Start(context.Background(), 1)
	w.Stop()
	assert.False(t, w.Enqueue(events.Event{Type: events.EventIssueUpvoted}))
}

func TestWorkerSurvivesDeliveryErrors(t *testing.T) {
	deliverer := &recordingDeliverer{fails: true}
	w := NewNotificationWorker(deliverer, nil, 4)
	w.Start(context.Background(), 1)
	w.Enqueue(events.Event{Type: events.EventIssueDeleted})
	w.Enqueue(events.Event{Type: events.EventIssueDeleted})
	w.Stop()
	assert.Len(t, deliverer.seen, 2)
}
