package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventIssueReported, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.IssueID)
		return boom
	})
	d.Subscribe(EventIssueReported, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.IssueID)
		return nil
	})
	d.Subscribe(EventIssueDeleted, func(context.Context, Event) error {
		calls = append(calls, "deleted")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventIssueReported, IssueID: "i1"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:i1", "second:i1"}, calls)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventIssueBoosted}))
}

func TestSubscribeFromHandlerAppliesToLaterEvents(t *testing.T) {
	d := NewDispatcher()
	var late int
	d.Subscribe(EventIssueAssigned, func(context.Context, Event) error {
		d.Subscribe(EventIssueAssigned, func(context.Context, Event) error {
			late++
			return nil
		})
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventIssueAssigned, IssueID: "i1"}))
	assert.Equal(t, 0, late)
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventIssueAssigned, IssueID: "i1"}))
	assert.Equal(t, 1, late)
}
