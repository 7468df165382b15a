package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := New()

	var received []Event
	unsubscribe, err := bus.Subscribe(ChannelDashboard, func(e Event) {
		received = append(received, e)
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ChannelDashboard, Event{Type: TypeSyncCompleted}))
	require.NoError(t, bus.Publish("other", Event{Type: "ignored"}))

	require.Len(t, received, 1)
	assert.Equal(t, TypeSyncCompleted, received[0].Type)
	assert.Equal(t, ChannelDashboard, received[0].Channel)
	assert.NotEmpty(t, received[0].ID)
	assert.False(t, received[0].Timestamp.IsZero())

	unsubscribe()
	require.NoError(t, bus.Publish(ChannelDashboard, Event{Type: TypeSyncCompleted}))
	assert.Len(t, received, 1)
}

func TestEventBus_Closed(t *testing.T) {
	bus := New()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(ChannelDashboard, Event{}), ErrClosed)

	_, err := bus.Subscribe(ChannelDashboard, func(Event) {})
	assert.ErrorIs(t, err, ErrClosed)
}
