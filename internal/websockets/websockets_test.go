package websockets

import (
	"testing"

	"fitadmin/internal/events"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_BroadcastReachesRegisteredClients(t *testing.T) {
	bus := events.New()
	manager, err := New(bus)
	require.NoError(t, err)
	defer manager.Close()

	client := manager.register()
	assert.Equal(t, 1, manager.ClientCount())

	require.NoError(t, bus.Publish(events.ChannelDashboard, events.Event{
		Type: events.TypeSyncCompleted,
		Data: map[string]any{"synced": 3},
	}))

	payload := <-client.send
	var event events.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, events.TypeSyncCompleted, event.Type)
	assert.EqualValues(t, 3, event.Data["synced"])

	manager.unregister(client)
	assert.Equal(t, 0, manager.ClientCount())
}

func TestManager_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := events.New()
	manager, err := New(bus)
	require.NoError(t, err)
	defer manager.Close()

	manager.register()
	for i := 0; i < sendBufferSize+5; i++ {
		manager.Broadcast(events.Event{Type: events.TypeSubjectChanged})
	}
}

func TestNew_ClosedBus(t *testing.T) {
	bus := events.New()
	require.NoError(t, bus.Close())

	_, err := New(bus)
	assert.Error(t, err)
}
