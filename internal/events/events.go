package events

import (
	"errors"
	"sync"
	"time"

	"fitadmin/internal/logger"

	"github.com/google/uuid"
)

const (
	ChannelDashboard = "dashboard"

	TypeSyncCompleted  = "sync.completed"
	TypeSubjectChanged = "subject.changed"
)

var ErrClosed = errors.New("event bus closed")

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Handler func(Event)

// EventBus fans events out to in-process subscribers. Handlers run on the
// publisher's goroutine and must not block.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]Handler
	closed      bool
	log         logger.Logger
}

func New() *EventBus {
	return &EventBus{
		subscribers: make(map[string]map[string]Handler),
		log:         logger.New("EventBus"),
	}
}

// Subscribe registers handler on channel and returns an unsubscribe func.
func (b *EventBus) Subscribe(channel string, handler Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[string]Handler)
	}
	b.subscribers[channel][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers[channel], id)
	}, nil
}

func (b *EventBus) Publish(channel string, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(b.subscribers[channel]))
	for _, handler := range b.subscribers[channel] {
		handlers = append(handlers, handler)
	}
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Channel == "" {
		event.Channel = channel
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	for _, handler := range handlers {
		handler(event)
	}

	b.log.Function("Publish").Debug("published event", "channel", channel, "type", event.Type, "subscribers", len(handlers))
	return nil
}

func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subscribers = make(map[string]map[string]Handler)
	return nil
}
