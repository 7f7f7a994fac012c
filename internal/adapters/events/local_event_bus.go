package events

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
)

// ErrBusClosed is returned after Close.
var ErrBusClosed = errors.New("event bus closed")

// LocalEventBus delivers events within one process. It is used when Redis
// is disabled, so the API and stream handlers must share a process.
type LocalEventBus struct {
	hub    *hub
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{hub: newHub(), done: make(chan struct{})}
}

// Publish delivers event to current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.hub.broadcast(channel, event)
	return nil
}

// Subscribe returns a queue that closes when ctx is done or the bus closes
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	ch := b.hub.add(channel)
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			b.hub.remove(channel, ch)
		case <-b.done:
		}
	}()
	return ch, nil
}

// Unsubscribe closes every subscriber queue on channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.hub.drop(channel)
	return nil
}

// Close closes all subscriber queues
func (b *LocalEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	for _, channel := range b.hub.channels() {
		b.hub.drop(channel)
	}
	return nil
}
