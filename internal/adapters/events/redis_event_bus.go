package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	redisclient "github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/redis"
)

// RedisEventBus implements EventBus with Redis Pub/Sub, so the API process
// can publish and separate stream processes can listen.
type RedisEventBus struct {
	client *redisclient.Client
	hub    *hub

	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
	receivers     sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		hub:           newHub(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.FeedbackEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Msg("Published event")
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.FeedbackEvent, error) {
	// hub membership and the Redis subscription change together under mu, so a
	// departing last subscriber never closes the pubsub a new one relies on.
	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	ch := b.hub.add(channel)
	if _, ok := b.subscriptions[channel]; !ok {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		b.subscriptions[channel] = pubsub
		b.receivers.Add(1)
		go b.receive(channel, pubsub)
	}
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", b.hub.count(channel)).Msg("Subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			var pubsub *redis.PubSub
			if b.hub.remove(channel, ch) {
				pubsub = b.detach(channel)
			}
			b.mu.Unlock()
			if err := closePubSub(channel, pubsub); err != nil {
				log.Warn().Err(err).Msg("Failed to close subscription")
			}
		case <-b.ctx.Done():
		}
	}()

	return ch, nil
}

func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	defer b.receivers.Done()

	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event entities.FeedbackEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal event")
				continue
			}
			b.hub.broadcast(channel, &event)
		}
	}
}

// detach forgets the channel's pubsub and returns it. Callers hold mu.
func (b *RedisEventBus) detach(channel string) *redis.PubSub {
	pubsub := b.subscriptions[channel]
	delete(b.subscriptions, channel)
	return pubsub
}

func closePubSub(channel string, pubsub *redis.PubSub) error {
	if pubsub == nil {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("Closed subscription")
	return nil
}

// Unsubscribe drops every subscriber on a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	b.hub.drop(channel)
	pubsub := b.detach(channel)
	b.mu.Unlock()
	return closePubSub(channel, pubsub)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	b.cancel()
	detached := make(map[string]*redis.PubSub, len(b.subscriptions))
	for channel := range b.subscriptions {
		detached[channel] = b.detach(channel)
	}
	b.mu.Unlock()

	var errs []error
	for channel, pubsub := range detached {
		if err := closePubSub(channel, pubsub); err != nil {
			errs = append(errs, err)
		}
	}
	b.receivers.Wait()

	for _, channel := range b.hub.channels() {
		b.hub.drop(channel)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}
	log.Info().Msg("Event bus closed")
	return nil
}
