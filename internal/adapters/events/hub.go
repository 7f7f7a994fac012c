package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
)

const subscriberBuffer = 100

// hub fans events out to per-channel subscriber queues. Slow subscribers
// drop events instead of blocking the publisher.
type hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.FeedbackEvent]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[string]map[chan *entities.FeedbackEvent]struct{})}
}

// add registers a new queue on channel.
func (h *hub) add(channel string) chan *entities.FeedbackEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[channel] == nil {
		h.subscribers[channel] = make(map[chan *entities.FeedbackEvent]struct{})
	}
	ch := make(chan *entities.FeedbackEvent, subscriberBuffer)
	h.subscribers[channel][ch] = struct{}{}
	return ch
}

// remove closes one queue and reports whether the channel has none left.
func (h *hub) remove(channel string, ch chan *entities.FeedbackEvent) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}
	delete(subs, ch)
	close(ch)

	if len(subs) == 0 {
		delete(h.subscribers, channel)
		return true
	}
	return false
}

// drop closes every queue on channel.
func (h *hub) drop(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[channel] {
		close(ch)
	}
	delete(h.subscribers, channel)
}

func (h *hub) channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.subscribers))
	for channel := range h.subscribers {
		out = append(out, channel)
	}
	return out
}

func (h *hub) broadcast(channel string, event *entities.FeedbackEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[channel] {
		select {
		case ch <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber queue full, dropping event")
		}
	}
}

func (h *hub) count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}
