package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
)

// RateLimiter caps submissions per key in fixed windows. It counts in Redis
// when a counter is configured and falls back to process memory otherwise or
// when Redis errors.
type RateLimiter struct {
	counter providers.CounterProvider
	local   *localRateLimiter
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a limiter; counter may be nil.
func NewRateLimiter(counter providers.CounterProvider, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		local:   newLocalRateLimiter(),
		limit:   limit,
		window:  window,
	}
}

// Allow records one attempt and reports whether it is within the limit.
// When refused, the duration says how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.counter != nil {
		count, remaining, err := l.counter.Increment(ctx, key, l.window)
		if err == nil {
			return count <= int64(l.limit), remaining
		}
		log.Warn().Err(err).Msg("Rate limit counter unavailable, using local limiter")
	}
	return l.local.allow(key, l.limit, l.window)
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, s := range l.states {
		if now.After(s.resetAt) {
			delete(l.states, k)
		}
	}

	state, ok := l.states[key]
	if !ok {
		state = &localRateState{resetAt: now.Add(window)}
		l.states[key] = state
	}

	retryAfter := state.resetAt.Sub(now)
	if state.count >= limit {
		return false, retryAfter
	}

	state.count++
	return true, retryAfter
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
