package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/adapters/events"
	"github.com/zatekoja/sheetfeedback/internal/adapters/memory"
	"github.com/zatekoja/sheetfeedback/internal/api/handlers"
	"github.com/zatekoja/sheetfeedback/internal/api/routes"
	"github.com/zatekoja/sheetfeedback/internal/api/session"
	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

func newServer(t *testing.T) (*httptest.Server, *routes.Router) {
	t.Helper()
	service := services.NewFeedbackService(memory.NewFeedbackAdapter())
	bus := events.NewLocalEventBus()
	t.Cleanup(func() { bus.Close() })
	service.SetEventBus(bus)

	sessions, err := session.NewManager(
		config.SessionConfig{CookieName: "feedback_session", Secret: "router", MaxAge: time.Hour},
		config.IdentityConfig{},
	)
	require.NoError(t, err)

	router := routes.NewRouter(
		handlers.NewFeedbackHandler(service, sessions, handlers.NewRateLimiter(nil, 10, time.Minute)),
		handlers.NewSSEHandler(bus),
		nil,
		[]string{"*"},
		nil,
	)
	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server, router
}

func TestRouter_SubmitThenList(t *testing.T) {
	server, _ := newServer(t)
	client := server.Client()

	resp, err := client.Post(server.URL+"/api/feedback", "application/json", strings.NewReader(`{"rating":4,"comment":"nice"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.Get(server.URL + "/api/feedback")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	server, _ := newServer(t)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/feedback", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_Health(t *testing.T) {
	server, router := newServer(t)

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	router.SetHealthCheck(func() error { return errors.New("Unable to connect to storage") })
	resp, err = server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_StreamReceivesSubmission(t *testing.T) {
	server, _ := newServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/stream/feedback", nil)
	require.NoError(t, err)
	stream, err := server.Client().Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	resp, err := server.Client().Post(server.URL+"/api/feedback", "application/json", strings.NewReader(`{"rating":5}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	buf := make([]byte, 4096)
	var received strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(received.String(), "feedback_submitted") {
		n, err := stream.Body.Read(buf)
		received.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, received.String(), "event: feedback_submitted")
}
