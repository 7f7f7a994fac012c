package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	tsclient "github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/typesense"
)

func TestBuildDocument(t *testing.T) {
	doc := buildDocument(3, entities.FeedbackRecord{RequestID: 42, Rating: 4, Comment: "quick answers"})

	assert.Equal(t, map[string]interface{}{
		"id":         "row-3",
		"row":        3,
		"request_id": int64(42),
		"rating":     4,
		"comment":    "quick answers",
	}, doc)

	withEmails := buildDocument(0, entities.FeedbackRecord{RequestID: 1, Rating: 1, Email: "a@b.com", ContactEmail: "me@corp.example"})
	assert.Equal(t, "a@b.com", withEmails["email"])
	assert.Equal(t, "me@corp.example", withEmails["contact_email"])
}

func TestParseDocument(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"row-7","row":7,"request_id":9001,"rating":2,"comment":"slow","email":"x@y.z"}`), &doc))

	hit := parseDocument(doc)

	assert.Equal(t, entities.FeedbackSearchHit{
		Row:    7,
		Record: entities.FeedbackRecord{RequestID: 9001, Rating: 2, Comment: "slow", Email: "x@y.z"},
	}, hit)
	assert.Equal(t, entities.FeedbackSearchHit{}, parseDocument(map[string]interface{}{}))
}

func TestFeedbackSearchAdapter_Search(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/feedback/documents/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "comment", r.URL.Query().Get("query_by"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"found": 1,
			"out_of": 2,
			"page": 1,
			"search_time_ms": 1,
			"hits": [{"document": {"id":"row-1","row":1,"request_id":55,"rating":5,"comment":"very helpful"}}]
		}`))
	}))
	defer server.Close()

	client := tsclient.NewFromClient(typesense.NewClient(typesense.WithServer(server.URL), typesense.WithAPIKey("test")))
	adapter := NewFeedbackSearchAdapter(client)

	hits, err := adapter.Search(context.Background(), "  helpful ", 5)

	require.NoError(t, err)
	assert.Equal(t, "helpful", gotQuery)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Row)
	assert.Equal(t, int64(55), hits[0].Record.RequestID)
	assert.Equal(t, "very helpful", hits[0].Record.Comment)
}

func TestFeedbackSearchAdapter_SearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not found."}`))
	}))
	defer server.Close()

	client := tsclient.NewFromClient(typesense.NewClient(typesense.WithServer(server.URL), typesense.WithAPIKey("test")))
	adapter := NewFeedbackSearchAdapter(client)

	_, err := adapter.Search(context.Background(), "anything", 0)

	assert.Error(t, err)
}
