package typesense

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

func TestFeedbackSchema(t *testing.T) {
	schema := FeedbackSchema()

	assert.Equal(t, FeedbackCollection, schema.Name)
	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "row", *schema.DefaultSortingField)

	names := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"id", "row", "request_id", "rating", "comment", "email", "contact_email"}, names)
}

func TestClient_Integration(t *testing.T) {
	url := os.Getenv("TYPESENSE_URL")
	if url == "" {
		t.Skip("TYPESENSE_URL not set")
	}

	client, err := NewClient(context.Background(), &config.TypesenseConfig{URL: url, APIKey: os.Getenv("TYPESENSE_API_KEY")})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.InitSchema(ctx))
	require.NoError(t, client.InitSchema(ctx))
	require.NoError(t, client.DropCollection(ctx))
	require.NoError(t, client.DropCollection(ctx))
}
