package tracking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     "trk_test",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestTrack(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Track(context.Background(), Event{
		Name:       "Updated Subscription",
		Properties: map[string]any{"customer": "cus_1"},
		UserID:     "author_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/t", gotPath)
	assert.Equal(t, "Bearer trk_test", gotAuth)
	assert.Equal(t, "Updated Subscription", gotBody["event"])
	assert.Equal(t, "author_1", gotBody["userId"])
	assert.NotEmpty(t, gotBody["messageId"])
}

func TestTrackNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Track(context.Background(), Event{Name: "Failed Invoice Payment"})
	require.Error(t, err)
}

func TestTrackRequiresConfiguration(t *testing.T) {
	client := newTestClient("")
	require.Error(t, client.Track(context.Background(), Event{Name: "Updated Subscription"}))

	client = newTestClient("http://localhost:9")
	require.Error(t, client.Track(context.Background(), Event{Name: ""}))
}
