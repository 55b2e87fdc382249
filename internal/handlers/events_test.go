package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/internal/services/events"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
)

func TestEventsHandler_StreamsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	broadcaster := events.NewBroadcaster(client, testLogger())

	server := httptest.NewServer(NewEventsHandler(broadcaster, testLogger()))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	waitFor := func(prefix string) string {
		t.Helper()
		timeout := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed before %q", prefix)
				}
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-timeout:
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	waitFor("event: connected")

	entry := storylog.Entry{ID: "e1", Kind: storylog.KindNarrator, Content: "Lightning splits the sky."}
	require.NoError(t, broadcaster.Publish(context.Background(), game.Event{Type: game.EventEntryAppended, Session: 1, Entry: &entry}))

	waitFor("event: entry.appended")
	data := waitFor("data: ")
	assert.Contains(t, data, "Lightning splits the sky.")
}

func TestEventsHandler_MethodNotAllowed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	h := NewEventsHandler(events.NewBroadcaster(client, testLogger()), testLogger())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
