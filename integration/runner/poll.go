package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/adventure-console/internal/game"
)

// PollInterval is how often to check state while waiting
var PollInterval = 250 * time.Millisecond

// GetState fetches the session snapshot
func GetState(ctx context.Context, client *http.Client, baseURL string) (*game.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/state", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create state request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("state endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var snap game.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &snap, nil
}

// WaitForIdle polls state until no narrator round-trip is in flight. Each
// poll runs on ctx, so a single slow request is bounded by the client's
// own timeout rather than cut off by the overall wait.
func WaitForIdle(ctx context.Context, client *http.Client, baseURL string, timeout time.Duration) (*game.Snapshot, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last *game.Snapshot
	var lastErr error
	for {
		snap, err := GetState(ctx, client, baseURL)
		switch {
		case err != nil:
			lastErr = err
		case !snap.Processing:
			return snap, nil
		default:
			last = snap
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for idle: %w", ctx.Err())
		case <-deadline.C:
			if last != nil {
				return last, fmt.Errorf("timed out waiting for idle: still processing (phase %s)", last.Phase)
			}
			return nil, fmt.Errorf("timed out waiting for idle: %w", lastErr)
		case <-ticker.C:
		}
	}
}
