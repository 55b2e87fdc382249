package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/pkg/narrative"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

func setupGame(t *testing.T) (*GameHandler, *game.Orchestrator, *services.MockGenerator) {
	t.Helper()
	pack, err := world.Default()
	require.NoError(t, err)
	mock := services.NewMockGenerator()
	orch, err := game.New(game.Options{Generator: mock, Worlds: pack})
	require.NoError(t, err)
	orch.Initialize(context.Background())
	return NewGameHandler(orch, testLogger()), orch, mock
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGameHandler_State(t *testing.T) {
	h, _, _ := setupGame(t)

	rr := do(t, h, http.MethodGet, "/v1/state", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var snap game.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, game.PhasePlaying, snap.Phase)
	assert.Equal(t, 100, snap.Player.Health)
	assert.Len(t, snap.Entries, 1)
	assert.Equal(t, "shattered-crown", snap.World.Key)
}

func TestGameHandler_Command(t *testing.T) {
	h, orch, mock := setupGame(t)
	mock.SetResponse(narrative.StructuredResponse{
		Narrative:  "You grab the lantern.",
		VisualCue:  narrative.VisualNone,
		SoundCue:   narrative.SoundNone,
		StateDelta: narrative.StateDelta{AddItem: "lantern"},
	})

	rr := do(t, h, http.MethodPost, "/v1/command", map[string]string{"command": "take lantern"})
	require.Equal(t, http.StatusOK, rr.Code)

	var snap game.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, []string{"lantern"}, snap.Player.Inventory)
	assertSameEntries(t, orch.Entries(), snap.Entries)

	last, _ := mock.LastCall()
	assert.Equal(t, "take lantern", last.Command)
}

func TestGameHandler_CommandErrors(t *testing.T) {
	h, orch, mock := setupGame(t)

	rr := do(t, h, http.MethodPost, "/v1/command", "{bad json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/command", map[string]string{"command": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/command", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))

	health := -200
	mock.SetResponse(narrative.StructuredResponse{
		Narrative:  "The roof collapses.",
		VisualCue:  narrative.VisualNone,
		SoundCue:   narrative.SoundNone,
		StateDelta: narrative.StateDelta{HealthChange: &health},
	})
	rr = do(t, h, http.MethodPost, "/v1/command", map[string]string{"command": "pull the lever"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, orch.Player().IsGameOver)

	rr = do(t, h, http.MethodPost, "/v1/command", map[string]string{"command": "look"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, game.ErrGameOver.Error(), errResp.Error)
}

func TestGameHandler_ResetAndLog(t *testing.T) {
	h, orch, _ := setupGame(t)
	require.NoError(t, orch.SubmitCommand(context.Background(), "wave"))
	first := orch.Entries()[0]

	rr := do(t, h, http.MethodGet, "/v1/log?since="+first.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logResp LogResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&logResp))
	assert.Equal(t, []storylog.Kind{storylog.KindPlayer, storylog.KindNarrator}, []storylog.Kind{logResp.Entries[0].Kind, logResp.Entries[1].Kind})

	session := orch.Session()
	rr = do(t, h, http.MethodPost, "/v1/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, session+1, orch.Session())

	rr = do(t, h, http.MethodGet, "/v1/log", nil)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&logResp))
	assert.Len(t, logResp.Entries, 1)
	assert.Equal(t, session+1, logResp.Session)
}

func TestGameHandler_Worlds(t *testing.T) {
	h, orch, _ := setupGame(t)

	rr := do(t, h, http.MethodGet, "/v1/worlds", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var worlds WorldsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&worlds))
	assert.Equal(t, "shattered-crown", worlds.Current)
	assert.Len(t, worlds.Worlds, 3)
	assert.Empty(t, worlds.Worlds[0].SystemPrompt, "prompts are not exposed")

	rr = do(t, h, http.MethodPost, "/v1/world", WorldRequest{World: "derelict"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "derelict", orch.World().Key)

	session := orch.Session()
	rr = do(t, h, http.MethodPost, "/v1/world", WorldRequest{World: "atlantis"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, session, orch.Session())
}

func TestGameHandler_Preferences(t *testing.T) {
	h, orch, _ := setupGame(t)

	rr := do(t, h, http.MethodPatch, "/v1/preferences", map[string]any{"muted": true, "textSpeed": "fast"})
	require.Equal(t, http.StatusOK, rr.Code)
	prefs := orch.Preferences()
	assert.True(t, prefs.Muted)
	assert.Equal(t, typewriter.SpeedFast, prefs.TextSpeed)

	rr = do(t, h, http.MethodPatch, "/v1/preferences", map[string]any{"textSpeed": "plaid"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, typewriter.SpeedFast, orch.Preferences().TextSpeed)
}

func TestGameHandler_NotFound(t *testing.T) {
	h, _, _ := setupGame(t)
	rr := do(t, h, http.MethodGet, "/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// assertSameEntries compares entries that went through JSON, where
// timestamps lose their monotonic reading and location.
func assertSameEntries(t *testing.T, want, got []storylog.Entry) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "entry %d id", i)
		assert.Equal(t, want[i].Kind, got[i].Kind, "entry %d kind", i)
		assert.Equal(t, want[i].Content, got[i].Content, "entry %d content", i)
		assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt), "entry %d created at: want %v, got %v", i, want[i].CreatedAt, got[i].CreatedAt)
	}
}
