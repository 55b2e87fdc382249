package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/internal/handlers"
	"github.com/jwebster45206/adventure-console/internal/services"
	"github.com/jwebster45206/adventure-console/pkg/narrative"
	"github.com/jwebster45206/adventure-console/pkg/state"
	"github.com/jwebster45206/adventure-console/pkg/world"
)

func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

// scriptedNarrator answers a few fixed commands and echoes the rest.
func scriptedNarrator(ctx context.Context, req services.GenerationRequest) (*narrative.StructuredResponse, error) {
	resp := &narrative.StructuredResponse{
		Narrative: "You " + strings.ToLower(req.Command) + ".",
		VisualCue: narrative.VisualNone,
		SoundCue:  narrative.SoundNone,
	}
	switch strings.ToLower(req.Command) {
	case "take the lantern":
		resp.Narrative = "You lift the brass lantern from its hook."
		resp.StateDelta.AddItem = "lantern"
	case "drop the lantern":
		resp.Narrative = "The lantern clatters to the floor."
		resp.StateDelta.RemoveItem = "lantern"
	case "touch the brambles":
		resp.Narrative = "Thorns bite into your palm."
		resp.StateDelta.HealthChange = intPtr(-15)
	case "leap into the chasm":
		resp.Narrative = "You fall for a long, long time."
		resp.StateDelta.HealthChange = intPtr(-state.MaxHealth)
	}
	return resp, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	pack, err := world.Default()
	require.NoError(t, err)

	mock := services.NewMockGenerator()
	mock.GenerateFunc = scriptedNarrator

	logger := slog.New(slog.DiscardHandler)
	orch, err := game.New(game.Options{
		Generator: mock,
		Worlds:    pack,
		Logger:    logger,
	})
	require.NoError(t, err)
	orch.Initialize(context.Background())

	mux := http.NewServeMux()
	mux.Handle("/v1/", handlers.NewGameHandler(orch, logger))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	server := newTestServer(t)
	r := NewRunner(server.URL + "/")
	r.Timeout = 5 * time.Second
	r.Logger = t.Logf
	return r
}

func TestRunSuite_PassingSteps(t *testing.T) {
	r := newTestRunner(t)

	suite := TestSuite{
		Name:  "lantern",
		World: "derelict",
		Steps: []TestStep{
			{
				Name:    "pick up",
				Command: "take the lantern",
				Expectations: Expectations{
					Inventory:        []string{"Lantern"},
					Health:           intPtr(state.MaxHealth),
					ResponseContains: []string{"brass lantern"},
					Phase:            strPtr("playing"),
				},
			},
			{
				Name:    "hurt",
				Command: "touch the brambles",
				Expectations: Expectations{
					Health:              intPtr(state.MaxHealth - 15),
					Holding:             []string{"lantern"},
					ResponseRegex:       `(?i)thorns`,
					ResponseNotContains: []string{"lantern"},
				},
			},
			{
				Name:    "drop",
				Command: "drop the lantern",
				Expectations: Expectations{
					NotHolding:        []string{"lantern"},
					ResponseMinLength: intPtr(5),
					ResponseMaxLength: intPtr(200),
				},
			},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	for _, step := range result.Results {
		assert.True(t, step.Success, "step %s: %v", step.StepName, step.Error)
		assert.Equal(t, "lantern", step.TestName)
	}
	assert.Greater(t, result.Session, uint64(1))
}

func TestRunSuite_GameOverRejectsCommands(t *testing.T) {
	r := newTestRunner(t)

	suite := TestSuite{
		Name: "chasm",
		Steps: []TestStep{
			{
				Name:    "fall",
				Command: "leap into the chasm",
				Expectations: Expectations{
					Health:   intPtr(0),
					GameOver: boolPtr(true),
					Phase:    strPtr("game_over"),
				},
			},
			{
				Name:         "too late",
				Command:      "climb out",
				Expectations: Expectations{Status: intPtr(http.StatusConflict)},
			},
			{
				Name:    "start over",
				Command: ResetGamePrompt,
			},
			{
				Name:    "alive again",
				Command: "look around",
				Expectations: Expectations{
					GameOver: boolPtr(false),
					Health:   intPtr(state.MaxHealth),
				},
			},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 4)
	assert.True(t, result.Results[2].IsReset)
}

func TestRunSuite_ContinueAndExitModes(t *testing.T) {
	failing := TestSuite{
		Name: "wrong",
		Steps: []TestStep{
			{Name: "bad", Command: "look", Expectations: Expectations{Health: intPtr(1)}},
			{Name: "good", Command: "look"},
		},
	}

	r := newTestRunner(t)
	result, err := r.RunSuite(context.Background(), failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (bad) failed")
	assert.Contains(t, err.Error(), "health: expected 1")
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[1].Success)

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(context.Background(), failing)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_UnknownWorld(t *testing.T) {
	r := newTestRunner(t)
	r.WorldOverride = "atlantis"

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "lost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "world change returned 404")
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	write("a.json", `{"name":"a","world":"derelict","steps":[{"command":"look","expect":{"health":100}}]}`)
	write("b.json", `{"name":"b","steps":[{"command":"RESET_GAME"}]}`)
	write("inner.json", `{"name":"inner","cases":["b.json"]}`)
	outer := write("outer.json", `{"name":"outer","cases":["a.json","inner.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(outer, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "derelict", jobs[0].Suite.World)
	assert.Equal(t, 100, *jobs[0].Suite.Steps[0].Expectations.Health)
	assert.Equal(t, "b", jobs[1].Name)

	write("broken.json", `{"name":"broken","cases":["missing.json"]}`)
	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")

	write("garbage.json", `{not json`)
	_, err = LoadTestSuite(filepath.Join(dir, "garbage.json"))
	require.Error(t, err)
}

func TestCheckExpectations(t *testing.T) {
	snap := &game.Snapshot{
		Phase: game.PhasePlaying,
		Player: state.PlayerState{
			Health:    40,
			Inventory: []string{"rope", "key"},
		},
	}

	assert.NoError(t, checkExpectations(Expectations{
		Inventory: []string{"KEY", "rope"},
		Health:    intPtr(40),
	}, snap, "A cold wind."))

	err := checkExpectations(Expectations{
		Inventory:        []string{"rope"},
		Holding:          []string{"torch"},
		NotHolding:       []string{"key"},
		GameOver:         boolPtr(true),
		ResponseContains: []string{"warm"},
		ResponseRegex:    "(",
	}, snap, "A cold wind.")
	require.Error(t, err)
	for _, want := range []string{"inventory: expected [rope]", `hold "torch"`, `not to hold "key"`, "game_over", `contain "warm"`, "invalid pattern"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestWaitForIdle_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":1,"phase":"initializing","processing":true}`))
	}))
	defer server.Close()

	orig := PollInterval
	PollInterval = 10 * time.Millisecond
	defer func() { PollInterval = orig }()

	snap, err := WaitForIdle(context.Background(), server.Client(), server.URL, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still processing (phase initializing)")
	require.NotNil(t, snap)
	assert.True(t, snap.Processing)
}

func TestWaitForIdle_KeepsLastSnapshotAcrossFailedPolls(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"session":2,"phase":"processing","processing":true}`))
			return
		}
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	orig := PollInterval
	PollInterval = 10 * time.Millisecond
	defer func() { PollInterval = orig }()

	snap, err := WaitForIdle(context.Background(), server.Client(), server.URL, 60*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still processing (phase processing)")
	require.NotNil(t, snap)
	assert.Equal(t, uint64(2), snap.Session)
}

func TestWaitForIdle_UnreachableAndCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	orig := PollInterval
	PollInterval = 10 * time.Millisecond
	defer func() { PollInterval = orig }()

	_, err := WaitForIdle(context.Background(), server.Client(), server.URL, 40*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state endpoint returned 500")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WaitForIdle(ctx, server.Client(), server.URL, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForIdle_ReturnsIdleSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session":4,"phase":"playing","processing":false}`))
	}))
	defer server.Close()

	snap, err := WaitForIdle(context.Background(), server.Client(), server.URL, time.Second)
	require.NoError(t, err)
	assert.Equal(t, game.PhasePlaying, snap.Phase)
}
