package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/pkg/chat"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running adventure-console API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	WorldOverride     string // If set, overrides the world for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// A sequence may reference another sequence
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a fresh play-through and executes every step in order
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	worldKey := suite.World
	if r.WorldOverride != "" {
		worldKey = r.WorldOverride
	}

	// The server boots its opening narration in the background
	if _, err := WaitForIdle(ctx, r.Client, r.BaseURL, r.Timeout); err != nil {
		result.Error = fmt.Errorf("server never became idle: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}

	snap, err := r.startGame(ctx, worldKey)
	if err != nil {
		result.Error = fmt.Errorf("failed to start game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = snap.Session

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, worldKey, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if snap, err := r.getState(ctx); err == nil {
		result.Session = snap.Session
	}
	result.Duration = time.Since(start)
	return result, result.Error
}

// startGame switches to worldKey, or resets the current world when it is empty
func (r *Runner) startGame(ctx context.Context, worldKey string) (*game.Snapshot, error) {
	if worldKey == "" {
		return r.resetGame(ctx)
	}

	status, body, err := r.do(ctx, http.MethodPost, "/v1/world", map[string]string{"world": worldKey})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("world change returned %d: %s", status, string(body))
	}
	return decodeSnapshot(body)
}

func (r *Runner) resetGame(ctx context.Context) (*game.Snapshot, error) {
	status, body, err := r.do(ctx, http.MethodPost, "/v1/reset", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("reset returned %d: %s", status, string(body))
	}
	return decodeSnapshot(body)
}

func (r *Runner) runStep(ctx context.Context, worldKey string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if step.Command == ResetGamePrompt {
		result.IsReset = true
		if _, err := r.startGame(stepCtx, worldKey); err != nil {
			result.Error = fmt.Errorf("failed to reset game: %w", err)
		} else {
			result.Success = true
		}
		result.Duration = time.Since(start)
		return result
	}

	status, body, err := r.do(stepCtx, http.MethodPost, "/v1/command", chat.CommandRequest{Command: step.Command})
	if err != nil {
		result.Error = fmt.Errorf("command request failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	expectedStatus := http.StatusOK
	if step.Expectations.Status != nil {
		expectedStatus = *step.Expectations.Status
	}
	if status != expectedStatus {
		result.Error = fmt.Errorf("expected status %d, got %d: %s", expectedStatus, status, string(body))
		result.Duration = time.Since(start)
		return result
	}

	snap, err := r.getState(stepCtx)
	if err != nil {
		result.Error = fmt.Errorf("failed to get state: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.ResponseText = latestNarration(snap.Entries)
	result.Error = checkExpectations(step.Expectations, snap, result.ResponseText)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) getState(ctx context.Context) (*game.Snapshot, error) {
	return GetState(ctx, r.Client, r.BaseURL)
}

func (r *Runner) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func decodeSnapshot(body []byte) (*game.Snapshot, error) {
	var snap game.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &snap, nil
}

func latestNarration(entries []storylog.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == storylog.KindNarrator {
			return entries[i].Content
		}
	}
	return ""
}

// checkExpectations compares the state after a step against exp
func checkExpectations(exp Expectations, snap *game.Snapshot, responseText string) error {
	var errors []string
	player := snap.Player

	if exp.Health != nil && player.Health != *exp.Health {
		errors = append(errors, fmt.Sprintf("health: expected %d, got %d", *exp.Health, player.Health))
	}

	if exp.Inventory != nil && !sameItems(exp.Inventory, player.Inventory) {
		errors = append(errors, fmt.Sprintf("inventory: expected %v, got %v", exp.Inventory, player.Inventory))
	}

	for _, item := range exp.Holding {
		if !player.HasItem(item) {
			errors = append(errors, fmt.Sprintf("inventory: expected to hold %q, got %v", item, player.Inventory))
		}
	}

	for _, item := range exp.NotHolding {
		if player.HasItem(item) {
			errors = append(errors, fmt.Sprintf("inventory: expected not to hold %q", item))
		}
	}

	if exp.GameOver != nil && player.IsGameOver != *exp.GameOver {
		errors = append(errors, fmt.Sprintf("game_over: expected %t, got %t", *exp.GameOver, player.IsGameOver))
	}

	if exp.Phase != nil && string(snap.Phase) != *exp.Phase {
		errors = append(errors, fmt.Sprintf("phase: expected %q, got %q", *exp.Phase, snap.Phase))
	}

	lower := strings.ToLower(responseText)
	for _, s := range exp.ResponseContains {
		if !strings.Contains(lower, strings.ToLower(s)) {
			errors = append(errors, fmt.Sprintf("response: expected to contain %q", s))
		}
	}

	for _, s := range exp.ResponseNotContains {
		if strings.Contains(lower, strings.ToLower(s)) {
			errors = append(errors, fmt.Sprintf("response: expected not to contain %q", s))
		}
	}

	if exp.ResponseRegex != "" {
		re, err := regexp.Compile(exp.ResponseRegex)
		if err != nil {
			errors = append(errors, fmt.Sprintf("response_regex: invalid pattern: %v", err))
		} else if !re.MatchString(responseText) {
			errors = append(errors, fmt.Sprintf("response: expected to match %q", exp.ResponseRegex))
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		errors = append(errors, fmt.Sprintf("response: length %d below minimum %d", len(responseText), *exp.ResponseMinLength))
	}

	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		errors = append(errors, fmt.Sprintf("response: length %d above maximum %d", len(responseText), *exp.ResponseMaxLength))
	}

	if len(errors) > 0 {
		return fmt.Errorf("expectation failures:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// sameItems compares two inventories ignoring order and case
func sameItems(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	counts := make(map[string]int, len(expected))
	for _, item := range expected {
		counts[strings.ToLower(item)]++
	}
	for _, item := range actual {
		key := strings.ToLower(item)
		if counts[key] == 0 {
			return false
		}
		counts[key]--
	}
	return true
}
