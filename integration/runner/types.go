package runner

import (
	"time"
)

// Special command values that trigger non-command actions
const (
	ResetGamePrompt = "RESET_GAME"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	World string     `json:"world,omitempty"` // Used for regular tests
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single command and its expected outcomes
// Use command: "RESET_GAME" to start a fresh play-through
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Command      string       `json:"command"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// HTTP status of the command request; defaults to 200
	Status *int `json:"status,omitempty"`

	// Player state
	Health     *int     `json:"health,omitempty"`
	Inventory  []string `json:"inventory,omitempty"` // Full inventory contents (order independent)
	Holding    []string `json:"holding,omitempty"`   // Items that must be held
	NotHolding []string `json:"not_holding,omitempty"`
	GameOver   *bool    `json:"game_over,omitempty"`
	Phase      *string  `json:"phase,omitempty"`

	// Narration analysis, checked against the latest narrator entry
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True if this was a RESET_GAME step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uint64 // Session token the suite finished on
}
