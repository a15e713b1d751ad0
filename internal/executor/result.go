package executor

import "github.com/v0xg/webnav/internal/extract"

// StepResult is one entry in the run's audit trail. Every executed step gets
// an entry, failed ones included, so a run can be diagnosed without replaying
// the browser session.
type StepResult struct {
	Index   int    `json:"index"`
	Step    string `json:"step"`
	Detail  string `json:"detail"`
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the externally visible artifact of one run.
type Result struct {
	RunID   string        `json:"runId"`
	Success bool          `json:"success"`
	Answer  string        `json:"answer,omitempty"`
	Data    *extract.Data `json:"data,omitempty"`
	Err     string        `json:"error,omitempty"`
	Steps   []StepResult  `json:"stepResults"`
}
