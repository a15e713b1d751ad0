package plan

import (
	"fmt"
	"time"

	"github.com/v0xg/webnav/internal/extract"
)

// Step is a closed sum over the browser actions a plan can contain. Adding a
// variant means adding a handler in the executor's type switch; there is no
// silent default.
type Step interface {
	isStep()
	// Name returns the step's action tag for the audit trail.
	Name() string
	// Describe returns a short human-readable summary of the step.
	Describe() string
}

// Navigate loads a URL.
type Navigate struct {
	URL string
}

// WaitVisible blocks until a selector is visible or the timeout elapses.
type WaitVisible struct {
	WaitFor string
	Timeout time.Duration
}

// Click clicks the first element matching Selector.
type Click struct {
	Selector string
}

// TypeText clears and types into an input.
type TypeText struct {
	Selector string
	Value    string
}

// SelectOption chooses a value in a select element.
type SelectOption struct {
	Selector string
	Value    string
}

// Scroll scrolls the page to the bottom.
type Scroll struct{}

// Submit clicks a control and waits for the navigation it triggers. A
// navigation that never settles is tolerated.
type Submit struct {
	Selector string
}

// Capture reads an input's value back, verifying a previous TypeText took
// effect.
type Capture struct {
	Selector string
}

// Extract reads data off the page. Field labels the result when the step runs
// inside a detail sequence; MaxPages > 1 enables pagination and DrillDown
// enables per-item detail enrichment.
type Extract struct {
	Selector  string
	Kind      extract.Kind
	Field     string
	MaxPages  int
	DrillDown []Step
}

func (Navigate) isStep()     {}
func (WaitVisible) isStep()  {}
func (Click) isStep()        {}
func (TypeText) isStep()     {}
func (SelectOption) isStep() {}
func (Scroll) isStep()       {}
func (Submit) isStep()       {}
func (Capture) isStep()      {}
func (Extract) isStep()      {}

func (Navigate) Name() string     { return "navigate" }
func (WaitVisible) Name() string  { return "wait" }
func (Click) Name() string        { return "click" }
func (TypeText) Name() string     { return "type" }
func (SelectOption) Name() string { return "select" }
func (Scroll) Name() string       { return "scroll" }
func (Submit) Name() string       { return "submit" }
func (Capture) Name() string      { return "capture" }
func (Extract) Name() string      { return "extract" }

func (s Navigate) Describe() string     { return fmt.Sprintf("navigate → %s", s.URL) }
func (s WaitVisible) Describe() string  { return fmt.Sprintf("wait → %s", s.WaitFor) }
func (s Click) Describe() string        { return fmt.Sprintf("click → %s", s.Selector) }
func (s TypeText) Describe() string     { return fmt.Sprintf("type → %s (text: %q)", s.Selector, s.Value) }
func (s SelectOption) Describe() string { return fmt.Sprintf("select → %s (value: %q)", s.Selector, s.Value) }
func (Scroll) Describe() string         { return "scroll" }
func (s Submit) Describe() string       { return fmt.Sprintf("submit → %s", s.Selector) }
func (s Capture) Describe() string      { return fmt.Sprintf("capture → %s", s.Selector) }
func (s Extract) Describe() string {
	return fmt.Sprintf("extract(%s) → %s", s.Kind, s.Selector)
}
