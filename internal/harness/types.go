package harness

// TraceEvent records the outcome of one flow step.
type TraceEvent struct {
	Step       int    `json:"step"`
	Attempt    string `json:"attempt"`
	At         string `json:"at"`
	Photo      string `json:"photo"`
	User       string `json:"user,omitempty"`
	Verdict    string `json:"verdict"`
	Source     string `json:"source,omitempty"`
	Detail     string `json:"detail,omitempty"`
	CapturedAt string `json:"captured_at,omitempty"`
	Committed  bool   `json:"committed,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
