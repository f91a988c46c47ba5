package harness

// TraceEvent is one executed call in a scenario trace.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	At      uint64         `json:"at"`
	Call    string         `json:"call"`
	As      string         `json:"as,omitempty"`
	Args    map[string]any `json:"args"`
	Outcome string         `json:"outcome"`
	Result  map[string]any `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists setup and flow calls in execution order.
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

// AddTrace appends an executed call.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Outcomes counts trace events by outcome, optionally restricted to one
// function.
func (r *Result) Outcomes(call string) map[string]int {
	counts := make(map[string]int)
	for _, ev := range r.Trace {
		if call != "" && ev.Call != call {
			continue
		}
		counts[ev.Outcome]++
	}
	return counts
}
