package types

import (
	"time"
)

// Outcome classifies one executed case.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeError Outcome = "error"
)

// CaseResult is the record of one endpoint request.
type CaseResult struct {
	Module    string        `json:"module"`
	Group     Method        `json:"group"`
	Name      string        `json:"name"`
	Method    Method        `json:"method"`
	Template  string        `json:"template"`
	Path      string        `json:"path,omitempty"`
	Status    int           `json:"status,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	RequestID string        `json:"request_id,omitempty"`
}

// Title is the display name used for a case: "<METHOD> <resolved path>", or the
// template when the path never resolved.
func (c CaseResult) Title() string {
	p := c.Path
	if p == "" {
		p = c.Template
	}
	return string(c.Method) + " " + p
}

// GroupResult holds the cases of one verb group, in catalog order.
type GroupResult struct {
	Method Method       `json:"method"`
	Cases  []CaseResult `json:"cases"`
}

// AuthSummary describes the login outcome of a module run without exposing the
// token.
type AuthSummary struct {
	Authenticated bool   `json:"authenticated"`
	Source        string `json:"source,omitempty"`
	Status        int    `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ModuleResult is everything one module run produced.
type ModuleResult struct {
	Module    string        `json:"module"`
	Auth      AuthSummary   `json:"auth"`
	Groups    []GroupResult `json:"groups"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

// Cases flattens the groups into execution order.
func (m ModuleResult) Cases() []CaseResult {
	var out []CaseResult
	for _, g := range m.Groups {
		out = append(out, g.Cases...)
	}
	return out
}

// Counts tallies outcomes.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// Add records one outcome.
func (c *Counts) Add(o Outcome) {
	c.Total++
	switch o {
	case OutcomePass:
		c.Passed++
	case OutcomeFail:
		c.Failed++
	default:
		c.Errored++
	}
}

// OK reports whether every case passed.
func (c Counts) OK() bool {
	return c.Failed == 0 && c.Errored == 0
}

// Counts tallies the module's outcomes.
func (m ModuleResult) Counts() Counts {
	var c Counts
	for _, cr := range m.Cases() {
		c.Add(cr.Outcome)
	}
	return c
}
