package reporter

import (
	"fmt"
	"strings"
	"time"

	"api-conformance/internal/types"

	"github.com/google/uuid"
)

// Report represents one conformance run across modules
type Report struct {
	RunID     string               `json:"run_id"`
	BaseURL   string               `json:"base_url"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Duration  time.Duration        `json:"duration"`
	Success   bool                 `json:"success"`
	Modules   []types.ModuleResult `json:"modules"`
	Summary   Summary              `json:"summary"`
	Triage    string               `json:"triage,omitempty"`
}

// Summary contains aggregate statistics
type Summary struct {
	types.Counts
	Modules       []ModuleSummary `json:"modules"`
	TotalDuration string          `json:"total_duration"`
}

// ModuleSummary is the per-module tally
type ModuleSummary struct {
	Module        string `json:"module"`
	Authenticated bool   `json:"authenticated"`
	types.Counts
}

// NewReport creates a new report for a run against baseURL
func NewReport(baseURL string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		BaseURL:   baseURL,
		StartTime: time.Now(),
	}
}

// Finalize attaches the module results and computes the summary
func (r *Report) Finalize(results []types.ModuleResult) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Modules = results
	r.Summary = Summary{TotalDuration: r.Duration.String()}

	for _, m := range results {
		c := m.Counts()
		r.Summary.Modules = append(r.Summary.Modules, ModuleSummary{
			Module:        m.Module,
			Authenticated: m.Auth.Authenticated,
			Counts:        c,
		})
		r.Summary.Total += c.Total
		r.Summary.Passed += c.Passed
		r.Summary.Failed += c.Failed
		r.Summary.Errored += c.Errored
	}
	r.Success = r.Summary.OK()
}

// Failures lists every case that did not pass, in run order
func (r *Report) Failures() []types.CaseResult {
	var out []types.CaseResult
	for _, m := range r.Modules {
		for _, c := range m.Cases() {
			if c.Outcome != types.OutcomePass {
				out = append(out, c)
			}
		}
	}
	return out
}

// FormatSummary returns a human-readable summary
func (r *Report) FormatSummary() string {
	var sb strings.Builder

	status := "PASSED"
	if !r.Success {
		status = "FAILED"
	}

	sb.WriteString(fmt.Sprintf("Conformance Run: %s\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Target: %s\n", r.BaseURL))
	sb.WriteString(fmt.Sprintf("Status: %s\n", status))
	sb.WriteString(fmt.Sprintf("Duration: %s\n\n", r.Duration.Round(time.Millisecond)))

	for _, m := range r.Summary.Modules {
		auth := ""
		if !m.Authenticated {
			auth = " (unauthenticated)"
		}
		sb.WriteString(fmt.Sprintf("%-12s %d/%d passed, %d failed, %d errored%s\n",
			m.Module, m.Passed, m.Total, m.Failed, m.Errored, auth))
	}
	sb.WriteString(fmt.Sprintf("\nCases: %d/%d passed\n\n", r.Summary.Passed, r.Summary.Total))

	for _, c := range r.Failures() {
		sb.WriteString(fmt.Sprintf("%s: [%s] %s - %s\n", strings.ToUpper(string(c.Outcome)), c.Module, c.Name, c.Message))
	}

	if r.Triage != "" {
		sb.WriteString("\nTriage:\n")
		sb.WriteString(r.Triage)
		sb.WriteString("\n")
	}

	return sb.String()
}
