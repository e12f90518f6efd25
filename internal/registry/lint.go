package registry

import (
	"fmt"
	"sort"
)

// Severity of a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one problem found in the catalog.
type Finding struct {
	Severity Severity `json:"severity"`
	Module   string   `json:"module"`
	Endpoint string   `json:"endpoint"`
	Key      string   `json:"key"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s/%s (%s): %s", f.Severity, f.Module, f.Endpoint, f.Key, f.Message)
}

// Lint checks every endpoint template and reports malformed templates,
// duplicate method+path pairs and bodies on GET/DELETE. Duplicates are
// reported but still run.
func Lint(c *Catalog) []Finding {
	var findings []Finding
	first := make(map[string]string)

	for _, m := range c.Modules() {
		for _, e := range m.Endpoints {
			if _, err := ParseTemplate(e.Path); err != nil {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Module:   m.Name,
					Endpoint: e.Name,
					Key:      e.Key(),
					Message:  err.Error(),
				})
			}

			key := e.Key()
			if prev, ok := first[key]; ok {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Module:   m.Name,
					Endpoint: e.Name,
					Key:      key,
					Message:  fmt.Sprintf("duplicates %s", prev),
				})
			} else {
				first[key] = m.Name + "/" + e.Name
			}

			if !e.Method.Mutating() && e.Body != nil {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					Module:   m.Name,
					Endpoint: e.Name,
					Key:      key,
					Message:  "body is ignored for " + string(e.Method),
				})
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity == SeverityError && findings[j].Severity != SeverityError
	})
	return findings
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
