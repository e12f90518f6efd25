package reporter

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"api-conformance/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []types.ModuleResult {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []types.ModuleResult{
		{
			Module:    "orders",
			Auth:      types.AuthSummary{Authenticated: true, Status: 200},
			StartTime: start,
			EndTime:   start.Add(2 * time.Second),
			Groups: []types.GroupResult{
				{Method: types.MethodGet, Cases: []types.CaseResult{
					{Module: "orders", Name: "getOrders", Method: types.MethodGet, Template: "/orders", Path: "/orders", Status: 200, Outcome: types.OutcomePass},
				}},
				{Method: types.MethodPatch, Cases: []types.CaseResult{
					{Module: "orders", Name: "updateOrderStatus", Method: types.MethodPatch, Template: "/orders/advanced/{orderId}/status", Path: "/orders/advanced/test-id/status", Status: 401, Outcome: types.OutcomeFail, Message: "Expected 200-series for PATCH /orders/advanced/test-id/status"},
				}},
			},
		},
		{
			Module:    "security",
			StartTime: start,
			EndTime:   start.Add(time.Second),
			Groups: []types.GroupResult{
				{Method: types.MethodPatch, Cases: []types.CaseResult{
					{Module: "security", Name: "patchSecuritySettings", Method: types.MethodPatch, Template: "${this.baseURL}/security/settings", Outcome: types.OutcomeError, Message: "malformed path template"},
				}},
			},
		},
	}
}

func TestFinalize(t *testing.T) {
	r := NewReport("http://localhost:3000")
	r.Finalize(sampleResults())

	assert.NotEmpty(t, r.RunID)
	assert.False(t, r.Success)
	assert.Equal(t, types.Counts{Total: 3, Passed: 1, Failed: 1, Errored: 1}, r.Summary.Counts)
	require.Len(t, r.Summary.Modules, 2)
	assert.Equal(t, "orders", r.Summary.Modules[0].Module)
	assert.True(t, r.Summary.Modules[0].Authenticated)
	assert.False(t, r.Summary.Modules[1].Authenticated)

	failures := r.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "updateOrderStatus", failures[0].Name)
	assert.Equal(t, "patchSecuritySettings", failures[1].Name)
}

func TestFinalizeAllPassed(t *testing.T) {
	r := NewReport("http://localhost:3000")
	r.Finalize(nil)
	assert.True(t, r.Success)
	assert.Zero(t, r.Summary.Total)
}

func TestFormatSummary(t *testing.T) {
	r := NewReport("http://localhost:3000")
	r.Finalize(sampleResults())
	r.Triage = "Auth looks broken for advanced orders."

	out := r.FormatSummary()
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "Cases: 1/3 passed")
	assert.Contains(t, out, "security     0/1 passed, 0 failed, 1 errored (unauthenticated)")
	assert.Contains(t, out, "FAIL: [orders] updateOrderStatus - Expected 200-series for PATCH /orders/advanced/test-id/status")
	assert.Contains(t, out, "ERROR: [security] patchSecuritySettings")
	assert.Contains(t, out, "Auth looks broken")
}

func TestJUnit(t *testing.T) {
	r := NewReport("http://localhost:3000")
	r.Finalize(sampleResults())

	data, err := JUnit(r)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	var doc junitSuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, 3, doc.Tests)
	require.Len(t, doc.Suites, 2)

	orders := doc.Suites[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, 1, orders.Failures)
	require.Len(t, orders.Cases, 2)
	assert.Equal(t, "PATCH /orders/advanced/test-id/status", orders.Cases[1].Name)
	assert.Equal(t, "orders.PATCH", orders.Cases[1].Classname)
	require.NotNil(t, orders.Cases[1].Failure)
	assert.Equal(t, "Expected 200-series for PATCH /orders/advanced/test-id/status", orders.Cases[1].Failure.Message)
	assert.Nil(t, orders.Cases[0].Failure)

	security := doc.Suites[1]
	require.NotNil(t, security.Cases[0].Error)
	assert.Equal(t, "PATCH ${this.baseURL}/security/settings", security.Cases[0].Name)
}

func TestGenerateReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := NewReport("http://localhost:3000")
	r.Finalize(sampleResults())

	paths, err := NewReporter(ReportingConfig{Formats: []string{"json", "junit", "text"}, OutputDir: dir}).GenerateReport(r)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	stamp := r.StartTime.Format("20060102_150405")
	assert.Equal(t, filepath.Join(dir, "report_"+stamp+".json"), paths[0])
	assert.Equal(t, filepath.Join(dir, "report_"+stamp+".xml"), paths[1])
	assert.Equal(t, filepath.Join(dir, "report_"+stamp+".txt"), paths[2])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Equal(t, false, decoded["success"])
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 3.0, summary["total"])
}

func TestGenerateReportUnknownFormat(t *testing.T) {
	r := NewReport("x")
	r.Finalize(nil)
	_, err := NewReporter(ReportingConfig{Formats: []string{"html"}, OutputDir: t.TempDir()}).GenerateReport(r)
	assert.ErrorContains(t, err, `unsupported report format "html"`)
}
