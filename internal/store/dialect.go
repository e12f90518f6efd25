package store

import (
	"fmt"
	"strings"
)

// Placeholder returns the n-th (1-based) bind parameter for the driver.
func Placeholder(driver string, n int) string {
	switch driver {
	case "postgres":
		return fmt.Sprintf("$%d", n)
	case "sqlserver":
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

func placeholders(driver string, count int) string {
	ps := make([]string, count)
	for i := range ps {
		ps[i] = Placeholder(driver, i+1)
	}
	return strings.Join(ps, ", ")
}

const runColumns = "run_id, base_url, started_at, finished_at, total, passed, failed, errored"

const resultColumns = "run_id, module, name, method, template, path, status, outcome, message, duration_ms, request_id"

func insertRun(driver string) string {
	return fmt.Sprintf("INSERT INTO conformance_runs (%s) VALUES (%s)", runColumns, placeholders(driver, 8))
}

func insertResult(driver string) string {
	return fmt.Sprintf("INSERT INTO conformance_results (%s) VALUES (%s)", resultColumns, placeholders(driver, 11))
}

func selectRecent(driver string, limit int) string {
	if limit < 1 {
		limit = 10
	}
	if driver == "sqlserver" {
		return fmt.Sprintf("SELECT TOP %d %s FROM conformance_runs ORDER BY started_at DESC", limit, runColumns)
	}
	return fmt.Sprintf("SELECT %s FROM conformance_runs ORDER BY started_at DESC LIMIT %d", runColumns, limit)
}

func schema(driver string) []string {
	text, ts := "VARCHAR(255)", "TIMESTAMP"
	long := "TEXT"
	switch driver {
	case "mysql":
		ts = "DATETIME(6)"
	case "sqlserver":
		text, ts, long = "NVARCHAR(255)", "DATETIME2", "NVARCHAR(MAX)"
	}

	runs := fmt.Sprintf(`CREATE TABLE %%sconformance_runs (
	run_id %[1]s PRIMARY KEY,
	base_url %[1]s NOT NULL,
	started_at %[2]s NOT NULL,
	finished_at %[2]s NOT NULL,
	total INT NOT NULL,
	passed INT NOT NULL,
	failed INT NOT NULL,
	errored INT NOT NULL
)`, text, ts)

	results := fmt.Sprintf(`CREATE TABLE %%sconformance_results (
	run_id %[1]s NOT NULL,
	module %[1]s NOT NULL,
	name %[1]s NOT NULL,
	method VARCHAR(10) NOT NULL,
	template %[1]s NOT NULL,
	path %[1]s,
	status INT,
	outcome VARCHAR(10) NOT NULL,
	message %[2]s,
	duration_ms BIGINT,
	request_id VARCHAR(36)
)`, text, long)

	if driver == "sqlserver" {
		return []string{
			"IF OBJECT_ID('conformance_runs', 'U') IS NULL " + fmt.Sprintf(runs, ""),
			"IF OBJECT_ID('conformance_results', 'U') IS NULL " + fmt.Sprintf(results, ""),
		}
	}
	return []string{
		fmt.Sprintf(runs, "IF NOT EXISTS "),
		fmt.Sprintf(results, "IF NOT EXISTS "),
	}
}
