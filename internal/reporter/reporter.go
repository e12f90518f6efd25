package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Reporter handles the generation of run reports
type Reporter struct {
	config ReportingConfig
}

// ReportingConfig holds the configuration for reporting
type ReportingConfig struct {
	Formats   []string
	OutputDir string
}

// NewReporter creates a new instance of Reporter
func NewReporter(config ReportingConfig) *Reporter {
	return &Reporter{
		config: config,
	}
}

// GenerateReport writes the report in every configured format and returns the
// written file paths. The text format also goes to the console through the
// caller, so here it is only persisted.
func (r *Reporter) GenerateReport(report *Report) ([]string, error) {
	if err := os.MkdirAll(r.config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	var paths []string
	for _, format := range r.config.Formats {
		var (
			data []byte
			ext  string
			err  error
		)
		switch format {
		case "json":
			data, err = json.MarshalIndent(report, "", "  ")
			ext = "json"
		case "junit":
			data, err = JUnit(report)
			ext = "xml"
		case "text":
			data = []byte(report.FormatSummary())
			ext = "txt"
		default:
			return paths, fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to generate %s report: %w", format, err)
		}

		path := filepath.Join(r.config.OutputDir, fmt.Sprintf("report_%s.%s", report.StartTime.Format("20060102_150405"), ext))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s report: %w", format, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
