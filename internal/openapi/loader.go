package openapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// Doer is the subset of *http.Client the loader needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// discoveryPaths are tried in order when the URL given is a service root.
var discoveryPaths = []string{
	"/swagger/v1/swagger.json",
	"/swagger.json",
	"/v1/swagger.json",
	"/api/swagger.json",
	"/api/v1/swagger.json",
	"/openapi.json",
	"/api-docs",
}

// Loader fetches API documents from files or over HTTP.
type Loader struct {
	client Doer
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(client Doer, logger *slog.Logger) *Loader {
	return &Loader{client: client, logger: logger}
}

// LoadFile parses a document from disk.
func (l *Loader) LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadURL fetches and parses the document at url. If url itself does not serve
// a document, the well-known locations below it are tried in turn.
func (l *Loader) LoadURL(ctx context.Context, url string) (*Document, error) {
	url = strings.TrimRight(url, "/")
	candidates := make([]string, 0, len(discoveryPaths)+1)
	candidates = append(candidates, url)
	for _, p := range discoveryPaths {
		candidates = append(candidates, url+p)
	}

	var lastErr error
	for _, u := range candidates {
		data, err := l.fetch(ctx, u)
		if err != nil {
			l.logger.Debug("no API document", "url", u, "error", err)
			lastErr = err
			continue
		}
		doc, err := Parse(data)
		if err != nil {
			l.logger.Debug("unparseable API document", "url", u, "error", err)
			lastErr = err
			continue
		}
		l.logger.Info("loaded API document", "url", u, "title", doc.Title, "operations", len(doc.Operations))
		return doc, nil
	}
	return nil, fmt.Errorf("failed to fetch API documentation from any known URL: %w", lastErr)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
