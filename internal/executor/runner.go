package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"api-conformance/internal/auth"
	"api-conformance/internal/registry"
	"api-conformance/internal/types"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxDrain bounds how much of a response body is read before closing it.
const maxDrain = 1 << 20

// Doer is the subset of *http.Client the dispatcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Dispatcher.
type Options struct {
	BaseURL string
	// ExpectAnyStatus makes a non-2xx response ordinary data. When false,
	// Dispatch also returns a *StatusError for it.
	ExpectAnyStatus bool
	// RequestsPerSecond paces every dispatch sharing this Dispatcher. Zero
	// disables pacing.
	RequestsPerSecond float64
}

// StatusError reports a response outside the expected range.
type StatusError struct {
	Method types.Method
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Expected 200-series for %s %s", e.Method, e.Path)
}

// Dispatcher issues one request per endpoint and classifies the response.
type Dispatcher struct {
	client  Doer
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher sending requests to opts.BaseURL.
func NewDispatcher(client Doer, opts Options, logger *slog.Logger) *Dispatcher {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	d := &Dispatcher{client: client, opts: opts, logger: logger}
	if opts.RequestsPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return d
}

// Dispatch sends the endpoint's request with the session's token and returns
// the case record. The returned error is nil for a completed case unless the
// dispatcher is strict and the status is outside the expected range; transport
// and template errors are returned as well as recorded in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, session *auth.Session, spec types.EndpointSpec) (types.CaseResult, error) {
	result := types.CaseResult{
		Module:    spec.Module,
		Group:     spec.Method,
		Name:      spec.Name,
		Method:    spec.Method,
		Template:  spec.Path,
		RequestID: uuid.NewString(),
	}

	if !spec.Method.Supported() {
		return d.fail(result, fmt.Errorf("%w: %q", types.ErrUnsupportedMethod, spec.Method), session)
	}

	path, err := registry.Resolve(spec)
	if err != nil {
		return d.fail(result, fmt.Errorf("failed to resolve path: %w", err), session)
	}
	result.Path = path

	req, err := d.buildRequest(ctx, session, spec, path, result.RequestID)
	if err != nil {
		return d.fail(result, err, session)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return d.fail(result, fmt.Errorf("rate limiter: %w", err), session)
		}
	}

	start := time.Now()
	status, err := d.execute(req)
	result.Duration = time.Since(start)
	if err != nil {
		return d.fail(result, err, session)
	}
	result.Status = status

	expect := spec.Expect
	if expect == (types.StatusRange{}) {
		expect = types.Success
	}

	if expect.Contains(status) {
		result.Outcome = types.OutcomePass
	} else {
		result.Outcome = types.OutcomeFail
		result.Message = (&StatusError{Method: spec.Method, Path: path, Status: status}).Error()
	}

	d.logger.Info("case",
		"module", spec.Module,
		"method", spec.Method,
		"path", path,
		"status", status,
		"outcome", result.Outcome,
		"duration", result.Duration,
	)

	if result.Outcome == types.OutcomeFail && !d.opts.ExpectAnyStatus {
		return result, &StatusError{Method: spec.Method, Path: path, Status: status}
	}
	return result, nil
}

// buildRequest creates the HTTP request for an endpoint.
func (d *Dispatcher) buildRequest(ctx context.Context, session *auth.Session, spec types.EndpointSpec, path, requestID string) (*http.Request, error) {
	var body io.Reader
	if spec.Method.Mutating() && spec.Body != nil {
		payload, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, string(spec.Method), d.opts.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID)
	if h := session.Header(); h != "" {
		req.Header.Set("Authorization", h)
	}
	return req, nil
}

// execute sends the request and drains the response.
func (d *Dispatcher) execute(req *http.Request) (int, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain)); err != nil {
		d.logger.Debug("failed to drain response body", "error", err)
	}
	return resp.StatusCode, nil
}

// fail records a case that produced no status.
func (d *Dispatcher) fail(result types.CaseResult, err error, session *auth.Session) (types.CaseResult, error) {
	err = scrub(err, session)
	result.Outcome = types.OutcomeError
	result.Message = err.Error()

	path := result.Path
	if path == "" {
		path = result.Template
	}
	d.logger.Info("case",
		"module", result.Module,
		"method", result.Method,
		"path", path,
		"outcome", result.Outcome,
		"error", result.Message,
	)
	return result, err
}

// scrub removes the bearer token from an error's text.
func scrub(err error, session *auth.Session) error {
	if !session.Authenticated() || !strings.Contains(err.Error(), session.Token) {
		return err
	}
	return &scrubbedError{
		msg:   strings.ReplaceAll(err.Error(), session.Token, "[REDACTED]"),
		cause: err,
	}
}

type scrubbedError struct {
	msg   string
	cause error
}

func (e *scrubbedError) Error() string { return e.msg }

// Unwrap keeps errors.Is working for sentinel checks.
func (e *scrubbedError) Unwrap() error { return e.cause }
