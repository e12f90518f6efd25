package suite

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"api-conformance/internal/auth"
	"api-conformance/internal/registry"
	"api-conformance/internal/types"
)

// Authenticator performs the per-module login.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) *auth.Session
}

// Dispatcher sends one endpoint's request.
type Dispatcher interface {
	Dispatch(ctx context.Context, session *auth.Session, spec types.EndpointSpec) (types.CaseResult, error)
}

// Observer is told about every login and case as it completes.
type Observer interface {
	ObserveAuth(module string, session *auth.Session)
	ObserveCase(result types.CaseResult)
}

// Options configures a Runner.
type Options struct {
	Credentials auth.Credentials
	// Token, when set, is used as-is and no login is attempted.
	Token      string
	MaxWorkers int
	Observer   Observer
}

// Runner executes modules: one login, then every endpoint, group by group.
type Runner struct {
	auth       Authenticator
	dispatcher Dispatcher
	opts       Options
	logger     *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(a Authenticator, d Dispatcher, opts Options, logger *slog.Logger) *Runner {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	return &Runner{auth: a, dispatcher: d, opts: opts, logger: logger}
}

// Session performs the module's authentication bootstrap.
func (r *Runner) Session(ctx context.Context, module string) *auth.Session {
	var s *auth.Session
	if r.opts.Token != "" {
		s = auth.Static(r.opts.Token)
	} else {
		s = r.auth.Login(ctx, r.opts.Credentials)
	}
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveAuth(module, s)
	}
	return s
}

// RunCase dispatches one endpoint and reports it to the observer.
func (r *Runner) RunCase(ctx context.Context, session *auth.Session, spec types.EndpointSpec) types.CaseResult {
	res, _ := r.dispatcher.Dispatch(ctx, session, spec)
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveCase(res)
	}
	return res
}

// RunModule runs every endpoint of m sequentially. A failing case never stops
// the ones after it.
func (r *Runner) RunModule(ctx context.Context, m *registry.Module) types.ModuleResult {
	result := types.ModuleResult{Module: m.Name, StartTime: time.Now()}
	log := r.logger.With("module", m.Name)
	log.Info("module started", "endpoints", len(m.Endpoints))

	session := r.Session(ctx, m.Name)
	result.Auth = summarize(session)

	for _, g := range GroupByMethod(m.Endpoints) {
		gr := types.GroupResult{Method: g.Method, Cases: make([]types.CaseResult, 0, len(g.Endpoints))}
		for _, e := range g.Endpoints {
			gr.Cases = append(gr.Cases, r.RunCase(ctx, session, e))
		}
		result.Groups = append(result.Groups, gr)
	}

	result.EndTime = time.Now()
	c := result.Counts()
	log.Info("module finished",
		"passed", c.Passed,
		"failed", c.Failed,
		"errored", c.Errored,
		"duration", result.EndTime.Sub(result.StartTime),
	)
	return result
}

// Run executes modules concurrently, at most MaxWorkers at a time, and returns
// their results in the order given.
func (r *Runner) Run(ctx context.Context, modules []*registry.Module) []types.ModuleResult {
	results := make([]types.ModuleResult, len(modules))
	var wg sync.WaitGroup

	// Create a channel to limit concurrent modules
	sem := make(chan struct{}, r.opts.MaxWorkers)

	for i, m := range modules {
		wg.Add(1)
		go func(i int, m *registry.Module) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = r.RunModule(ctx, m)
		}(i, m)
	}

	wg.Wait()
	return results
}

func summarize(s *auth.Session) types.AuthSummary {
	sum := types.AuthSummary{
		Authenticated: s.Authenticated(),
		Source:        s.Source,
		Status:        s.Status,
	}
	if s.Err != nil {
		sum.Error = s.Err.Error()
	}
	return sum
}
