package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"api-conformance/internal/auth"
	"api-conformance/internal/executor"
	"api-conformance/internal/metrics"
	"api-conformance/internal/mockapi"
	"api-conformance/internal/openapi"
	"api-conformance/internal/registry"
	"api-conformance/internal/reporter"
	"api-conformance/internal/store"
	"api-conformance/internal/suite"
	"api-conformance/internal/testdata"
	"api-conformance/internal/triage"
	"api-conformance/internal/types"

	"github.com/urfave/cli/v2"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "authenticate and exercise every endpoint of the selected modules",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "module", Aliases: []string{"m"}, Usage: "run only these modules"},
			&cli.StringSliceFlag{Name: "format", Usage: "report formats: json, junit, text"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "report output directory"},
			&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics in textfile format to this path"},
			&cli.IntFlag{Name: "max-workers", Usage: "modules run concurrently"},
			&cli.Float64Flag{Name: "rate", Usage: "requests per second across all modules, 0 for unlimited"},
			&cli.BoolFlag{Name: "no-triage", Usage: "skip LLM triage of failures"},
			&cli.BoolFlag{Name: "no-store", Usage: "do not persist results to the database"},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if c.IsSet("format") {
		cfg.Reporting.Format = c.StringSlice("format")
	}
	if c.IsSet("output") {
		cfg.Reporting.OutputDir = c.String("output")
	}
	if c.IsSet("metrics-file") {
		cfg.Reporting.MetricsFile = c.String("metrics-file")
	}
	if c.IsSet("max-workers") {
		cfg.Test.MaxWorkers = c.Int("max-workers")
	}
	if c.IsSet("rate") {
		cfg.Test.RateLimit = c.Float64("rate")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Environment.BaseURL == "" {
		return cli.Exit("base URL is required (--base-url or CONFORMANCE_BASE_URL)", 2)
	}

	catalog, err := a.catalog()
	if err != nil {
		return err
	}
	names := cfg.Test.Modules
	if c.IsSet("module") {
		names = c.StringSlice("module")
	}
	modules, err := catalog.Select(names)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	for _, f := range registry.Lint(catalog) {
		a.log.Warn("catalog finding", "severity", f.Severity, "module", f.Module, "endpoint", f.Endpoint, "key", f.Key, "message", f.Message)
	}

	ctx, stop := signalContext()
	defer stop()

	client := a.httpClient()
	m := metrics.NewMetrics()
	runner := suite.NewRunner(
		auth.NewBootstrapper(client, cfg.Environment.BaseURL, cfg.Environment.Auth.LoginPath, a.log.Logger),
		executor.NewDispatcher(client, executor.Options{
			BaseURL:           cfg.Environment.BaseURL,
			ExpectAnyStatus:   true,
			RequestsPerSecond: cfg.Test.RateLimit,
		}, a.log.Logger),
		suite.Options{
			Credentials: auth.Credentials{
				Email:    cfg.Environment.Auth.Email,
				Password: cfg.Environment.Auth.Password,
			},
			Token:      cfg.Environment.Auth.Token,
			MaxWorkers: cfg.Test.MaxWorkers,
			Observer:   m,
		},
		a.log.Logger,
	)

	report := reporter.NewReport(cfg.Environment.BaseURL)
	results := runner.Run(ctx, modules)
	report.Finalize(results)
	m.ObserveRun(results)

	if failures := report.Failures(); len(failures) > 0 && cfg.Triage.Enabled() && !c.Bool("no-triage") {
		tc := triage.NewClient(triage.Config{
			APIKey:    cfg.Triage.APIKey,
			Model:     cfg.Triage.Model,
			BaseURL:   cfg.Triage.BaseURL,
			MaxTokens: cfg.Triage.MaxTokens,
		}, a.log.Logger)
		note, err := tc.Triage(ctx, failures)
		if err != nil {
			a.log.Warn("triage failed", "error", err)
		}
		report.Triage = note
	}

	paths, err := reporter.NewReporter(reporter.ReportingConfig{
		Formats:   cfg.Reporting.Format,
		OutputDir: cfg.Reporting.OutputDir,
	}).GenerateReport(report)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	for _, p := range paths {
		a.log.Info("report written", "path", p)
	}

	if path := cfg.Reporting.MetricsFile; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			a.log.Error("failed to write metrics", "path", path, "error", err)
		}
	}

	if cfg.Store.Enabled() && !c.Bool("no-store") {
		if err := persist(ctx, a, report); err != nil {
			a.log.Error("failed to store results", "error", err)
		}
	}

	fmt.Print(report.FormatSummary())

	if !report.Success {
		return cli.Exit("conformance run failed", 1)
	}
	return nil
}

func persist(ctx context.Context, a *app, report *reporter.Report) error {
	s, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := s.SaveReport(ctx, report); err != nil {
		return err
	}
	a.log.Info("results stored", "run_id", report.RunID, "driver", a.cfg.Store.Driver)
	return nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list catalog modules, or the endpoints of one module",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "list this module's endpoints"},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			catalog, err := a.catalog()
			if err != nil {
				return err
			}

			if name := c.String("module"); name != "" {
				m, ok := catalog.Module(name)
				if !ok {
					return cli.Exit(fmt.Sprintf("unknown module %q", name), 2)
				}
				for _, g := range suite.GroupByMethod(m.Endpoints) {
					for _, e := range g.Endpoints {
						fmt.Printf("%-7s %-55s %s\n", e.Method, e.Path, e.Name)
					}
				}
				return nil
			}

			for _, m := range catalog.Modules() {
				fmt.Printf("%-12s %3d endpoints  body=%s\n", m.Name, len(m.Endpoints), m.Body)
			}
			fmt.Printf("%d endpoints in %d modules\n", catalog.Size(), len(catalog.Modules()))
			return nil
		},
	}
}

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "check the catalog for malformed templates and duplicates",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			catalog, err := a.catalog()
			if err != nil {
				return err
			}

			findings := registry.Lint(catalog)
			for _, f := range findings {
				fmt.Println(f)
			}
			if registry.HasErrors(findings) {
				return cli.Exit("catalog has errors", 1)
			}
			fmt.Printf("ok: %d endpoints, %d findings\n", catalog.Size(), len(findings))
			return nil
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate catalog files from an OpenAPI or Swagger document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "API base or document URL; well-known document paths are probed"},
			&cli.StringFlag{Name: "file", Usage: "local OpenAPI/Swagger document"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "catalog", Usage: "catalog output directory"},
			&cli.StringSliceFlag{Name: "body", Usage: "module=convention overrides, e.g. orders=order"},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			bodies, err := parseBodies(c.StringSlice("body"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			loader := openapi.NewLoader(a.httpClient(), a.log.Logger)
			var doc *openapi.Document
			switch {
			case c.String("file") != "":
				doc, err = loader.LoadFile(c.String("file"))
			case c.String("url") != "":
				ctx, stop := signalContext()
				defer stop()
				doc, err = loader.LoadURL(ctx, c.String("url"))
			default:
				return cli.Exit("one of --url or --file is required", 2)
			}
			if err != nil {
				return err
			}

			files, err := testdata.NewGenerator(c.String("output"), bodies, a.log.Logger).Generate(doc)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		},
	}
}

func parseBodies(pairs []string) (map[string]types.BodyConvention, error) {
	bodies := make(map[string]types.BodyConvention, len(pairs))
	for _, p := range pairs {
		module, name, ok := strings.Cut(p, "=")
		if !ok || module == "" {
			return nil, fmt.Errorf("invalid --body %q, want module=convention", p)
		}
		conv, err := types.ParseBodyConvention(name)
		if err != nil {
			return nil, err
		}
		bodies[module] = conv
	}
	return bodies, nil
}

func mockCommand() *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "serve a stand-in backend answering every catalog route",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
			&cli.StringFlag{Name: "token", Value: "mock-token", Usage: "token issued by the login route"},
			&cli.StringFlag{Name: "login-shape", Value: mockapi.ShapeDataAccessToken, Usage: "login response shape"},
			&cli.IntFlag{Name: "login-status", Value: http.StatusOK, Usage: "login response status"},
			&cli.BoolFlag{Name: "require-auth", Usage: "answer 401 without the issued bearer token"},
			&cli.StringSliceFlag{Name: "status", Usage: `per-route status overrides, e.g. "PATCH /security/settings=500"`},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			statuses, err := parseStatuses(c.StringSlice("status"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			handler := mockapi.New(catalog, mockapi.Options{
				LoginPath:   a.cfg.Environment.Auth.LoginPath,
				LoginStatus: c.Int("login-status"),
				LoginShape:  c.String("login-shape"),
				Token:       c.String("token"),
				Statuses:    statuses,
				RequireAuth: c.Bool("require-auth"),
			}, a.log.Logger)

			srv := &http.Server{
				Addr:         c.String("addr"),
				Handler:      handler,
				WriteTimeout: 15 * time.Second,
				ReadTimeout:  15 * time.Second,
			}

			ctx, stop := signalContext()
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.log.Info("mock backend listening", "addr", srv.Addr, "endpoints", catalog.Size())
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error("error shutting down mock backend", "error", err)
			}
			a.log.Info("stopped mock backend")
			return nil
		},
	}
}

func parseStatuses(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		key, code, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --status %q, want \"METHOD /path=code\"", p)
		}
		method, path, ok := strings.Cut(strings.TrimSpace(key), " ")
		if !ok {
			return nil, fmt.Errorf("invalid --status %q, want \"METHOD /path=code\"", p)
		}
		m, err := types.ParseMethod(method)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 100 || n > 599 {
			return nil, fmt.Errorf("invalid status code in %q", p)
		}
		out[string(m)+" "+strings.TrimSpace(path)] = n
	}
	return out, nil
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent runs stored in the database",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.cfg.Store.Enabled() {
				return cli.Exit("no store configured", 2)
			}

			ctx, stop := signalContext()
			defer stop()

			s, err := store.Open(ctx, a.cfg.Store)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.Recent(ctx, c.Int("limit"))
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(os.Stdout, "%s  %s  %-30s %d/%d passed, %d failed, %d errored\n",
					r.RunID, r.StartTime.Format(time.RFC3339), r.BaseURL, r.Passed, r.Total, r.Failed, r.Errored)
			}
			return nil
		},
	}
}
