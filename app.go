package main

import (
	"fmt"
	"net/http"
	"os"

	"api-conformance/internal/config"
	"api-conformance/internal/logger"
	"api-conformance/internal/registry"

	"github.com/urfave/cli/v2"
)

// app is the state every command starts from.
type app struct {
	cfg *config.Config
	log *logger.Logger
}

// setup loads dotenv files and the config, applies global flag overrides and
// builds the logger.
func setup(c *cli.Context) (*app, error) {
	if err := config.LoadDotEnv(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if c.IsSet("base-url") {
		cfg.Environment.BaseURL = c.String("base-url")
	}
	if c.IsSet("catalog-dir") {
		cfg.Environment.CatalogDir = c.String("catalog-dir")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}

	log, err := logger.NewLogger(os.Stderr, logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	a.log.Close()
}

func (a *app) catalog() (*registry.Catalog, error) {
	if dir := a.cfg.Environment.CatalogDir; dir != "" {
		a.log.Debug("loading catalog", "dir", dir)
		return registry.LoadDir(dir)
	}
	return registry.Default()
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.Test.RequestTimeout()}
}
