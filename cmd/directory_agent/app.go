package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/config"
	"github.com/jonathan/company-directory/internal/db"
	"github.com/jonathan/company-directory/internal/fetch"
	"github.com/jonathan/company-directory/internal/logging"
	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/observability"
	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/sources"
	"github.com/jonathan/company-directory/internal/store"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   store.Store
	runner  *pipeline.Runner
	printer *observability.Printer
	closers []func()
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		NoColor: noColor || os.Getenv("NO_COLOR") != "",
	})
	logging.SetDefault(logger)
	return logger
}

// newApp wires the store, the adapters and the runner from configuration.
// The Postgres store and page cache are used when database.url is set.
func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, out)
}

func buildApp(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	logger := newLogger(cfg)
	a := &app{
		cfg:     cfg,
		log:     logger,
		printer: observability.NewPrinter(out),
	}
	if noColor {
		a.printer.DisableColor()
	}

	merge, err := cfg.MergeOptions()
	if err != nil {
		return nil, err
	}

	pacer := fetch.NewHostPacer(cfg.Pacing.Interval, cfg.Pacing.Burst)
	var getter fetch.Getter = fetch.NewHTTPGetter(cfg.FetchOptions(), pacer)

	if cfg.Database.URL != "" {
		database, err := db.Connect(ctx, cfg.Database.URL, logger.With().Str("component", "db").Logger())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		a.store = database
		if cfg.Cache.Enabled {
			if n, err := database.DeleteExpiredPages(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to prune page cache")
			} else if n > 0 {
				logger.Debug().Int64("pages", n).Msg("pruned expired pages")
			}
			getter = fetch.NewCachedFetcher(getter, database, cfg.Cache.TTL, logger)
		}
	} else {
		a.store = store.NewFileStore(cfg.FileOptions(), logger)
	}

	linkedin := sources.NewLinkedIn(getter, cfg.LinkedIn, logger)
	deps := pipeline.Deps{
		Store:      a.store,
		Profiles:   linkedin,
		Classifier: mention.NewClassifier(cfg.Tags),
		Discoverer: linkedin,
		Lock:       store.NewRunLock(cfg.Data.Dir),
		Engine: reconcile.Config{
			Workers: cfg.Workers,
			Merge:   merge,
			Logger:  logger,
		},
		Logger: logger,
	}
	if cfg.Fetch.UseBrowser {
		renderer := fetch.NewChromeRenderer(pacer, logger)
		a.closers = append(a.closers, renderer.Close)
		deps.Directory = sources.NewDirectory(renderer, cfg.YC, logger)
	}
	a.runner = pipeline.NewRunner(deps)

	return a, nil
}

// Close releases the browser and the database pool.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// runStages executes a run and prints its report. A run whose stages did not
// all succeed is reported as an error so scripts see a non-zero exit.
func (a *app) runStages(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error) {
	report, err := a.runner.Run(ctx, opts)
	if report != nil {
		a.printer.PrintReport(report)
	}
	if err != nil {
		return report, err
	}
	if !report.OK() {
		return report, fmt.Errorf("one or more stages failed")
	}
	return report, nil
}
