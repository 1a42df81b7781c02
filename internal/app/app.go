// Package app wires configuration into the running service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"newsreview/internal/assignment"
	"newsreview/internal/cleanup"
	"newsreview/internal/config"
	"newsreview/internal/identity"
	"newsreview/internal/infrastructure/airtable"
	"newsreview/internal/infrastructure/extract"
	"newsreview/internal/infrastructure/rss"
	"newsreview/internal/infrastructure/scheduler"
	"newsreview/internal/infrastructure/storage"
	"newsreview/internal/logging"
	"newsreview/internal/ports"
	"newsreview/internal/review"
	"newsreview/internal/server"
	"newsreview/internal/usecase"
)

// repositories bundles the three store ports one backend provides.
type repositories struct {
	articles  ports.ArticleRepository
	reviews   ports.ReviewRepository
	reviewers ports.ReviewerDirectory
	close     func() error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	repos   repositories
	service *usecase.Service
	mode    assignment.Mode
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repos, err := buildRepositories(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	mode := assignment.Mode(cfg.Assignment.Mode)
	engine := assignment.New(mode)
	verifier := identity.NewVerifier(repos.reviewers, cfg.Identity.CacheTTLDuration(), baseLogger.With("component", "identity"))
	submitter := review.NewSubmitter(repos.articles, repos.reviews, engine.Mode(), baseLogger.With("component", "submit"))

	service := usecase.NewService(usecase.ServiceDeps{
		Articles:  repos.articles,
		Reviews:   repos.reviews,
		Verifier:  verifier,
		Engine:    engine,
		Submitter: submitter,
		Logger:    baseLogger.With("component", "session"),
	})

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		repos:   repos,
		service: service,
		mode:    engine.Mode(),
	}, nil
}

func buildRepositories(cfg config.Config, logger *slog.Logger) (repositories, error) {
	switch cfg.Repository.Backend {
	case config.BackendPostgres:
		db, err := storage.Open(cfg.Repository.Database.DSN)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		return repositories{articles: repo, reviews: repo, reviewers: repo, close: db.Close}, nil

	case config.BackendAirtable, "":
		client := airtable.New(cfg.Repository.Airtable, logger.With("component", "airtable"))
		return repositories{articles: client, reviews: client, reviewers: client, close: func() error { return nil }}, nil

	default:
		return repositories{}, fmt.Errorf("unknown repository backend %q", cfg.Repository.Backend)
	}
}

// Service exposes the session service for command-level helpers.
func (a *Application) Service() *usecase.Service {
	return a.service
}

// Close releases backend resources.
func (a *Application) Close() error {
	if a.repos.close == nil {
		return nil
	}
	return a.repos.close()
}

// RunServe starts the HTTP API and blocks until the context is canceled.
func (a *Application) RunServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.cfg.HTTP.Addr, a.service, a.logger.With("component", "http"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *Application) buildIngest() *usecase.Ingest {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	fetcher := rss.NewFetcher(httpClient, a.logger.With("component", "rss"))
	extractor := extract.New(httpClient, cleanup.Defaults(), a.logger.With("component", "extract"))

	return usecase.NewIngest(usecase.IngestDeps{
		Feeds:     a.cfg.Ingest.Feeds,
		Source:    fetcher,
		Extractor: extractor,
		Articles:  a.repos.articles,
		Window:    a.cfg.Ingest.Window(),
		Pace:      a.cfg.Ingest.Pace(),
		Logger:    a.logger.With("component", "ingest"),
	})
}

// RunIngest starts the recurring feed ingestion loop and blocks until the
// context is canceled.
func (a *Application) RunIngest(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := scheduler.NewIntervalScheduler(a.cfg.Ingest.IntervalDuration())
	loop := usecase.NewIngestScheduler(driver, a.buildIngest())
	if err := loop.Start(ctx); err != nil {
		return fmt.Errorf("start ingest scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return loop.Stop(stopCtx)
}

// RunIngestOnce executes a single ingestion pass, for the one-shot command.
func (a *Application) RunIngestOnce(ctx context.Context) error {
	return a.buildIngest().Run(ctx, time.Now())
}
