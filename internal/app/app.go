// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wenfp108/vibe-scout/internal/clock"
	"github.com/wenfp108/vibe-scout/internal/config"
	"github.com/wenfp108/vibe-scout/internal/endpoints"
	"github.com/wenfp108/vibe-scout/internal/fetch"
	"github.com/wenfp108/vibe-scout/internal/forum"
	"github.com/wenfp108/vibe-scout/internal/ledger"
	"github.com/wenfp108/vibe-scout/internal/logging"
	"github.com/wenfp108/vibe-scout/internal/metrics"
	"github.com/wenfp108/vibe-scout/internal/missions"
	"github.com/wenfp108/vibe-scout/internal/pipeline"
	"github.com/wenfp108/vibe-scout/internal/publisher"
	"github.com/wenfp108/vibe-scout/internal/rank"
	"github.com/wenfp108/vibe-scout/internal/sentiment"
	"github.com/wenfp108/vibe-scout/internal/worker"
)

// App holds the shared, long-lived services for the scout. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	pool     *endpoints.Pool
	missions *missions.Source
	worker   *worker.Worker
	pub      publisher.Publisher
	server   *http.Server
}

// New wires every service from the loaded configuration. It fails fast if
// any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	store, err := newStore(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("init ledger store: %w", err)
	}
	pub, err := newPublisher(ctx, cfg.Publisher)
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}
	missionSource, err := missions.NewSource(cfg.Missions)
	if err != nil {
		return nil, fmt.Errorf("init mission source: %w", err)
	}

	clk := clock.System{}
	pool := endpoints.New(cfg.Endpoints, logger)
	fetcher := fetch.New(pool, cfg.Fetch, logger)
	feed := fetch.NewFeedFetcher(pool, cfg.Fetch, logger)
	scorer := sentiment.NewScorer()
	pipe := pipeline.New(fetcher, feed, scorer, logger)
	ranker := rank.New(cfg.Scan.Epsilon, cfg.Scan.Champions)
	syncer := ledger.NewSyncer(store, clk, cfg.Ledger.Sync, logger)

	w := worker.New(missionSource, pipe, ranker, syncer, pub, clk, worker.Config{
		PostLimit:    cfg.Scan.PostLimit,
		CommentLimit: cfg.Scan.CommentLimit,
		Mode:         forum.FetchMode(cfg.Scan.Mode),
	}, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		missions: missionSource,
		worker:   w,
		pub:      pub,
	}, nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Missions returns the mission source.
func (a *App) Missions() *missions.Source {
	return a.missions
}

// RunScan refreshes the endpoint pool and executes one full scan.
func (a *App) RunScan(ctx context.Context) error {
	pool := a.pool.Refresh(ctx)
	a.logger.Info("endpoint pool refreshed", zap.Int("endpoints", len(pool)))
	return a.worker.Run(ctx)
}

// ServeMetrics starts the metrics/health listener in the background.
func (a *App) ServeMetrics() {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if err := a.pub.Close(); err != nil {
		a.logger.Warn("publisher close", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newStore(ctx context.Context, cfg config.LedgerConfig) (ledger.ObjectStore, error) {
	switch cfg.Provider {
	case "github":
		return ledger.NewGitHubStore(cfg.GitHub)
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return ledger.NewGCSStore(ctx, client, cfg.GCSBucket)
	case "memory":
		return ledger.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", cfg.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.PublisherConfig) (publisher.Publisher, error) {
	switch cfg.Provider {
	case "pubsub":
		return publisher.NewPubSub(ctx, cfg.ProjectID, cfg.TopicName)
	case "memory":
		return publisher.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown publisher provider %q", cfg.Provider)
	}
}
