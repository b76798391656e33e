package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/ionmode-enricher/internal/config"
	"github.com/kirillkom/ionmode-enricher/internal/core/ports"
	"github.com/kirillkom/ionmode-enricher/internal/core/usecase"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/adductnorm"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/adducttable"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/queue/nats"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/resilience"
	"github.com/kirillkom/ionmode-enricher/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/ionmode-enricher/internal/observability/metrics"
)

// Options carries per-binary wiring. A nil Registerer disables derivation
// and table-load metrics.
type Options struct {
	Service    string
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Core is the derivation stack without persistence or messaging.
type Core struct {
	Tables  ports.ObjectStorage
	Deriver *usecase.IonmodeUseCase
}

type App struct {
	Config config.Config
	Core

	Queue    ports.MessageQueue
	Repo     ports.RecordRepository
	IngestUC ports.RecordIngestor
	EnrichUC ports.RecordEnricher

	closeFn func()
}

func NewCore(cfg config.Config, opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init table storage: %w", err)
	}

	router := &adducttable.Router{Files: adducttable.NewFileSource(storage)}
	if cfg.AdductsRemoteEnabled {
		executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
		timeout := time.Duration(cfg.AdductsRemoteTimeoutSeconds) * time.Second
		router.Remote = adducttable.NewHTTPSource(timeout, executor)
	}

	loaderOpts := []adducttable.Option{adducttable.WithLogger(logger)}
	var observer ports.DerivationObserver
	if opts.Registerer != nil {
		enrichment := metrics.NewEnrichmentMetrics(opts.Service, opts.Registerer)
		loaderOpts = append(loaderOpts, adducttable.WithObserver(enrichment))
		observer = enrichment
	}
	loader := adducttable.NewLoader(router, loaderOpts...)

	deriver := usecase.NewIonmodeUseCase(loader, adductnorm.New(), observer, logger, usecase.IonmodeOptions{
		HarmonizeCase:    cfg.DeriveLowercaseIonmode,
		BatchConcurrency: cfg.DeriveBatchConcurrency,
	})

	return &Core{Tables: storage, Deriver: deriver}, nil
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	core, err := NewCore(cfg, opts)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRecordRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ingestUC := usecase.NewIngestRecordUseCase(repo, queue)
	enrichUC := usecase.NewEnrichRecordUseCase(repo, core.Deriver, cfg.AdductsSource)

	return &App{
		Config: cfg,
		Core:   *core,
		Queue:  queue,
		Repo:   repo,

		IngestUC: ingestUC,
		EnrichUC: enrichUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
