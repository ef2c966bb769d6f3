package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	electionledger "electionkeeper/contexts/governance/election-ledger"
	"electionkeeper/contexts/governance/election-ledger/adapters/cbor"
	"electionkeeper/contexts/governance/election-ledger/adapters/memory"
	postgresadapter "electionkeeper/contexts/governance/election-ledger/adapters/postgres"
	sqliteadapter "electionkeeper/contexts/governance/election-ledger/adapters/sqlite"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	"electionkeeper/contexts/governance/election-ledger/ports"
	"electionkeeper/internal/platform/config"
	"electionkeeper/internal/platform/db"
	"electionkeeper/internal/platform/httpserver"
	"electionkeeper/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	storage *storage
	bus     *messaging.Kafka
	worker  *WorkerApp
	logger  *slog.Logger
}

type WorkerApp struct {
	storage      *storage
	bus          *messaging.Kafka
	module       electionledger.Module
	enableAudit  bool
	pollInterval time.Duration
	logger       *slog.Logger
}

// storage bundles the ports one backend provides plus its release hook.
type storage struct {
	kind   string
	state  ports.StateStore
	outbox ports.OutboxRepository
	clock  ports.Clock
	idGen  ports.IDGenerator
	close  func() error
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, bus, module, err := buildModule(cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		server:  httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		storage: store,
		bus:     bus,
		logger:  logger,
	}
	// A memory ledger is private to this process, so its outbox is relayed here.
	if store.kind == config.StorageMemory {
		app.worker = &WorkerApp{
			module:       module,
			enableAudit:  cfg.EnableAudit,
			pollInterval: cfg.RelayInterval,
			logger:       logger,
		}
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.Storage == config.StorageMemory {
		return nil, errors.New("worker requires LEDGER_STORAGE=postgres or sqlite")
	}

	store, bus, module, err := buildModule(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		storage:      store,
		bus:          bus,
		module:       module,
		enableAudit:  cfg.EnableAudit,
		pollInterval: cfg.RelayInterval,
		logger:       logger,
	}, nil
}

func buildModule(cfg config.Config, logger *slog.Logger) (*storage, *messaging.Kafka, electionledger.Module, error) {
	store, err := openStorage(cfg, logger)
	if err != nil {
		return nil, nil, electionledger.Module{}, err
	}
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = store.close()
		return nil, nil, electionledger.Module{}, err
	}
	codec, err := cbor.NewCodec()
	if err != nil {
		_ = store.close()
		return nil, nil, electionledger.Module{}, fmt.Errorf("build cbor codec: %w", err)
	}

	module := electionledger.NewModule(electionledger.Dependencies{
		Store:      store.state,
		Outbox:     store.outbox,
		Publisher:  bus,
		Subscriber: bus,
		Clock:      store.clock,
		IDGen:      store.idGen,
		Accounting: entities.RevoteAccounting(cfg.RevoteAccounting),
		Encoders:   []ports.SnapshotEncoder{codec},
		BatchSize:  cfg.RelayBatchSize,
		Logger:     logger,
	})
	logger.Info("ledger module wired",
		"event", "bootstrap_ledger_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"storage", store.kind,
		"revote_accounting", cfg.RevoteAccounting,
		"snapshot_formats", strings.Join(module.Handler.Queries.Formats(), ","),
	)
	return store, bus, module, nil
}

func openStorage(cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &storage{
			kind:   config.StoragePostgres,
			state:  repo,
			outbox: repo,
			clock:  postgresadapter.SystemClock{},
			idGen:  postgresadapter.UUIDGenerator{},
			close:  pg.Close,
		}, nil
	case config.StorageSQLite:
		store, err := sqliteadapter.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			kind:   config.StorageSQLite,
			state:  store,
			outbox: store,
			clock:  postgresadapter.SystemClock{},
			idGen:  postgresadapter.UUIDGenerator{},
			close:  store.Close,
		}, nil
	case config.StorageMemory:
		store := memory.NewStore()
		return &storage{
			kind:   config.StorageMemory,
			state:  store,
			outbox: store,
			clock:  store,
			idGen:  store,
			close:  func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"embedded_worker", a.worker != nil,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	workerDone := make(chan error, 1)
	if a.worker != nil {
		go func() { workerDone <- a.worker.Run(runCtx) }()
	} else {
		workerDone <- nil
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- a.server.Start() }()

	select {
	case err := <-serverDone:
		cancel()
		return errors.Join(err, <-workerDone)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	err := a.server.Shutdown(shutdownCtx)
	cancel()
	return errors.Join(err, <-serverDone, <-workerDone)
}

func (a *APIApp) Close() error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.storage != nil {
		errs = append(errs, a.storage.close())
	}
	return errors.Join(errs...)
}

// Run relays the outbox every poll interval until ctx is cancelled. A failed
// cycle is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableAudit {
		if err := w.module.Audit.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"audit_enabled", w.enableAudit,
	)

	for {
		if _, err := w.module.Relay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_worker_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.bus != nil {
		errs = append(errs, w.bus.Close())
	}
	if w.storage != nil {
		errs = append(errs, w.storage.close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
