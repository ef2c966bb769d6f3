package bootstrap

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	electionledger "electionkeeper/contexts/governance/election-ledger"
	ledgerhttp "electionkeeper/contexts/governance/election-ledger/transport/http"
	"electionkeeper/internal/platform/config"
	"electionkeeper/internal/platform/messaging"
)

func TestNormalizeAddr(t *testing.T) {
	tests := map[string]string{
		"":      ":8080",
		" 9090": ":9090",
		":7000": ":7000",
	}
	for input, want := range tests {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestOpenStorageBackends(t *testing.T) {
	memoryStore, err := openStorage(config.Config{Storage: config.StorageMemory}, slog.Default())
	if err != nil {
		t.Fatalf("memory storage: %v", err)
	}
	if memoryStore.kind != config.StorageMemory || memoryStore.state == nil || memoryStore.outbox == nil {
		t.Fatalf("unexpected memory storage %+v", memoryStore)
	}

	sqliteStore, err := openStorage(config.Config{
		Storage:    config.StorageSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
	}, slog.Default())
	if err != nil {
		t.Fatalf("sqlite storage: %v", err)
	}
	defer sqliteStore.close()
	if sqliteStore.kind != config.StorageSQLite {
		t.Fatalf("unexpected sqlite storage kind %q", sqliteStore.kind)
	}

	if _, err := openStorage(config.Config{Storage: "tape"}, slog.Default()); err == nil {
		t.Fatal("expected unsupported storage error")
	}
}

func TestBuildAPIEmbedsWorkerForMemoryStorage(t *testing.T) {
	t.Setenv("LEDGER_STORAGE", "memory")
	app, err := BuildAPI()
	if err != nil {
		t.Fatalf("build api: %v", err)
	}
	defer app.Close()
	if app.worker == nil {
		t.Fatal("expected embedded worker for memory storage")
	}
}

func TestBuildWorkerRejectsMemoryStorage(t *testing.T) {
	t.Setenv("LEDGER_STORAGE", "memory")
	if _, err := BuildWorker(); err == nil || !strings.Contains(err.Error(), "LEDGER_STORAGE") {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestWorkerRelaysAndAuditsCommittedEvents(t *testing.T) {
	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("bus: %v", err)
	}
	defer bus.Close()

	module := electionledger.NewInMemoryModule(nil)
	module.Relay.Publisher = bus
	module.Audit.Subscriber = bus

	worker := &WorkerApp{
		module:       module,
		enableAudit:  true,
		pollInterval: 10 * time.Millisecond,
		logger:       slog.Default(),
	}
	admin := strings.Repeat("ad", 32)
	args := []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)}
	if _, err := module.Handler.ExecuteCommandHandler(context.Background(), admin, ledgerhttp.CommandRequest{
		Method: "deploy",
		Args:   args,
	}); err != nil {
		t.Fatalf("deploy: %v", err)
	}

	// Run subscribes the audit consumer before its first relay cycle.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for module.Audit.Recorded() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("audit consumer did not record the deploy event")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("worker run: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d err=%v", len(pending), err)
	}
}
