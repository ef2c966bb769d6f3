package electionledger

import (
	"log/slog"

	httpadapter "electionkeeper/contexts/governance/election-ledger/adapters/http"
	"electionkeeper/contexts/governance/election-ledger/adapters/memory"
	"electionkeeper/contexts/governance/election-ledger/application/commands"
	"electionkeeper/contexts/governance/election-ledger/application/queries"
	"electionkeeper/contexts/governance/election-ledger/application/workers"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Relay   workers.OutboxRelay
	Audit   *workers.AuditConsumer
	Store   *memory.Store
}

type Dependencies struct {
	Store         ports.StateStore
	Outbox        ports.OutboxRepository
	Publisher     ports.EventPublisher
	Subscriber    ports.EventSubscriber
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Accounting    entities.RevoteAccounting
	Encoders      []ports.SnapshotEncoder
	BatchSize     int
	ConsumerGroup string
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	accounting := deps.Accounting
	if !accounting.Valid() {
		accounting = entities.RevoteReplace
	}
	ledgerUseCase := &commands.LedgerUseCase{
		Store:      deps.Store,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Accounting: accounting,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.LedgerQueryUseCase{
		Store:    deps.Store,
		Encoders: deps.Encoders,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: ledgerUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.BatchSize,
			Logger:    deps.Logger,
		},
		Audit: &workers.AuditConsumer{
			Subscriber:    deps.Subscriber,
			Topics:        commands.EventTypes(),
			ConsumerGroup: deps.ConsumerGroup,
			Logger:        deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to a fresh memory store. The relay and
// audit consumer stay inert until a publisher and subscriber are attached.
func NewInMemoryModule(logger *slog.Logger, encoders ...ports.SnapshotEncoder) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Store:      store,
		Outbox:     store,
		Clock:      store,
		IDGen:      store,
		Accounting: entities.RevoteReplace,
		Encoders:   encoders,
		Logger:     logger,
	})
	module.Store = store
	return module
}
