package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	application "electionkeeper/contexts/governance/election-ledger/application"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

const ledgerSourceService = "election-ledger"

// AuditConsumer subscribes to ledger topics and writes one structured audit
// log line per distinct event. Redelivered events are counted once.
type AuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Topics        []string
	ConsumerGroup string
	Logger        *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func (c *AuditConsumer) Start(ctx context.Context) error {
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = "election-ledger-audit-cg"
	}
	for _, topic := range c.Topics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	application.ResolveLogger(c.Logger).Info("ledger audit consumer started",
		"event", "ledger_audit_consumer_started",
		"module", "governance/election-ledger",
		"layer", "worker",
		"consumer_group", group,
		"topics", len(c.Topics),
	)
	return nil
}

// Handle records a single envelope. Envelopes from other services are ignored.
func (c *AuditConsumer) Handle(_ context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if err := event.Validate(); err != nil {
		logger.Warn("ledger audit rejected envelope",
			"event", "ledger_audit_invalid_envelope",
			"module", "governance/election-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if event.SourceService != ledgerSourceService {
		logger.Warn("ledger audit ignored foreign event",
			"event", "ledger_audit_foreign_event",
			"module", "governance/election-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"source_service", event.SourceService,
		)
		return nil
	}

	c.mu.Lock()
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	_, duplicate := c.seen[event.EventID]
	c.seen[event.EventID] = struct{}{}
	c.mu.Unlock()
	if duplicate {
		return nil
	}

	logger.Info("ledger mutation recorded",
		"event", "ledger_audit_recorded",
		"module", "governance/election-ledger",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"occurred_at", event.OccurredAt,
		"payload", string(event.Data),
	)
	return nil
}

// Recorded returns how many distinct events were audited.
func (c *AuditConsumer) Recorded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
