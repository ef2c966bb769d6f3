package ports

import (
	"context"
	"time"

	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	contractsv1 "electionkeeper/contracts/gen/events/v1"
)

// Storage record names. The ledger itself, the admin identity recorded at
// deploy time and the flag marking a completed deploy.
const (
	LedgerKey   = "voting_data"
	AdminKey    = "admin_account"
	InitFlagKey = "init_flag"
)

// WriteGuard is the precondition Commit checks before writing a record.
type WriteGuard int

const (
	// GuardNone overwrites whatever is stored.
	GuardNone WriteGuard = iota
	// GuardAbsent requires that no record with the name exists yet.
	GuardAbsent
	// GuardUnchanged requires the stored value to still equal Expected.
	GuardUnchanged
)

// StateRecord is one named opaque value in the key-value store.
type StateRecord struct {
	Name     string
	Value    []byte
	Guard    WriteGuard
	Expected []byte
}

// StateStore is the persistent key-value store behind the ledger. Commit must
// apply every record and outbox event or none of them. When a record's guard
// does not hold Commit writes nothing and returns ErrStaleState.
type StateStore interface {
	Load(ctx context.Context, name string) ([]byte, bool, error)
	Commit(ctx context.Context, records []StateRecord, events []EventEnvelope) error
}

// SnapshotEncoder renders a ledger in an export format other than the
// canonical storage bytes.
type SnapshotEncoder interface {
	Format() string
	ContentType() string
	EncodeLedger(ledger entities.Ledger) ([]byte, error)
	DecodeLedger(data []byte) (entities.Ledger, error)
}

// Clock supplies block time to vote casting.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
