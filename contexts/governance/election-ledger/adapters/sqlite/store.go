// Package sqliteadapter persists ledger records and the outbox in a single
// SQLite file.
package sqliteadapter

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"electionkeeper/contexts/governance/election-ledger/adapters/sqlite/migrations"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"
	"electionkeeper/internal/platform/db"

	"github.com/google/uuid"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Store struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Open opens the database at path and applies the embedded migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	sqlDB, err := db.OpenSQLite(path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return NewStore(sqlDB, logger), nil
}

// NewStore wraps an already migrated handle.
func NewStore(sqlDB *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{sqlDB: sqlDB, logger: logger}
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM ledger_state WHERE name = ?`,
		strings.TrimSpace(name),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, s.logError("ledger_sqlite_load_failed", err, "name", name)
	}
	return value, true, nil
}

func (s *Store) Commit(ctx context.Context, records []ports.StateRecord, events []ports.EventEnvelope) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return s.logError("ledger_sqlite_begin_failed", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().UnixMilli()
	for _, record := range records {
		if err = s.writeRecord(ctx, tx, record, now); err != nil {
			return err
		}
	}
	for _, envelope := range events {
		if err = s.appendOutbox(ctx, tx, envelope); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return s.logError("ledger_sqlite_commit_failed", err)
	}
	return nil
}

// writeRecord applies one record under its guard. A guard that no longer
// holds affects zero rows and fails with ErrStaleState.
func (s *Store) writeRecord(ctx context.Context, tx *sql.Tx, record ports.StateRecord, now int64) error {
	name := strings.TrimSpace(record.Name)
	var (
		result sql.Result
		err    error
	)
	switch record.Guard {
	case ports.GuardAbsent:
		result, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_state (name, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			name, record.Value, now,
		)
	case ports.GuardUnchanged:
		result, err = tx.ExecContext(ctx,
			`UPDATE ledger_state SET value = ?, updated_at = ? WHERE name = ? AND value = ?`,
			record.Value, now, name, record.Expected,
		)
	default:
		result, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_state (name, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			name, record.Value, now,
		)
	}
	if err != nil {
		return s.logError("ledger_sqlite_commit_record_failed", err, "name", name)
	}
	if record.Guard == ports.GuardNone {
		return nil
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.ErrStaleState
	}
	return nil
}

func (s *Store) appendOutbox(ctx context.Context, tx *sql.Tx, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return s.logError("ledger_sqlite_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_outbox (outbox_id, event_type, partition_key, payload, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(outbox_id) DO NOTHING`,
		outboxID,
		strings.TrimSpace(envelope.EventType),
		strings.TrimSpace(envelope.PartitionKey),
		payload,
		outboxStatusPending,
		createdAt.UnixMilli(),
	)
	if err != nil {
		return s.logError("ledger_sqlite_append_outbox_insert_failed", err, "outbox_id", outboxID)
	}
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	var existing []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT payload FROM ledger_outbox WHERE outbox_id = ?`,
		outboxID,
	).Scan(&existing); err != nil {
		return s.logError("ledger_sqlite_append_outbox_load_existing_failed", err, "outbox_id", outboxID)
	}
	if !bytes.Equal(existing, payload) {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (s *Store) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT outbox_id, event_type, partition_key, payload, created_at
		 FROM ledger_outbox
		 WHERE status = ?
		 ORDER BY created_at ASC, sequence ASC
		 LIMIT ?`,
		outboxStatusPending,
		limit,
	)
	if err != nil {
		return nil, s.logError("ledger_sqlite_list_pending_outbox_failed", err, "limit", limit)
	}
	defer rows.Close()

	var items []ports.OutboxMessage
	for rows.Next() {
		var (
			message   ports.OutboxMessage
			createdAt int64
		)
		if err := rows.Scan(&message.OutboxID, &message.EventType, &message.PartitionKey, &message.Payload, &createdAt); err != nil {
			return nil, s.logError("ledger_sqlite_scan_outbox_failed", err)
		}
		message.CreatedAt = time.UnixMilli(createdAt).UTC()
		items = append(items, message)
	}
	if err := rows.Err(); err != nil {
		return nil, s.logError("ledger_sqlite_iterate_outbox_failed", err)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE ledger_outbox SET status = ?, published_at = ? WHERE outbox_id = ?`,
		outboxStatusPublished,
		publishedAt.UTC().UnixMilli(),
		strings.TrimSpace(outboxID),
	)
	if err != nil {
		return s.logError("ledger_sqlite_mark_outbox_published_failed", err, "outbox_id", outboxID)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	s.logger.Error("ledger sqlite operation failed", fields...)
	return err
}

var _ ports.StateStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
