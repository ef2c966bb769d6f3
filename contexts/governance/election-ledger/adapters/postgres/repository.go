package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository persists ledger records and the outbox in Postgres. Commit runs
// in one transaction so records and events land together.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the state and outbox tables when they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&stateModel{}, &outboxModel{}); err != nil {
		return r.logError("ledger_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var row stateModel
	err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, r.logError("ledger_repo_load_failed", err, "name", name)
	}
	return append([]byte(nil), row.Value...), true, nil
}

func (r *Repository) Commit(ctx context.Context, records []ports.StateRecord, events []ports.EventEnvelope) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if err := r.writeRecord(tx, record, now); err != nil {
				return err
			}
		}
		for _, envelope := range events {
			if err := r.appendOutbox(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRecord applies one record under its guard. A guard that no longer
// holds affects zero rows and aborts the transaction with ErrStaleState.
func (r *Repository) writeRecord(tx *gorm.DB, record ports.StateRecord, now time.Time) error {
	row := stateModel{
		Name:      strings.TrimSpace(record.Name),
		Value:     append([]byte(nil), record.Value...),
		UpdatedAt: now,
	}

	var result *gorm.DB
	switch record.Guard {
	case ports.GuardAbsent:
		result = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&row)
	case ports.GuardUnchanged:
		result = tx.Model(&stateModel{}).
			Where("name = ? AND value = ?", row.Name, record.Expected).
			Updates(map[string]any{
				"value":      row.Value,
				"updated_at": row.UpdatedAt,
			})
	default:
		result = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      row.Value,
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row)
	}
	if result.Error != nil {
		return r.logError("ledger_repo_commit_record_failed", result.Error, "name", row.Name)
	}
	if record.Guard != ports.GuardNone && result.RowsAffected == 0 {
		r.logger.Warn("ledger record guard failed",
			"event", "ledger_repo_commit_stale",
			"module", "governance/election-ledger",
			"layer", "adapter",
			"name", row.Name,
		)
		return domainerrors.ErrStaleState
	}
	return nil
}

func (r *Repository) appendOutbox(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("ledger_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var next int64
	if err := tx.Model(&outboxModel{}).
		Select("COALESCE(MAX(sequence), 0) + 1").
		Scan(&next).Error; err != nil {
		return r.logError("ledger_repo_outbox_sequence_failed", err, "outbox_id", row.OutboxID)
	}
	row.Sequence = next

	create := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		// A concurrent writer took the same sequence number.
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrOutboxConflict
		}
		return r.logError("ledger_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := tx.Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("ledger_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrOutboxConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("sequence ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toMessage())
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

type stateModel struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (stateModel) TableName() string {
	return "election_ledger_state"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Sequence     int64      `gorm:"column:sequence;uniqueIndex"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_ledger_outbox"
}

func (row outboxModel) toMessage() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     row.OutboxID,
		EventType:    row.EventType,
		PartitionKey: row.PartitionKey,
		Payload:      append([]byte(nil), row.Payload...),
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.StateStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
