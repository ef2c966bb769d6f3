package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	application "electionkeeper/contexts/governance/election-ledger/application"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

const (
	FormatBinary            = "binary"
	binarySnapshotMediaType = "application/octet-stream"
)

type Overview struct {
	Admin            entities.PublicKey
	StartTimestamp   uint64
	EndTimestamp     uint64
	ProjectCount     int
	ParticipantCount int
}

type ProjectView struct {
	ProjectID entities.ProjectID
	Project   entities.Project
}

type ParticipantView struct {
	PublicKey   entities.PublicKey
	Participant entities.Participant
}

type Snapshot struct {
	Format      string
	ContentType string
	Body        []byte
}

// LedgerQueryUseCase serves read-only views of the persisted ledger.
type LedgerQueryUseCase struct {
	Store    ports.StateStore
	Encoders []ports.SnapshotEncoder
	Logger   *slog.Logger
}

func (uc LedgerQueryUseCase) Overview(ctx context.Context) (Overview, error) {
	state, err := uc.load(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Admin:            state.Admin,
		StartTimestamp:   state.Ledger.StartAt(),
		EndTimestamp:     state.Ledger.EndAt(),
		ProjectCount:     len(state.Ledger.Projects),
		ParticipantCount: len(state.Ledger.Participants),
	}, nil
}

func (uc LedgerQueryUseCase) Project(ctx context.Context, id entities.ProjectID) (ProjectView, error) {
	state, err := uc.load(ctx)
	if err != nil {
		return ProjectView{}, err
	}
	project, ok := state.Ledger.Project(id)
	if !ok {
		return ProjectView{}, domainerrors.ErrProjectNotFound
	}
	return ProjectView{ProjectID: id, Project: project}, nil
}

// Projects lists the catalog in ascending id order.
func (uc LedgerQueryUseCase) Projects(ctx context.Context) ([]ProjectView, error) {
	state, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	ids := state.Ledger.ProjectIDs()
	items := make([]ProjectView, 0, len(ids))
	for _, id := range ids {
		items = append(items, ProjectView{ProjectID: id, Project: state.Ledger.Projects[id]})
	}
	return items, nil
}

func (uc LedgerQueryUseCase) Participant(ctx context.Context, key entities.PublicKey) (ParticipantView, error) {
	state, err := uc.load(ctx)
	if err != nil {
		return ParticipantView{}, err
	}
	participant, ok := state.Ledger.Participant(key)
	if !ok {
		return ParticipantView{}, domainerrors.ErrParticipantNotFound
	}
	return ParticipantView{PublicKey: key, Participant: participant}, nil
}

// Participants lists the roster in ascending key order.
func (uc LedgerQueryUseCase) Participants(ctx context.Context) ([]ParticipantView, error) {
	state, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	keys := state.Ledger.ParticipantKeys()
	items := make([]ParticipantView, 0, len(keys))
	for _, key := range keys {
		participant, _ := state.Ledger.Participant(key)
		items = append(items, ParticipantView{PublicKey: key, Participant: participant})
	}
	return items, nil
}

// Snapshot returns the stored canonical bytes unchanged for the binary format
// and re-encodes the decoded ledger for any registered export format.
func (uc LedgerQueryUseCase) Snapshot(ctx context.Context, format string) (Snapshot, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatBinary
	}
	state, err := uc.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if format == FormatBinary {
		return Snapshot{Format: FormatBinary, ContentType: binarySnapshotMediaType, Body: state.Encoded}, nil
	}
	for _, encoder := range uc.Encoders {
		if encoder == nil || encoder.Format() != format {
			continue
		}
		body, err := encoder.EncodeLedger(state.Ledger)
		if err != nil {
			application.ResolveLogger(uc.Logger).Error("ledger snapshot export failed",
				"event", "ledger_snapshot_export_failed",
				"module", "governance/election-ledger",
				"layer", "application",
				"format", format,
				"error", err.Error(),
			)
			return Snapshot{}, err
		}
		return Snapshot{Format: format, ContentType: encoder.ContentType(), Body: body}, nil
	}
	return Snapshot{}, fmt.Errorf("%w: %q", domainerrors.ErrUnsupportedFormat, format)
}

// Formats lists the snapshot formats this use case can serve.
func (uc LedgerQueryUseCase) Formats() []string {
	formats := []string{FormatBinary}
	for _, encoder := range uc.Encoders {
		if encoder != nil {
			formats = append(formats, encoder.Format())
		}
	}
	return formats
}

func (uc LedgerQueryUseCase) load(ctx context.Context) (application.State, error) {
	state, err := application.LoadState(ctx, uc.Store)
	if err != nil {
		application.ResolveLogger(uc.Logger).Debug("ledger state load failed",
			"event", "ledger_state_load_failed",
			"module", "governance/election-ledger",
			"layer", "application",
			"error", err.Error(),
		)
		return application.State{}, err
	}
	return state, nil
}
