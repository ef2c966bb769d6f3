package queries

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"electionkeeper/contexts/governance/election-ledger/adapters/cbor"
	"electionkeeper/contexts/governance/election-ledger/adapters/memory"
	"electionkeeper/contexts/governance/election-ledger/application/commands"
	"electionkeeper/contexts/governance/election-ledger/domain/codec"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

var (
	admin = entities.PublicKey{0: 0xad}
	voter = entities.PublicKey{0: 0x01}
	other = entities.PublicKey{0: 0x02}
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	store.SetNow(func() time.Time { return time.UnixMilli(150) })
	uc := &commands.LedgerUseCase{Store: store, Clock: store, IDGen: store}
	steps := []struct {
		caller entities.PublicKey
		cmd    commands.Command
	}{
		{admin, commands.DeployCommand{StartAt: 100, EndAt: 200}},
		{admin, commands.AddOrUpdateProjectCommand{ProjectID: 9, Project: entities.Project{Name: "nine"}}},
		{admin, commands.AddOrUpdateProjectCommand{ProjectID: 2, Project: entities.Project{Name: "two"}}},
		{admin, commands.AddOrUpdateParticipantCommand{PublicKey: other, VotingPower: 3}},
		{admin, commands.AddOrUpdateParticipantCommand{PublicKey: voter, VotingPower: 8}},
		{voter, commands.CastVoteCommand{ProjectID: 9, Amount: 5}},
	}
	for _, step := range steps {
		if _, err := uc.Execute(context.Background(), step.caller, step.cmd); err != nil {
			t.Fatalf("%s: %v", step.cmd.Method(), err)
		}
	}
	return store
}

func TestOverview(t *testing.T) {
	uc := LedgerQueryUseCase{Store: seededStore(t)}
	overview, err := uc.Overview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Admin != admin || overview.StartTimestamp != 100 || overview.EndTimestamp != 200 {
		t.Fatalf("unexpected overview %+v", overview)
	}
	if overview.ProjectCount != 2 || overview.ParticipantCount != 2 {
		t.Fatalf("unexpected counts %+v", overview)
	}
}

func TestQueriesBeforeDeploy(t *testing.T) {
	uc := LedgerQueryUseCase{Store: memory.NewStore()}
	if _, err := uc.Overview(context.Background()); !errors.Is(err, domainerrors.ErrNotDeployed) {
		t.Fatalf("expected not deployed, got %v", err)
	}
}

func TestProjectQueries(t *testing.T) {
	uc := LedgerQueryUseCase{Store: seededStore(t)}
	items, err := uc.Projects(context.Background())
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(items) != 2 || items[0].ProjectID != 2 || items[1].ProjectID != 9 {
		t.Fatalf("expected ascending project ids, got %+v", items)
	}
	project, err := uc.Project(context.Background(), 9)
	if err != nil || project.Project.Name != "nine" {
		t.Fatalf("unexpected project %+v err=%v", project, err)
	}
	if _, err := uc.Project(context.Background(), 77); !errors.Is(err, domainerrors.ErrProjectNotFound) {
		t.Fatalf("expected project not found, got %v", err)
	}
}

func TestParticipantQueries(t *testing.T) {
	uc := LedgerQueryUseCase{Store: seededStore(t)}
	items, err := uc.Participants(context.Background())
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(items) != 2 || items[0].PublicKey != voter || items[1].PublicKey != other {
		t.Fatalf("expected ascending keys, got %+v", items)
	}
	view, err := uc.Participant(context.Background(), voter)
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	if view.Participant.UsedVotingPower != 5 || view.Participant.Votes[9] != 5 {
		t.Fatalf("unexpected participant %+v", view.Participant)
	}
	if _, err := uc.Participant(context.Background(), admin); !errors.Is(err, domainerrors.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestSnapshotFormats(t *testing.T) {
	store := seededStore(t)
	cborCodec, err := cbor.NewCodec()
	if err != nil {
		t.Fatalf("cbor codec: %v", err)
	}
	uc := LedgerQueryUseCase{Store: store, Encoders: []ports.SnapshotEncoder{cborCodec}}

	binary, err := uc.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("binary snapshot: %v", err)
	}
	stored, _, _ := store.Load(context.Background(), ports.LedgerKey)
	if binary.Format != FormatBinary || !bytes.Equal(binary.Body, stored) {
		t.Fatalf("binary snapshot must be the stored bytes")
	}
	ledger, err := codec.Decode(binary.Body)
	if err != nil {
		t.Fatalf("decode binary snapshot: %v", err)
	}

	exported, err := uc.Snapshot(context.Background(), " CBOR ")
	if err != nil {
		t.Fatalf("cbor snapshot: %v", err)
	}
	if exported.ContentType != "application/cbor" {
		t.Fatalf("unexpected content type %s", exported.ContentType)
	}
	decoded, err := cborCodec.DecodeLedger(exported.Body)
	if err != nil {
		t.Fatalf("decode cbor snapshot: %v", err)
	}
	if !decoded.Equal(ledger) {
		t.Fatalf("cbor and binary snapshots disagree")
	}

	if _, err := uc.Snapshot(context.Background(), "xml"); !errors.Is(err, domainerrors.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if formats := uc.Formats(); len(formats) != 2 || formats[1] != "cbor" {
		t.Fatalf("unexpected formats %v", formats)
	}
}
