package commands

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

func rawArgs(t *testing.T, values ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(values))
	for _, value := range values {
		payload, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal arg: %v", err)
		}
		out = append(out, payload)
	}
	return out
}

func TestParseCommandMethods(t *testing.T) {
	key := strings.Repeat("ab", 32)
	wantKey, err := entities.ParsePublicKey(key)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}

	cases := []struct {
		method string
		args   []json.RawMessage
		want   Command
	}{
		{"deploy", rawArgs(t, 10, "20"), DeployCommand{StartAt: 10, EndAt: 20}},
		{"add_or_update_participant", rawArgs(t, key, 7), AddOrUpdateParticipantCommand{PublicKey: wantKey, VotingPower: 7}},
		{"remove_participant", rawArgs(t, "0x"+key), RemoveParticipantCommand{PublicKey: wantKey}},
		{
			"add_or_update_project",
			rawArgs(t, 3, "name", "team", "video", "github", "drive"),
			AddOrUpdateProjectCommand{ProjectID: 3, Project: entities.Project{
				Name:       "name",
				TeamName:   "team",
				VideoLink:  "video",
				GithubLink: "github",
				DriveLink:  "drive",
			}},
		},
		{"remove_project", rawArgs(t, uint64(18446744073709551615)), RemoveProjectCommand{ProjectID: 18446744073709551615}},
		{"cast_vote", rawArgs(t, 1, 5, "ignored"), CastVoteCommand{ProjectID: 1, Amount: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			got, err := ParseCommand(tc.method, tc.args)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected command %#v, want %#v", got, tc.want)
			}
			if string(got.Method()) != tc.method {
				t.Fatalf("unexpected method %s", got.Method())
			}
		})
	}
}

func TestParseCommandUnknownMethod(t *testing.T) {
	_, err := ParseCommand("tally", nil)
	if !errors.Is(err, domainerrors.ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
	if !strings.Contains(err.Error(), "cast_vote") || !strings.Contains(err.Error(), "deploy") {
		t.Fatalf("expected supported methods in %q", err.Error())
	}
}

func TestParseCommandArgumentErrors(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		args    []json.RawMessage
		index   int
		wantErr error
	}{
		{"missing end", "deploy", rawArgs(t, 1), 1, domainerrors.ErrMissingArgument},
		{"null start", "deploy", []json.RawMessage{json.RawMessage("null"), json.RawMessage("2")}, 0, domainerrors.ErrMissingArgument},
		{"negative", "deploy", rawArgs(t, -1, 2), 0, domainerrors.ErrInvalidArgument},
		{"fraction", "cast_vote", rawArgs(t, 1, 2.5), 1, domainerrors.ErrInvalidArgument},
		{"overflow string", "remove_project", rawArgs(t, "18446744073709551616"), 0, domainerrors.ErrInvalidArgument},
		{"short key", "remove_participant", rawArgs(t, "abcd"), 0, domainerrors.ErrInvalidArgument},
		{"key not string", "remove_participant", rawArgs(t, 12), 0, domainerrors.ErrInvalidArgument},
		{"project field not string", "add_or_update_project", rawArgs(t, 1, "a", "b", 3, "d", "e"), 3, domainerrors.ErrInvalidArgument},
		{"project missing drive", "add_or_update_project", rawArgs(t, 1, "a", "b", "c", "d"), 5, domainerrors.ErrMissingArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCommand(tc.method, tc.args)
			var argErr *ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("expected argument error, got %v", err)
			}
			if argErr.Index != tc.index {
				t.Fatalf("expected index %d, got %d", tc.index, argErr.Index)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAdminCapability(t *testing.T) {
	admin := entities.PublicKey{0: 1}
	if _, err := AuthorizeAdmin(entities.PublicKey{0: 2}, admin); !errors.Is(err, domainerrors.ErrNotTheAdmin) {
		t.Fatalf("expected not the admin, got %v", err)
	}

	ledger, err := entities.NewLedger(1, 2)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	var zero AdminCapability
	if err := zero.Apply(&ledger, AddOrUpdateProjectCommand{ProjectID: 1}); !errors.Is(err, domainerrors.ErrNotTheAdmin) {
		t.Fatalf("expected zero capability to be inert, got %v", err)
	}

	capability, err := AuthorizeAdmin(admin, admin)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := capability.Apply(&ledger, AddOrUpdateProjectCommand{ProjectID: 1, Project: entities.Project{Name: "p"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := ledger.Project(1); !ok {
		t.Fatalf("expected project to be added")
	}
	if err := capability.Apply(&ledger, CastVoteCommand{ProjectID: 1, Amount: 1}); !errors.Is(err, domainerrors.ErrUnknownCommand) {
		t.Fatalf("expected cast_vote to be refused as admin command, got %v", err)
	}

	for _, method := range Methods() {
		want := method != MethodDeploy && method != MethodCastVote
		if IsAdminMethod(method) != want {
			t.Fatalf("unexpected admin flag for %s", method)
		}
	}
}
