package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

type Method string

const (
	MethodDeploy                 Method = "deploy"
	MethodAddOrUpdateParticipant Method = "add_or_update_participant"
	MethodRemoveParticipant      Method = "remove_participant"
	MethodAddOrUpdateProject     Method = "add_or_update_project"
	MethodRemoveProject          Method = "remove_project"
	MethodCastVote               Method = "cast_vote"
)

// Methods lists every supported method in dispatch order.
func Methods() []Method {
	return []Method{
		MethodDeploy,
		MethodAddOrUpdateParticipant,
		MethodRemoveParticipant,
		MethodAddOrUpdateProject,
		MethodRemoveProject,
		MethodCastVote,
	}
}

// Command is the closed set of ledger requests. Only types in this package
// implement it.
type Command interface {
	Method() Method
	sealed()
}

type DeployCommand struct {
	StartAt uint64
	EndAt   uint64
}

type AddOrUpdateParticipantCommand struct {
	PublicKey   entities.PublicKey
	VotingPower uint64
}

type RemoveParticipantCommand struct {
	PublicKey entities.PublicKey
}

type AddOrUpdateProjectCommand struct {
	ProjectID entities.ProjectID
	Project   entities.Project
}

type RemoveProjectCommand struct {
	ProjectID entities.ProjectID
}

// CastVoteCommand carries only what the voter chooses. Caller identity and
// block time come from the execution environment.
type CastVoteCommand struct {
	ProjectID entities.ProjectID
	Amount    uint64
}

func (DeployCommand) Method() Method                 { return MethodDeploy }
func (AddOrUpdateParticipantCommand) Method() Method { return MethodAddOrUpdateParticipant }
func (RemoveParticipantCommand) Method() Method      { return MethodRemoveParticipant }
func (AddOrUpdateProjectCommand) Method() Method     { return MethodAddOrUpdateProject }
func (RemoveProjectCommand) Method() Method          { return MethodRemoveProject }
func (CastVoteCommand) Method() Method               { return MethodCastVote }

func (DeployCommand) sealed()                 {}
func (AddOrUpdateParticipantCommand) sealed() {}
func (RemoveParticipantCommand) sealed()      {}
func (AddOrUpdateProjectCommand) sealed()     {}
func (RemoveProjectCommand) sealed()          {}
func (CastVoteCommand) sealed()               {}

// ArgumentError reports a positional argument that is missing or cannot be
// decoded. Index counts from zero, excluding the method name.
type ArgumentError struct {
	Index int
	Err   error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %d: %v", e.Index, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ParseCommand decodes a method name and its positional JSON arguments.
// Unsigned integers may be JSON numbers or decimal strings, public keys are hex
// strings and project fields are plain strings. Extra arguments are ignored.
func ParseCommand(method string, args []json.RawMessage) (Command, error) {
	p := argParser{args: args}
	switch Method(strings.TrimSpace(method)) {
	case MethodDeploy:
		cmd := DeployCommand{StartAt: p.u64(0), EndAt: p.u64(1)}
		return cmd, p.err
	case MethodAddOrUpdateParticipant:
		cmd := AddOrUpdateParticipantCommand{PublicKey: p.publicKey(0), VotingPower: p.u64(1)}
		return cmd, p.err
	case MethodRemoveParticipant:
		cmd := RemoveParticipantCommand{PublicKey: p.publicKey(0)}
		return cmd, p.err
	case MethodAddOrUpdateProject:
		cmd := AddOrUpdateProjectCommand{
			ProjectID: entities.ProjectID(p.u64(0)),
			Project: entities.Project{
				Name:       p.str(1),
				TeamName:   p.str(2),
				VideoLink:  p.str(3),
				GithubLink: p.str(4),
				DriveLink:  p.str(5),
			},
		}
		return cmd, p.err
	case MethodRemoveProject:
		cmd := RemoveProjectCommand{ProjectID: entities.ProjectID(p.u64(0))}
		return cmd, p.err
	case MethodCastVote:
		cmd := CastVoteCommand{ProjectID: entities.ProjectID(p.u64(0)), Amount: p.u64(1)}
		return cmd, p.err
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", domainerrors.ErrUnknownCommand, method, supportedMethods())
	}
}

func supportedMethods() string {
	names := make([]string, 0, len(Methods()))
	for _, method := range Methods() {
		names = append(names, string(method))
	}
	return strings.Join(names, ", ")
}

// argParser records the first failure and turns later reads into no-ops.
type argParser struct {
	args []json.RawMessage
	err  error
}

func (p *argParser) raw(index int) (json.RawMessage, bool) {
	if p.err != nil {
		return nil, false
	}
	if index >= len(p.args) || len(p.args[index]) == 0 || string(p.args[index]) == "null" {
		p.err = &ArgumentError{Index: index, Err: domainerrors.ErrMissingArgument}
		return nil, false
	}
	return p.args[index], true
}

func (p *argParser) invalid(index int, format string, args ...any) {
	p.err = &ArgumentError{
		Index: index,
		Err:   fmt.Errorf("%w: %s", domainerrors.ErrInvalidArgument, fmt.Sprintf(format, args...)),
	}
}

func (p *argParser) u64(index int) uint64 {
	raw, ok := p.raw(index)
	if !ok {
		return 0
	}
	var number uint64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		p.invalid(index, "expected unsigned 64-bit integer, got %s", raw)
		return 0
	}
	number, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		p.invalid(index, "expected unsigned 64-bit integer, got %q", text)
		return 0
	}
	return number
}

func (p *argParser) str(index int) string {
	raw, ok := p.raw(index)
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		p.invalid(index, "expected string, got %s", raw)
		return ""
	}
	return text
}

func (p *argParser) publicKey(index int) entities.PublicKey {
	text := p.str(index)
	if p.err != nil {
		return entities.PublicKey{}
	}
	key, err := entities.ParsePublicKey(text)
	if err != nil {
		p.invalid(index, "%v", err)
		return entities.PublicKey{}
	}
	return key
}
