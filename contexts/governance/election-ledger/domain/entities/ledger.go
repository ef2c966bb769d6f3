package entities

import (
	"fmt"
	"maps"
	"math"
	"slices"

	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

type ProjectID uint64

type Project struct {
	Name       string
	TeamName   string
	VideoLink  string
	GithubLink string
	DriveLink  string
}

// Participant holds an identity's voting power and its current allocation per
// project. UsedVotingPower mirrors the sum of Votes.
type Participant struct {
	TotalVotingPower uint64
	UsedVotingPower  uint64
	Votes            map[ProjectID]uint64
}

func (p Participant) clone() Participant {
	votes := make(map[ProjectID]uint64, len(p.Votes))
	for id, amount := range p.Votes {
		votes[id] = amount
	}
	p.Votes = votes
	return p
}

// AllocatedVotingPower sums the stored votes.
func (p Participant) AllocatedVotingPower() uint64 {
	var total uint64
	for _, amount := range p.Votes {
		total += amount
	}
	return total
}

// RevoteAccounting selects how a second vote on the same project is charged.
type RevoteAccounting string

const (
	// RevoteReplace releases the prior allocation before charging the new one.
	RevoteReplace RevoteAccounting = "replace"
	// RevoteAccumulate charges the full new amount on top of the prior
	// allocation while the stored vote is overwritten.
	RevoteAccumulate RevoteAccounting = "accumulate"
)

func (a RevoteAccounting) Valid() bool {
	return a == RevoteReplace || a == RevoteAccumulate
}

// Ledger is the root aggregate of one election: the voting window, the project
// catalog and the participant roster.
type Ledger struct {
	StartTimestamp uint64
	EndTimestamp   uint64
	Projects       map[ProjectID]Project
	Participants   map[PublicKey]Participant
}

func NewLedger(startTimestamp uint64, endTimestamp uint64) (Ledger, error) {
	if endTimestamp <= startTimestamp {
		return Ledger{}, domainerrors.ErrStartNotBeforeEnd
	}
	return Ledger{
		StartTimestamp: startTimestamp,
		EndTimestamp:   endTimestamp,
		Projects:       make(map[ProjectID]Project),
		Participants:   make(map[PublicKey]Participant),
	}, nil
}

func (l *Ledger) StartAt() uint64 {
	return l.StartTimestamp
}

func (l *Ledger) EndAt() uint64 {
	return l.EndTimestamp
}

// AddOrUpdateParticipant registers an identity. An existing identity gets the
// new total and loses every vote it has cast.
func (l *Ledger) AddOrUpdateParticipant(key PublicKey, totalVotingPower uint64) {
	l.ensureMaps()
	l.Participants[key] = Participant{
		TotalVotingPower: totalVotingPower,
		UsedVotingPower:  0,
		Votes:            make(map[ProjectID]uint64),
	}
}

func (l *Ledger) RemoveParticipantIfExists(key PublicKey) {
	delete(l.Participants, key)
}

func (l *Ledger) AddOrUpdateProject(id ProjectID, project Project) {
	l.ensureMaps()
	l.Projects[id] = project
}

// RemoveProjectIfExistsAndCancelVotes drops the project and refunds every vote
// cast on it. Unknown ids are ignored.
func (l *Ledger) RemoveProjectIfExistsAndCancelVotes(id ProjectID) {
	if _, ok := l.Projects[id]; !ok {
		return
	}
	delete(l.Projects, id)
	for key, participant := range l.Participants {
		amount, voted := participant.Votes[id]
		if !voted {
			continue
		}
		delete(participant.Votes, id)
		participant.UsedVotingPower -= amount
		l.Participants[key] = participant
	}
}

// CastVote stores amount as the caller's allocation for the project, releasing
// any allocation the caller already had on it.
func (l *Ledger) CastVote(key PublicKey, projectID ProjectID, amount uint64, voteAt uint64) error {
	return l.castVote(key, projectID, amount, voteAt, RevoteReplace)
}

// CastVoteAccumulating behaves like CastVote except that a revote on the same
// project is charged in full on top of the prior allocation.
func (l *Ledger) CastVoteAccumulating(key PublicKey, projectID ProjectID, amount uint64, voteAt uint64) error {
	return l.castVote(key, projectID, amount, voteAt, RevoteAccumulate)
}

// CastVoteWith dispatches on the configured revote accounting. Unknown values
// fall back to RevoteReplace.
func (l *Ledger) CastVoteWith(
	accounting RevoteAccounting,
	key PublicKey,
	projectID ProjectID,
	amount uint64,
	voteAt uint64,
) error {
	if accounting == RevoteAccumulate {
		return l.CastVoteAccumulating(key, projectID, amount, voteAt)
	}
	return l.CastVote(key, projectID, amount, voteAt)
}

func (l *Ledger) castVote(
	key PublicKey,
	projectID ProjectID,
	amount uint64,
	voteAt uint64,
	accounting RevoteAccounting,
) error {
	// Validation order is part of the contract: window, roster, power, catalog.
	if voteAt < l.StartTimestamp {
		return domainerrors.ErrVotingNotStarted
	}
	if voteAt >= l.EndTimestamp {
		return domainerrors.ErrVotingEnded
	}
	participant, ok := l.Participants[key]
	if !ok {
		return domainerrors.ErrNotAParticipant
	}

	base := participant.UsedVotingPower
	if accounting != RevoteAccumulate {
		prior := participant.Votes[projectID]
		if prior > base {
			return fmt.Errorf("%w: participant %s has %d on project %d but uses %d",
				domainerrors.ErrInvariantViolation, key, prior, projectID, base)
		}
		base -= prior
	}
	if amount > math.MaxUint64-base {
		return domainerrors.ErrNotEnoughVotingPower
	}
	used := base + amount
	if used > participant.TotalVotingPower {
		return domainerrors.ErrNotEnoughVotingPower
	}
	if _, ok := l.Projects[projectID]; !ok {
		return domainerrors.ErrProjectDoesNotExist
	}

	if participant.Votes == nil {
		participant.Votes = make(map[ProjectID]uint64)
	}
	participant.Votes[projectID] = amount
	participant.UsedVotingPower = used
	l.Participants[key] = participant
	return nil
}

func (l *Ledger) Participant(key PublicKey) (Participant, bool) {
	participant, ok := l.Participants[key]
	if !ok {
		return Participant{}, false
	}
	return participant.clone(), true
}

func (l *Ledger) Project(id ProjectID) (Project, bool) {
	project, ok := l.Projects[id]
	return project, ok
}

// ProjectIDs returns catalog ids in ascending order.
func (l *Ledger) ProjectIDs() []ProjectID {
	ids := slices.Collect(maps.Keys(l.Projects))
	slices.Sort(ids)
	return ids
}

// ParticipantKeys returns roster keys in ascending byte order.
func (l *Ledger) ParticipantKeys() []PublicKey {
	keys := slices.Collect(maps.Keys(l.Participants))
	slices.SortFunc(keys, PublicKey.Compare)
	return keys
}

func (l *Ledger) Clone() Ledger {
	out := Ledger{
		StartTimestamp: l.StartTimestamp,
		EndTimestamp:   l.EndTimestamp,
		Projects:       make(map[ProjectID]Project, len(l.Projects)),
		Participants:   make(map[PublicKey]Participant, len(l.Participants)),
	}
	for id, project := range l.Projects {
		out.Projects[id] = project
	}
	for key, participant := range l.Participants {
		out.Participants[key] = participant.clone()
	}
	return out
}

// Equal compares ledgers by content. Nil and empty maps are equal.
func (l *Ledger) Equal(other Ledger) bool {
	if l.StartTimestamp != other.StartTimestamp || l.EndTimestamp != other.EndTimestamp {
		return false
	}
	if !maps.Equal(l.Projects, other.Projects) {
		return false
	}
	return maps.EqualFunc(l.Participants, other.Participants, func(a Participant, b Participant) bool {
		return a.TotalVotingPower == b.TotalVotingPower &&
			a.UsedVotingPower == b.UsedVotingPower &&
			maps.Equal(a.Votes, b.Votes)
	})
}

// CheckInvariants reports the first structural violation in key order.
func (l *Ledger) CheckInvariants() error {
	if l.EndTimestamp <= l.StartTimestamp {
		return fmt.Errorf("%w: window [%d, %d) is empty",
			domainerrors.ErrInvariantViolation, l.StartTimestamp, l.EndTimestamp)
	}
	for _, key := range l.ParticipantKeys() {
		participant := l.Participants[key]
		if participant.UsedVotingPower > participant.TotalVotingPower {
			return fmt.Errorf("%w: participant %s uses %d of %d voting power",
				domainerrors.ErrInvariantViolation, key, participant.UsedVotingPower, participant.TotalVotingPower)
		}
		if allocated := participant.AllocatedVotingPower(); allocated != participant.UsedVotingPower {
			return fmt.Errorf("%w: participant %s records %d used voting power but allocated %d",
				domainerrors.ErrInvariantViolation, key, participant.UsedVotingPower, allocated)
		}
	}
	return nil
}

func (l *Ledger) ensureMaps() {
	if l.Projects == nil {
		l.Projects = make(map[ProjectID]Project)
	}
	if l.Participants == nil {
		l.Participants = make(map[PublicKey]Participant)
	}
}
