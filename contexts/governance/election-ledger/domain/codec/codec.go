// Package codec converts a ledger to and from its canonical storage form.
//
// The logical layout is
//
//	((start u64, end u64),
//	 map[u64][5]string,                       // id -> name, team, video, github, drive
//	 map[[32]byte](u64 total, u64 used, map[u64]u64))
//
// and the binary layout is the little-endian, length-prefixed encoding used by
// the original contract storage: u64 as 8 bytes, strings and maps prefixed with
// a u32 length, fixed arrays and tuples written back to back. Map entries are
// always written in ascending key order so equal ledgers encode to equal bytes.
package codec

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"
	"unicode/utf8"

	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

// ProjectFields is the fixed order of project text fields.
type ProjectFields [5]string

type ParticipantRecord struct {
	TotalVotingPower uint64
	UsedVotingPower  uint64
	Votes            map[uint64]uint64
}

// Serialized is the primitive-only form of a ledger.
type Serialized struct {
	Window       [2]uint64
	Projects     map[uint64]ProjectFields
	Participants map[[entities.PublicKeyLength]byte]ParticipantRecord
}

func ToSerialized(ledger entities.Ledger) Serialized {
	out := Serialized{
		Window:       [2]uint64{ledger.StartTimestamp, ledger.EndTimestamp},
		Projects:     make(map[uint64]ProjectFields, len(ledger.Projects)),
		Participants: make(map[[entities.PublicKeyLength]byte]ParticipantRecord, len(ledger.Participants)),
	}
	for id, project := range ledger.Projects {
		out.Projects[uint64(id)] = ProjectFields{
			project.Name,
			project.TeamName,
			project.VideoLink,
			project.GithubLink,
			project.DriveLink,
		}
	}
	for key, participant := range ledger.Participants {
		votes := make(map[uint64]uint64, len(participant.Votes))
		for id, amount := range participant.Votes {
			votes[uint64(id)] = amount
		}
		out.Participants[key] = ParticipantRecord{
			TotalVotingPower: participant.TotalVotingPower,
			UsedVotingPower:  participant.UsedVotingPower,
			Votes:            votes,
		}
	}
	return out
}

func FromSerialized(value Serialized) entities.Ledger {
	ledger := entities.Ledger{
		StartTimestamp: value.Window[0],
		EndTimestamp:   value.Window[1],
		Projects:       make(map[entities.ProjectID]entities.Project, len(value.Projects)),
		Participants:   make(map[entities.PublicKey]entities.Participant, len(value.Participants)),
	}
	for id, fields := range value.Projects {
		ledger.Projects[entities.ProjectID(id)] = entities.Project{
			Name:       fields[0],
			TeamName:   fields[1],
			VideoLink:  fields[2],
			GithubLink: fields[3],
			DriveLink:  fields[4],
		}
	}
	for key, record := range value.Participants {
		votes := make(map[entities.ProjectID]uint64, len(record.Votes))
		for id, amount := range record.Votes {
			votes[entities.ProjectID(id)] = amount
		}
		ledger.Participants[entities.PublicKey(key)] = entities.Participant{
			TotalVotingPower: record.TotalVotingPower,
			UsedVotingPower:  record.UsedVotingPower,
			Votes:            votes,
		}
	}
	return ledger
}

// Encode returns the canonical binary form of the ledger. Text fields must be
// valid UTF-8 so that Decode accepts every encoding Encode produces.
func Encode(ledger entities.Ledger) ([]byte, error) {
	return EncodeSerialized(ToSerialized(ledger))
}

// Decode parses bytes produced by Encode. It rejects anything Encode could not
// have produced: short reads, trailing bytes, invalid UTF-8 and map keys that
// are not strictly ascending.
func Decode(data []byte) (entities.Ledger, error) {
	value, err := DecodeSerialized(data)
	if err != nil {
		return entities.Ledger{}, err
	}
	return FromSerialized(value), nil
}

func EncodeSerialized(value Serialized) ([]byte, error) {
	w := writer{buf: make([]byte, 0, 64)}
	w.u64(value.Window[0])
	w.u64(value.Window[1])

	projectIDs := slices.Sorted(maps.Keys(value.Projects))
	if err := w.length(len(projectIDs)); err != nil {
		return nil, err
	}
	for _, id := range projectIDs {
		w.u64(id)
		for _, field := range value.Projects[id] {
			if err := w.str(field); err != nil {
				return nil, fmt.Errorf("project %d: %w", id, err)
			}
		}
	}

	keys := slices.SortedFunc(maps.Keys(value.Participants), compareKeys)
	if err := w.length(len(keys)); err != nil {
		return nil, err
	}
	for _, key := range keys {
		record := value.Participants[key]
		w.raw(key[:])
		w.u64(record.TotalVotingPower)
		w.u64(record.UsedVotingPower)
		voteIDs := slices.Sorted(maps.Keys(record.Votes))
		if err := w.length(len(voteIDs)); err != nil {
			return nil, err
		}
		for _, id := range voteIDs {
			w.u64(id)
			w.u64(record.Votes[id])
		}
	}
	return w.buf, nil
}

func DecodeSerialized(data []byte) (Serialized, error) {
	r := reader{data: data}
	var out Serialized
	var err error

	if out.Window[0], err = r.u64(); err != nil {
		return Serialized{}, err
	}
	if out.Window[1], err = r.u64(); err != nil {
		return Serialized{}, err
	}

	projectCount, err := r.length()
	if err != nil {
		return Serialized{}, err
	}
	out.Projects = make(map[uint64]ProjectFields, min(projectCount, r.remaining()/8))
	var previousID uint64
	for i := 0; i < projectCount; i++ {
		id, err := r.u64()
		if err != nil {
			return Serialized{}, err
		}
		if i > 0 && id <= previousID {
			return Serialized{}, r.fail("project ids are not strictly ascending")
		}
		previousID = id
		var fields ProjectFields
		for j := range fields {
			if fields[j], err = r.str(); err != nil {
				return Serialized{}, err
			}
		}
		out.Projects[id] = fields
	}

	participantCount, err := r.length()
	if err != nil {
		return Serialized{}, err
	}
	out.Participants = make(map[[entities.PublicKeyLength]byte]ParticipantRecord,
		min(participantCount, r.remaining()/entities.PublicKeyLength))
	var previousKey [entities.PublicKeyLength]byte
	for i := 0; i < participantCount; i++ {
		var key [entities.PublicKeyLength]byte
		raw, err := r.take(entities.PublicKeyLength)
		if err != nil {
			return Serialized{}, err
		}
		copy(key[:], raw)
		if i > 0 && compareKeys(key, previousKey) <= 0 {
			return Serialized{}, r.fail("participant keys are not strictly ascending")
		}
		previousKey = key

		var record ParticipantRecord
		if record.TotalVotingPower, err = r.u64(); err != nil {
			return Serialized{}, err
		}
		if record.UsedVotingPower, err = r.u64(); err != nil {
			return Serialized{}, err
		}
		voteCount, err := r.length()
		if err != nil {
			return Serialized{}, err
		}
		record.Votes = make(map[uint64]uint64, min(voteCount, r.remaining()/16))
		var previousVote uint64
		for j := 0; j < voteCount; j++ {
			id, err := r.u64()
			if err != nil {
				return Serialized{}, err
			}
			if j > 0 && id <= previousVote {
				return Serialized{}, r.fail("vote project ids are not strictly ascending")
			}
			previousVote = id
			amount, err := r.u64()
			if err != nil {
				return Serialized{}, err
			}
			record.Votes[id] = amount
		}
		out.Participants[key] = record
	}

	if r.remaining() != 0 {
		return Serialized{}, r.fail(fmt.Sprintf("%d trailing bytes", r.remaining()))
	}
	return out, nil
}

func compareKeys(a [entities.PublicKeyLength]byte, b [entities.PublicKeyLength]byte) int {
	return entities.PublicKey(a).Compare(entities.PublicKey(b))
}

type writer struct {
	buf []byte
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) length(n int) error {
	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: length %d does not fit in u32", domainerrors.ErrMalformedEncoding, n)
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(n))
	return nil
}

func (w *writer) str(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: string %q is not valid UTF-8", domainerrors.ErrMalformedEncoding, s)
	}
	if err := w.length(len(s)); err != nil {
		return err
	}
	w.buf = append(w.buf, s...)
	return nil
}

type reader struct {
	data   []byte
	offset int
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) fail(reason string) error {
	return fmt.Errorf("%w: %s at offset %d", domainerrors.ErrMalformedEncoding, reason, r.offset)
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.fail(fmt.Sprintf("need %d bytes, have %d", n, r.remaining()))
	}
	out := r.data[r.offset : r.offset+n]
	r.offset += n
	return out, nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) length() (int, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	n := binary.LittleEndian.Uint32(b)
	return int(n), nil
}

func (r *reader) str() (string, error) {
	n, err := r.length()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.fail("string is not valid UTF-8")
	}
	return string(b), nil
}
