// Package cbor exports ledgers as Core Deterministic CBOR (RFC 8949 §4.2.1).
package cbor

import (
	"fmt"

	"electionkeeper/contexts/governance/election-ledger/domain/codec"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"

	cborlib "github.com/fxamacker/cbor/v2"
)

const (
	Format    = "cbor"
	MediaType = "application/cbor"
)

type ledgerDocument struct {
	Window       [2]uint64                      `cbor:"1,keyasint"`
	Projects     map[uint64]codec.ProjectFields `cbor:"2,keyasint"`
	Participants map[string]participantDocument `cbor:"3,keyasint"`
}

type participantDocument struct {
	TotalVotingPower uint64            `cbor:"1,keyasint"`
	UsedVotingPower  uint64            `cbor:"2,keyasint"`
	Votes            map[uint64]uint64 `cbor:"3,keyasint"`
}

// Codec encodes with sorted map keys and shortest-form integers, so equal
// ledgers always produce equal bytes.
type Codec struct {
	enc cborlib.EncMode
	dec cborlib.DecMode
}

func NewCodec() (*Codec, error) {
	enc, err := cborlib.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	dec, err := cborlib.DecOptions{
		DupMapKey:         cborlib.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cborlib.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor dec mode: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

func (c *Codec) Format() string {
	return Format
}

func (c *Codec) ContentType() string {
	return MediaType
}

func (c *Codec) EncodeLedger(ledger entities.Ledger) ([]byte, error) {
	serialized := codec.ToSerialized(ledger)
	doc := ledgerDocument{
		Window:       serialized.Window,
		Projects:     serialized.Projects,
		Participants: make(map[string]participantDocument, len(serialized.Participants)),
	}
	for key, record := range serialized.Participants {
		doc.Participants[entities.PublicKey(key).String()] = participantDocument{
			TotalVotingPower: record.TotalVotingPower,
			UsedVotingPower:  record.UsedVotingPower,
			Votes:            record.Votes,
		}
	}
	return c.enc.Marshal(doc)
}

func (c *Codec) DecodeLedger(data []byte) (entities.Ledger, error) {
	var doc ledgerDocument
	if err := c.dec.Unmarshal(data, &doc); err != nil {
		return entities.Ledger{}, fmt.Errorf("%w: %w", domainerrors.ErrMalformedEncoding, err)
	}
	serialized := codec.Serialized{
		Window:       doc.Window,
		Projects:     doc.Projects,
		Participants: make(map[[entities.PublicKeyLength]byte]codec.ParticipantRecord, len(doc.Participants)),
	}
	if serialized.Projects == nil {
		serialized.Projects = make(map[uint64]codec.ProjectFields)
	}
	for rawKey, participant := range doc.Participants {
		key, err := entities.ParsePublicKey(rawKey)
		if err != nil {
			return entities.Ledger{}, fmt.Errorf("%w: %w", domainerrors.ErrMalformedEncoding, err)
		}
		votes := participant.Votes
		if votes == nil {
			votes = make(map[uint64]uint64)
		}
		serialized.Participants[key] = codec.ParticipantRecord{
			TotalVotingPower: participant.TotalVotingPower,
			UsedVotingPower:  participant.UsedVotingPower,
			Votes:            votes,
		}
	}
	return codec.FromSerialized(serialized), nil
}
