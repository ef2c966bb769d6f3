package entities

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

// PublicKeyLength is the size of an account identity in bytes.
const PublicKeyLength = 32

// PublicKey identifies an account. It is supplied already authenticated by the
// execution boundary, so the ledger treats it as an opaque value.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a 64 character hex string, with or without a 0x prefix.
func ParsePublicKey(value string) (PublicKey, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(raw) != hex.EncodedLen(PublicKeyLength) {
		return PublicKey{}, fmt.Errorf("%w: expected %d hex characters, got %d",
			domainerrors.ErrInvalidPublicKey, hex.EncodedLen(PublicKeyLength), len(raw))
	}
	var key PublicKey
	if _, err := hex.Decode(key[:], []byte(raw)); err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidPublicKey, err)
	}
	return key, nil
}

func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

func (k PublicKey) Compare(other PublicKey) int {
	return bytes.Compare(k[:], other[:])
}

func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}
