package shuffle

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// MessageToSign builds the canonical preimage participants sign once the
// shuffle has produced a final output list: for each output, in order, a
// big-endian 32-byte amount followed by the 20-byte owner address. The
// preimage is hashed with Keccak-256 so the resulting digest is the same
// 32-byte value an on-chain verifier recovering an ECDSA signature would
// expect.
func MessageToSign(outputs []models.Output) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, out := range outputs {
		h.Write(out.Amount[:])
		h.Write(out.Owner[:])
	}

	var digest [32]byte
	h.Sum(digest[:0])
	return digest
}

// amountFromUint64 is a test/construction helper: it encodes v as a
// big-endian 32-byte amount field.
func amountFromUint64(v uint64) [32]byte {
	var out [32]byte
	binary.BigEndian.PutUint64(out[24:], v)
	return out
}
