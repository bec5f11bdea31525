// Package models holds the on-chain-compatible records produced by a
// finished shuffle: the payout list a joint transaction must contain and
// the per-participant signatures that authorize spending it.
package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AddressSize is the byte length of an owner/payout address (Ethereum-style,
// per the original ethers-core Address this spec was distilled from).
const AddressSize = 20

// Address is a raw 20-byte on-chain address.
type Address [AddressSize]byte

// MarshalJSON encodes an Address as a 0x-prefixed hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(a[:]))
}

// UnmarshalJSON decodes an Address from a 0x-prefixed or bare hex string.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return err
	}
	if len(raw) != AddressSize {
		return fmt.Errorf("models: address must be %d bytes, got %d", AddressSize, len(raw))
	}
	copy(a[:], raw)
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Output is a single entry of the joint transaction this room is building:
// a payout of the room's uniform amount to an unlinked owner address.
type Output struct {
	Amount [32]byte // big-endian 256-bit unsigned integer
	Owner  Address
}

// Input is the signed authorization a single UTXO contributes to the joint
// transaction, supplied once its owning participant has signed the
// canonical output list.
type Input struct {
	ID        [32]byte // 256-bit UTXO id
	Signature []byte   // raw signature bytes; 65 for recoverable secp256k1
}
