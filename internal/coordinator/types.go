// Package coordinator is the authoritative per-room state machine for a
// CoinShuffle-style mix: it accepts public keys, distributes per-position
// decryption key vectors, relays encrypted outputs between shuffle
// positions, collects signatures, and assembles the final (outputs,
// inputs) pair for an external transfer to broadcast.
package coordinator

import (
	"crypto/rsa"

	"github.com/google/uuid"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// UTXOID is the 256-bit unique key of a UTXO participating in a room.
type UTXOID [32]byte

// RoomStateKind tags the variant of Room.State.
type RoomStateKind int

const (
	RoomWaiting RoomStateKind = iota
	RoomConnecting
	RoomShuffle
	RoomSignatures
	RoomFinalized
)

// RoomState is the tagged-union state of a Room. Exactly one of the
// payload fields is meaningful, selected by Kind.
type RoomState struct {
	Kind RoomStateKind

	// RoomConnecting: UTXO ids whose public key has arrived.
	Connected map[UTXOID]struct{}

	// RoomShuffle: the round/position index currently expected to act.
	Round int

	// RoomSignatures: the finalized payout list and the set (in arrival
	// order) of UTXO ids whose signature has been recorded.
	Outputs []models.Output
	Signed  []UTXOID

	// RoomFinalized: hash of the transaction that was broadcast.
	TxHash [32]byte
}

// Room is a matched batch of UTXOs collaborating on one joint transaction.
// Participant order is fixed at creation and never changes; it determines
// each participant's shuffle position.
type Room struct {
	ID           uuid.UUID
	Token        models.Address
	Amount       [32]byte
	Participants []UTXOID
	State        RoomState
}

// Position returns the 0-based index of id within the room's participant
// list, or -1 if absent.
func (r *Room) Position(id UTXOID) int {
	for i, p := range r.Participants {
		if p == id {
			return i
		}
	}
	return -1
}

// ParticipantStateKind tags the variant of Participant.State.
type ParticipantStateKind int

const (
	ParticipantWait ParticipantStateKind = iota
	ParticipantStart
	ParticipantDecryptedOutputs
	ParticipantSigningOutput
)

// ParticipantState is the tagged-union state of a Participant.
type ParticipantState struct {
	Kind ParticipantStateKind

	// ParticipantStart: the participant's RSA public key.
	PubKey *rsa.PublicKey

	// ParticipantDecryptedOutputs: the participant's posted shuffle-round
	// result, length == position+1.
	DecryptedOutputs [][]byte

	// ParticipantSigningOutput: the signed input the participant posted.
	SigningOutput models.Input
}

// Participant is one UTXO's record within a room.
type Participant struct {
	UTXOID UTXOID
	RoomID uuid.UUID
	State  ParticipantState
}
