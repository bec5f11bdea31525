package coordinator

import (
	"fmt"

	"github.com/google/uuid"
)

// ParticipantNotFoundError reports that no participant record exists for a
// UTXO id.
type ParticipantNotFoundError struct {
	UTXOID UTXOID
}

func (e *ParticipantNotFoundError) Error() string {
	return fmt.Sprintf("coordinator: participant %x not found", e.UTXOID)
}

// RoomNotFoundError reports that no room record exists for a room id.
type RoomNotFoundError struct {
	RoomID uuid.UUID
}

func (e *RoomNotFoundError) Error() string {
	return fmt.Sprintf("coordinator: room %s not found", e.RoomID)
}

// ParticipantNotInRoomError reports that a participant's room_id does not
// match the room queried, or the UTXO id is absent from its participants.
type ParticipantNotInRoomError struct {
	UTXOID UTXOID
	RoomID uuid.UUID
}

func (e *ParticipantNotInRoomError) Error() string {
	return fmt.Sprintf("coordinator: participant %x is not in room %s", e.UTXOID, e.RoomID)
}

// ParticipantAlreadyInRoomError reports a public-key resubmission that
// conflicts with an already-stored key (see Open Question 4: a byte-equal
// resubmission is treated as an idempotent no-op instead).
type ParticipantAlreadyInRoomError struct {
	UTXOID UTXOID
}

func (e *ParticipantAlreadyInRoomError) Error() string {
	return fmt.Sprintf("coordinator: participant %x already connected with a different key", e.UTXOID)
}

// InvalidRoomStateError reports that a room's current state does not admit
// the requested operation.
type InvalidRoomStateError struct {
	RoomID uuid.UUID
	Kind   RoomStateKind
}

func (e *InvalidRoomStateError) Error() string {
	return fmt.Sprintf("coordinator: room %s is not in a state that admits this operation (state=%d)", e.RoomID, e.Kind)
}

// InvalidParticipantStateError reports that a participant's current state
// does not admit the requested operation.
type InvalidParticipantStateError struct {
	UTXOID UTXOID
	Kind   ParticipantStateKind
}

func (e *InvalidParticipantStateError) Error() string {
	return fmt.Sprintf("coordinator: participant %x is not in a state that admits this operation (state=%d)", e.UTXOID, e.Kind)
}

// InvalidRoundError reports a position that does not match the room's
// current Shuffle(r) round.
type InvalidRoundError struct {
	Position int
}

func (e *InvalidRoundError) Error() string {
	return fmt.Sprintf("coordinator: invalid round for position %d", e.Position)
}

// InvalidNumberOfOutputsError reports len(outputs) != position+1 on
// pass_decoded_outputs.
type InvalidNumberOfOutputsError struct {
	Got, Want int
}

func (e *InvalidNumberOfOutputsError) Error() string {
	return fmt.Sprintf("coordinator: invalid number of outputs: got %d, want %d", e.Got, e.Want)
}

// InvalidOutputsError reports a finalization-time check failure: a
// terminal "address" element was not exactly models.AddressSize bytes.
type InvalidOutputsError struct {
	Index int
	Len   int
}

func (e *InvalidOutputsError) Error() string {
	return fmt.Sprintf("coordinator: output %d has invalid length %d, want %d", e.Index, e.Len, 20)
}
