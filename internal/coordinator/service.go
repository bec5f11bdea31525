package coordinator

import (
	"crypto/rsa"
	"log"

	"github.com/google/uuid"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// Coordinator is the authoritative per-room state machine. All operations
// are safe for concurrent use across rooms; within one room, each method
// is a sequence of separate storage calls and is not atomic with respect
// to concurrent calls on the same room (see Storage).
type Coordinator struct {
	storage Storage

	// VerifySignatures gates whether pass_signature checks that a public
	// key can be recovered from the submitted signature over the canonical
	// signing message (Open Question 3). The recovered key is not stored.
	// Disable only for callers whose signing scheme this repo cannot
	// recover.
	VerifySignatures bool
}

// New returns a Coordinator backed by the given storage.
func New(storage Storage) *Coordinator {
	return &Coordinator{storage: storage, VerifySignatures: true}
}

// CreateRoom creates a room in state Waiting and inserts one Participant
// (state Wait) per id.
func (c *Coordinator) CreateRoom(token models.Address, amount [32]byte, participants []UTXOID) (Room, error) {
	room := Room{
		ID:           uuid.New(),
		Token:        token,
		Amount:       amount,
		Participants: append([]UTXOID(nil), participants...),
		State:        RoomState{Kind: RoomWaiting},
	}

	c.storage.InsertRoom(room)
	for _, id := range participants {
		c.storage.InsertParticipant(Participant{
			UTXOID: id,
			RoomID: room.ID,
			State:  ParticipantState{Kind: ParticipantWait},
		})
	}

	log.Printf("[Coordinator] created room %s with %d participants", room.ID, len(participants))
	return room, nil
}

// ConnectParticipant records a participant's RSA public key. Once every
// participant in the room has connected, it computes the per-position key
// vectors, transitions the room to Shuffle(0), and returns them. Until
// then it returns (nil, nil).
//
// Resubmitting the same byte-equal key for an already-connected
// participant is treated as an idempotent no-op (Open Question 4);
// resubmitting a different key is ParticipantAlreadyInRoomError.
func (c *Coordinator) ConnectParticipant(participantID UTXOID, pubKey *rsa.PublicKey) (map[UTXOID][]*rsa.PublicKey, error) {
	participant, ok := c.storage.GetParticipant(participantID)
	if !ok {
		return nil, &ParticipantNotFoundError{UTXOID: participantID}
	}

	room, ok := c.storage.GetRoom(participant.RoomID)
	if !ok {
		return nil, &RoomNotFoundError{RoomID: participant.RoomID}
	}
	if room.Position(participantID) < 0 {
		return nil, &ParticipantNotInRoomError{UTXOID: participantID, RoomID: room.ID}
	}

	var connected map[UTXOID]struct{}
	switch room.State.Kind {
	case RoomWaiting:
		connected = map[UTXOID]struct{}{participantID: {}}
	case RoomConnecting:
		if _, already := room.State.Connected[participantID]; already {
			if samePublicKey(participant.State.PubKey, pubKey) {
				return nil, nil
			}
			return nil, &ParticipantAlreadyInRoomError{UTXOID: participantID}
		}
		connected = cloneConnected(room.State.Connected)
		connected[participantID] = struct{}{}
	default:
		return nil, &InvalidRoomStateError{RoomID: room.ID, Kind: room.State.Kind}
	}

	c.storage.UpdateParticipantState(participantID, ParticipantState{Kind: ParticipantStart, PubKey: pubKey})

	if len(connected) == len(room.Participants) {
		keys, err := c.distributeConnectedKeys(room.Participants)
		if err != nil {
			return nil, err
		}
		c.storage.UpdateRoomState(room.ID, RoomState{Kind: RoomShuffle, Round: 0})
		log.Printf("[Coordinator] room %s fully connected, starting shuffle", room.ID)
		return keys, nil
	}

	c.storage.UpdateRoomState(room.ID, RoomState{Kind: RoomConnecting, Connected: connected})
	return nil, nil
}

func (c *Coordinator) distributeConnectedKeys(participants []UTXOID) (map[UTXOID][]*rsa.PublicKey, error) {
	records := c.storage.GetManyParticipants(participants)
	pubKeys := make(map[UTXOID]*rsa.PublicKey, len(records))
	for _, p := range records {
		if p.State.Kind != ParticipantStart {
			return nil, &InvalidParticipantStateError{UTXOID: p.UTXOID, Kind: p.State.Kind}
		}
		pubKeys[p.UTXOID] = p.State.PubKey
	}
	return distributeKeys(participants, pubKeys)
}

func samePublicKey(a, b *rsa.PublicKey) bool {
	if a == nil || b == nil {
		return false
	}
	return a.E == b.E && a.N.Cmp(b.N) == 0
}

func cloneConnected(s map[UTXOID]struct{}) map[UTXOID]struct{} {
	out := make(map[UTXOID]struct{}, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// EncodedOutputs returns the list of encrypted/cleartext outputs the given
// participant should decrypt this round: the predecessor's posted
// DecryptedOutputs, or an empty list if the participant is at position 0.
func (c *Coordinator) EncodedOutputs(participantID UTXOID) ([][]byte, error) {
	participant, ok := c.storage.GetParticipant(participantID)
	if !ok {
		return nil, &ParticipantNotFoundError{UTXOID: participantID}
	}
	room, ok := c.storage.GetRoom(participant.RoomID)
	if !ok {
		return nil, &RoomNotFoundError{RoomID: participant.RoomID}
	}

	position := room.Position(participantID)
	if position < 0 {
		return nil, &ParticipantNotInRoomError{UTXOID: participantID, RoomID: room.ID}
	}
	if position == 0 {
		return nil, nil
	}

	prevID := room.Participants[position-1]
	prev, ok := c.storage.GetParticipant(prevID)
	if !ok {
		return nil, &ParticipantNotFoundError{UTXOID: prevID}
	}
	if prev.State.Kind != ParticipantDecryptedOutputs {
		return nil, &InvalidParticipantStateError{UTXOID: prevID, Kind: prev.State.Kind}
	}

	return prev.State.DecryptedOutputs, nil
}

// PassOutputsResult is the outcome of PassDecodedOutputs: either the room
// advanced to the next shuffle round, or the last participant's output
// finished the shuffle and the room moved to Signatures.
type PassOutputsResult struct {
	Finished bool
	Round    int
	Outputs  []models.Output
}

// PassDecodedOutputs records a participant's shuffle-round result. If the
// participant is last in the room, its posted entries are interpreted as
// 20-byte cleartext addresses, the room transitions to
// Signatures(outputs, ∅), and Finished outputs are returned. Otherwise the
// room advances to Shuffle(r+1) and Round is returned.
func (c *Coordinator) PassDecodedOutputs(participantID UTXOID, outputs [][]byte) (PassOutputsResult, error) {
	participant, ok := c.storage.GetParticipant(participantID)
	if !ok {
		return PassOutputsResult{}, &ParticipantNotFoundError{UTXOID: participantID}
	}
	room, ok := c.storage.GetRoom(participant.RoomID)
	if !ok {
		return PassOutputsResult{}, &RoomNotFoundError{RoomID: participant.RoomID}
	}

	position := room.Position(participantID)
	if position < 0 {
		return PassOutputsResult{}, &ParticipantNotInRoomError{UTXOID: participantID, RoomID: room.ID}
	}
	if room.State.Kind != RoomShuffle {
		return PassOutputsResult{}, &InvalidRoomStateError{RoomID: room.ID, Kind: room.State.Kind}
	}
	if position != room.State.Round {
		return PassOutputsResult{}, &InvalidRoundError{Position: position}
	}
	if len(outputs) != position+1 {
		return PassOutputsResult{}, &InvalidNumberOfOutputsError{Got: len(outputs), Want: position + 1}
	}
	if participant.State.Kind != ParticipantStart {
		return PassOutputsResult{}, &InvalidParticipantStateError{UTXOID: participantID, Kind: participant.State.Kind}
	}

	var result PassOutputsResult
	if position == len(room.Participants)-1 {
		finalOutputs := make([]models.Output, len(outputs))
		for i, raw := range outputs {
			if len(raw) != models.AddressSize {
				return PassOutputsResult{}, &InvalidOutputsError{Index: i, Len: len(raw)}
			}
			var owner models.Address
			copy(owner[:], raw)
			finalOutputs[i] = models.Output{Amount: room.Amount, Owner: owner}
		}
		c.storage.UpdateRoomState(room.ID, RoomState{
			Kind:    RoomSignatures,
			Outputs: finalOutputs,
			Signed:  nil,
		})
		result = PassOutputsResult{Finished: true, Outputs: finalOutputs}
		log.Printf("[Coordinator] room %s shuffle complete, moving to signatures", room.ID)
	} else {
		nextRound := room.State.Round + 1
		c.storage.UpdateRoomState(room.ID, RoomState{Kind: RoomShuffle, Round: nextRound})
		result = PassOutputsResult{Round: nextRound}
	}

	c.storage.UpdateParticipantState(participantID, ParticipantState{
		Kind:             ParticipantDecryptedOutputs,
		DecryptedOutputs: outputs,
	})

	return result, nil
}

// OutputsToSign returns the finalized output list a room's participants
// must sign.
func (c *Coordinator) OutputsToSign(roomID uuid.UUID) ([]models.Output, error) {
	room, ok := c.storage.GetRoom(roomID)
	if !ok {
		return nil, &RoomNotFoundError{RoomID: roomID}
	}
	if room.State.Kind != RoomSignatures {
		return nil, &InvalidRoomStateError{RoomID: roomID, Kind: room.State.Kind}
	}
	return room.State.Outputs, nil
}

// PassSignature records a participant's signature over the canonical
// output list. Once every participant has signed, it returns the full
// (outputs, inputs) tuple for the external Transfer to broadcast; until
// then both return slices are nil.
func (c *Coordinator) PassSignature(roomID uuid.UUID, participantID UTXOID, signature []byte) ([]models.Output, []models.Input, error) {
	room, ok := c.storage.GetRoom(roomID)
	if !ok {
		return nil, nil, &RoomNotFoundError{RoomID: roomID}
	}
	if room.Position(participantID) < 0 {
		return nil, nil, &ParticipantNotInRoomError{UTXOID: participantID, RoomID: roomID}
	}
	if room.State.Kind != RoomSignatures {
		return nil, nil, &InvalidRoomStateError{RoomID: roomID, Kind: room.State.Kind}
	}

	participant, ok := c.storage.GetParticipant(participantID)
	if !ok {
		return nil, nil, &ParticipantNotFoundError{UTXOID: participantID}
	}
	if participant.State.Kind != ParticipantDecryptedOutputs {
		return nil, nil, &InvalidParticipantStateError{UTXOID: participantID, Kind: participant.State.Kind}
	}

	if c.VerifySignatures {
		if err := verifyRecoverable(room.State.Outputs, signature); err != nil {
			return nil, nil, err
		}
	}

	input := models.Input{ID: participantID, Signature: signature}
	c.storage.UpdateParticipantState(participantID, ParticipantState{
		Kind:          ParticipantSigningOutput,
		SigningOutput: input,
	})

	signed := append(append([]UTXOID(nil), room.State.Signed...), participantID)
	c.storage.UpdateRoomState(roomID, RoomState{
		Kind:    RoomSignatures,
		Outputs: room.State.Outputs,
		Signed:  signed,
	})

	if len(signed) != len(room.Participants) {
		return nil, nil, nil
	}

	inputs := make([]models.Input, 0, len(room.Participants))
	for _, id := range room.Participants {
		p, ok := c.storage.GetParticipant(id)
		if !ok {
			return nil, nil, &ParticipantNotFoundError{UTXOID: id}
		}
		if p.State.Kind != ParticipantSigningOutput {
			return nil, nil, &InvalidParticipantStateError{UTXOID: id, Kind: p.State.Kind}
		}
		inputs = append(inputs, p.State.SigningOutput)
	}

	log.Printf("[Coordinator] room %s fully signed, ready for transfer", roomID)
	return room.State.Outputs, inputs, nil
}

// Finalize transitions a room to its terminal Finalized(txHash) state once
// an external Transfer has broadcast the assembled transaction (Open
// Question 2: this variant is defined but never reached by the shuffle
// flow itself).
func (c *Coordinator) Finalize(roomID uuid.UUID, txHash [32]byte) error {
	room, ok := c.storage.GetRoom(roomID)
	if !ok {
		return &RoomNotFoundError{RoomID: roomID}
	}
	if room.State.Kind != RoomSignatures {
		return &InvalidRoomStateError{RoomID: roomID, Kind: room.State.Kind}
	}
	c.storage.UpdateRoomState(roomID, RoomState{Kind: RoomFinalized, TxHash: txHash})
	return nil
}

// GetParticipant returns a participant record by UTXO id.
func (c *Coordinator) GetParticipant(id UTXOID) (Participant, bool) {
	return c.storage.GetParticipant(id)
}

// GetRoom returns a room record by id.
func (c *Coordinator) GetRoom(id uuid.UUID) (Room, bool) {
	return c.storage.GetRoom(id)
}

// ClearRoom erases a room and its participants. Clearing a non-existent
// room is a no-op.
func (c *Coordinator) ClearRoom(roomID uuid.UUID) {
	c.storage.ClearRoom(roomID)
}
