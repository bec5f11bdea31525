package coordinator

import (
	"sync"

	"github.com/google/uuid"
)

// Storage is the narrow persistence contract the coordinator depends on.
// MemoryStorage is the in-process reference implementation; production
// deployments may substitute a durable store (e.g. the Postgres-backed one
// in internal/coordinatordb, which issues each call as its own statement)
// behind this same interface. Per spec §5, a
// non-transactional implementation's multi-step logical operations are
// NOT atomic across separate calls — callers serialize per-room if they
// need that.
type Storage interface {
	InsertRoom(room Room)
	GetRoom(id uuid.UUID) (Room, bool)
	UpdateRoomState(id uuid.UUID, state RoomState)

	InsertParticipant(p Participant)
	GetParticipant(id UTXOID) (Participant, bool)
	GetManyParticipants(ids []UTXOID) []Participant
	UpdateParticipantState(id UTXOID, state ParticipantState)

	ClearRoom(roomID uuid.UUID)
}

// MemoryStorage is a typed in-memory reference store. Each map is guarded
// by its own mutex; a caller performing a multi-step logical transaction
// (read room, validate, read participant, validate, write) holds no single
// lock across those calls, matching the "interior suspension" model in
// spec §5/§9: every storage primitive is a short, non-blocking critical
// section, not the whole logical operation.
type MemoryStorage struct {
	roomsMu sync.Mutex
	rooms   map[uuid.UUID]Room

	participantsMu sync.Mutex
	participants   map[UTXOID]Participant
}

// NewMemoryStorage returns an empty in-memory reference store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		rooms:        make(map[uuid.UUID]Room),
		participants: make(map[UTXOID]Participant),
	}
}

func (s *MemoryStorage) InsertRoom(room Room) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	s.rooms[room.ID] = room
}

func (s *MemoryStorage) GetRoom(id uuid.UUID) (Room, bool) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *MemoryStorage) UpdateRoomState(id uuid.UUID, state RoomState) {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return
	}
	room.State = state
	s.rooms[id] = room
}

func (s *MemoryStorage) InsertParticipant(p Participant) {
	s.participantsMu.Lock()
	defer s.participantsMu.Unlock()
	s.participants[p.UTXOID] = p
}

func (s *MemoryStorage) GetParticipant(id UTXOID) (Participant, bool) {
	s.participantsMu.Lock()
	defer s.participantsMu.Unlock()
	p, ok := s.participants[id]
	return p, ok
}

// GetManyParticipants preserves request order; missing entries are
// skipped.
func (s *MemoryStorage) GetManyParticipants(ids []UTXOID) []Participant {
	s.participantsMu.Lock()
	defer s.participantsMu.Unlock()

	out := make([]Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStorage) UpdateParticipantState(id UTXOID, state ParticipantState) {
	s.participantsMu.Lock()
	defer s.participantsMu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return
	}
	p.State = state
	s.participants[id] = p
}

// ClearRoom looks up the room, removes it, then removes every participant
// record whose id is in the room's participants list. A clear of a
// non-existent room is a no-op.
func (s *MemoryStorage) ClearRoom(roomID uuid.UUID) {
	s.roomsMu.Lock()
	room, ok := s.rooms[roomID]
	if ok {
		delete(s.rooms, roomID)
	}
	s.roomsMu.Unlock()

	if !ok {
		return
	}

	s.participantsMu.Lock()
	defer s.participantsMu.Unlock()
	for _, id := range room.Participants {
		delete(s.participants, id)
	}
}
