// Package coordinatordb implements coordinator.Storage on a PostgreSQL
// backend, as an alternative to coordinator.MemoryStorage, so a production
// deployment keeps room/participant state across restarts.
package coordinatordb

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/coinshuffle-core/internal/coordinator"
	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// PostgresStore is a coordinator.Storage implementation backed by a pgx
// connection pool. Like coordinator.MemoryStorage, reads and writes for a
// single logical operation happen as separate statements: callers
// serialize per-room if they need cross-statement atomicity, same as the
// in-memory store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection to PostgreSQL.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log.Println("coordinatordb: connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql relative to the process's
// working directory.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/coordinatordb/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}

	log.Println("coordinatordb: schema initialized")
	return nil
}

// roomStateDTO is the JSON-serializable projection of coordinator.RoomState.
type roomStateDTO struct {
	Connected []coordinator.UTXOID `json:"connected,omitempty"`
	Round     int                  `json:"round"`
	Outputs   []models.Output      `json:"outputs,omitempty"`
	Signed    []coordinator.UTXOID `json:"signed,omitempty"`
	TxHash    [32]byte             `json:"tx_hash"`
}

// participantStateDTO is the JSON-serializable projection of
// coordinator.ParticipantState.
type participantStateDTO struct {
	PubKeyDER        []byte        `json:"pub_key_der,omitempty"`
	DecryptedOutputs [][]byte      `json:"decrypted_outputs,omitempty"`
	SigningOutput    *models.Input `json:"signing_output,omitempty"`
}

func encodeRoomState(state coordinator.RoomState) (json.RawMessage, error) {
	dto := roomStateDTO{Round: state.Round, Outputs: state.Outputs, TxHash: state.TxHash}
	for id := range state.Connected {
		dto.Connected = append(dto.Connected, id)
	}
	dto.Signed = append(dto.Signed, state.Signed...)
	return json.Marshal(dto)
}

func decodeRoomState(kind coordinator.RoomStateKind, raw []byte) (coordinator.RoomState, error) {
	var dto roomStateDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return coordinator.RoomState{}, err
	}

	state := coordinator.RoomState{Kind: kind, Round: dto.Round, Outputs: dto.Outputs, Signed: dto.Signed, TxHash: dto.TxHash}
	if len(dto.Connected) > 0 {
		state.Connected = make(map[coordinator.UTXOID]struct{}, len(dto.Connected))
		for _, id := range dto.Connected {
			state.Connected[id] = struct{}{}
		}
	}
	return state, nil
}

func encodeParticipantState(state coordinator.ParticipantState) (json.RawMessage, error) {
	dto := participantStateDTO{DecryptedOutputs: state.DecryptedOutputs}
	if state.PubKey != nil {
		dto.PubKeyDER = x509.MarshalPKCS1PublicKey(state.PubKey)
	}
	if state.Kind == coordinator.ParticipantSigningOutput {
		out := state.SigningOutput
		dto.SigningOutput = &out
	}
	return json.Marshal(dto)
}

func decodeParticipantState(kind coordinator.ParticipantStateKind, raw []byte) (coordinator.ParticipantState, error) {
	var dto participantStateDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return coordinator.ParticipantState{}, err
	}

	state := coordinator.ParticipantState{Kind: kind, DecryptedOutputs: dto.DecryptedOutputs}
	if len(dto.PubKeyDER) > 0 {
		pubKey, err := x509.ParsePKCS1PublicKey(dto.PubKeyDER)
		if err != nil {
			return coordinator.ParticipantState{}, fmt.Errorf("parse stored public key: %w", err)
		}
		state.PubKey = pubKey
	}
	if dto.SigningOutput != nil {
		state.SigningOutput = *dto.SigningOutput
	}
	return state, nil
}

func participantsToBytea(ids []coordinator.UTXOID) [][]byte {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		b := make([]byte, len(id))
		copy(b, id[:])
		out[i] = b
	}
	return out
}

func byteaToParticipants(raw [][]byte) []coordinator.UTXOID {
	out := make([]coordinator.UTXOID, len(raw))
	for i, b := range raw {
		copy(out[i][:], b)
	}
	return out
}

func (s *PostgresStore) InsertRoom(room coordinator.Room) {
	ctx := context.Background()
	state, err := encodeRoomState(room.State)
	if err != nil {
		log.Printf("coordinatordb: encode room state: %v", err)
		return
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO rooms (id, token, amount, participants, state_kind, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET token = EXCLUDED.token, amount = EXCLUDED.amount, participants = EXCLUDED.participants,
		    state_kind = EXCLUDED.state_kind, state = EXCLUDED.state, updated_at = NOW()`,
		room.ID, room.Token[:], room.Amount[:], participantsToBytea(room.Participants), int(room.State.Kind), state)
	if err != nil {
		log.Printf("coordinatordb: insert room %s: %v", room.ID, err)
	}
}

func (s *PostgresStore) GetRoom(id uuid.UUID) (coordinator.Room, bool) {
	ctx := context.Background()

	var (
		token, amount []byte
		participants  [][]byte
		stateKind     int
		stateRaw      []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT token, amount, participants, state_kind, state FROM rooms WHERE id = $1`, id).
		Scan(&token, &amount, &participants, &stateKind, &stateRaw)
	if err != nil {
		return coordinator.Room{}, false
	}

	state, err := decodeRoomState(coordinator.RoomStateKind(stateKind), stateRaw)
	if err != nil {
		log.Printf("coordinatordb: decode room state %s: %v", id, err)
		return coordinator.Room{}, false
	}

	room := coordinator.Room{ID: id, Participants: byteaToParticipants(participants), State: state}
	copy(room.Token[:], token)
	copy(room.Amount[:], amount)
	return room, true
}

func (s *PostgresStore) UpdateRoomState(id uuid.UUID, state coordinator.RoomState) {
	ctx := context.Background()
	encoded, err := encodeRoomState(state)
	if err != nil {
		log.Printf("coordinatordb: encode room state: %v", err)
		return
	}
	_, err = s.pool.Exec(ctx, `UPDATE rooms SET state_kind = $1, state = $2, updated_at = NOW() WHERE id = $3`,
		int(state.Kind), encoded, id)
	if err != nil {
		log.Printf("coordinatordb: update room %s: %v", id, err)
	}
}

func (s *PostgresStore) InsertParticipant(p coordinator.Participant) {
	ctx := context.Background()
	state, err := encodeParticipantState(p.State)
	if err != nil {
		log.Printf("coordinatordb: encode participant state: %v", err)
		return
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO participants (utxo_id, room_id, state_kind, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (utxo_id) DO UPDATE
		SET room_id = EXCLUDED.room_id, state_kind = EXCLUDED.state_kind, state = EXCLUDED.state, updated_at = NOW()`,
		p.UTXOID[:], p.RoomID, int(p.State.Kind), state)
	if err != nil {
		log.Printf("coordinatordb: insert participant %x: %v", p.UTXOID, err)
	}
}

func (s *PostgresStore) GetParticipant(id coordinator.UTXOID) (coordinator.Participant, bool) {
	ctx := context.Background()

	var (
		roomID    uuid.UUID
		stateKind int
		stateRaw  []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT room_id, state_kind, state FROM participants WHERE utxo_id = $1`, id[:]).
		Scan(&roomID, &stateKind, &stateRaw)
	if err != nil {
		return coordinator.Participant{}, false
	}

	state, err := decodeParticipantState(coordinator.ParticipantStateKind(stateKind), stateRaw)
	if err != nil {
		log.Printf("coordinatordb: decode participant state %x: %v", id, err)
		return coordinator.Participant{}, false
	}

	return coordinator.Participant{UTXOID: id, RoomID: roomID, State: state}, true
}

func (s *PostgresStore) GetManyParticipants(ids []coordinator.UTXOID) []coordinator.Participant {
	out := make([]coordinator.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.GetParticipant(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *PostgresStore) UpdateParticipantState(id coordinator.UTXOID, state coordinator.ParticipantState) {
	ctx := context.Background()
	encoded, err := encodeParticipantState(state)
	if err != nil {
		log.Printf("coordinatordb: encode participant state: %v", err)
		return
	}
	_, err = s.pool.Exec(ctx, `UPDATE participants SET state_kind = $1, state = $2, updated_at = NOW() WHERE utxo_id = $3`,
		int(state.Kind), encoded, id[:])
	if err != nil {
		log.Printf("coordinatordb: update participant %x: %v", id, err)
	}
}

// ClearRoom deletes the room; ON DELETE CASCADE removes its participants.
func (s *PostgresStore) ClearRoom(roomID uuid.UUID) {
	ctx := context.Background()
	if _, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
		log.Printf("coordinatordb: clear room %s: %v", roomID, err)
	}
}

var _ coordinator.Storage = (*PostgresStore)(nil)
