// Package shuffle implements the participant (node) side of a CoinShuffle
// round: decrypting the outputs posted by earlier participants, onion-
// wrapping the participant's own payout address for every later
// participant, and producing the message the participant ultimately signs.
package shuffle

import (
	"crypto/rsa"
	"fmt"

	"github.com/rawblock/coinshuffle-core/internal/onion"
	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// Session is the starting, passive state of a participant's shuffle. It
// becomes active once the public keys of later participants are attached
// via AddParticipantsKeys.
type Session struct {
	// Amount is the room's fixed per-participant payout amount, big-endian.
	Amount [32]byte
	// Output is the address the participant wants its payout sent to.
	Output models.Address
	// PrivateKey decrypts outputs addressed to this participant.
	PrivateKey *rsa.PrivateKey
}

// NewSession builds a passive shuffle session for one participant.
func NewSession(amount [32]byte, output models.Address, privateKey *rsa.PrivateKey) Session {
	return Session{Amount: amount, Output: output, PrivateKey: privateKey}
}

// AddParticipantsKeys attaches the RSA public keys of every later
// participant (see coordinator.distributeKeys for the ordering contract)
// and returns the active session.
func (s Session) AddParticipantsKeys(publicKeys []*rsa.PublicKey) SessionWithKeys {
	return SessionWithKeys{Session: s, PublicKeys: publicKeys}
}

// SessionWithKeys is the active state of a participant's shuffle.
type SessionWithKeys struct {
	Session    Session
	PublicKeys []*rsa.PublicKey
}

// ShuffleRoundError distinguishes a decryption failure (someone else's
// layer was malformed or addressed to the wrong key) from an encryption
// failure (this participant's own onion-wrap step).
type ShuffleRoundError struct {
	Op  string
	Err error
}

func (e *ShuffleRoundError) Error() string {
	return fmt.Sprintf("shuffle: %s failed: %v", e.Op, e.Err)
}

func (e *ShuffleRoundError) Unwrap() error { return e.Err }

// ShuffleRound decrypts every entry of encryptedOutputs one layer (with
// this participant's private key), onion-wraps this participant's own
// output address for every later participant in PublicKeys, and appends
// the freshly wrapped output to the decrypted list. The nonce used for
// the first onion layer is drawn fresh; every subsequent layer replays
// the first nonce that layer drew, so a single random draw seeds the
// rest of the wrap chain.
func (s *SessionWithKeys) ShuffleRound(encryptedOutputs [][]byte) ([][]byte, error) {
	decrypted := make([][]byte, 0, len(encryptedOutputs)+1)
	for _, ct := range encryptedOutputs {
		pt, err := onion.DecryptChunks(ct, s.Session.PrivateKey)
		if err != nil {
			return nil, &ShuffleRoundError{Op: "decrypt", Err: err}
		}
		decrypted = append(decrypted, pt)
	}

	wrapped := append([]byte(nil), s.Session.Output[:]...)
	var nonce []byte
	for _, pubKey := range s.PublicKeys {
		ciphertext, nextNonce, err := onion.EncryptChunks(wrapped, pubKey, nonce)
		if err != nil {
			return nil, &ShuffleRoundError{Op: "encrypt", Err: err}
		}
		wrapped = ciphertext
		nonce = nextNonce
	}

	return append(decrypted, wrapped), nil
}

// MessageToSignFor returns the canonical message this session's
// participant signs once the coordinator reports the finalized output
// list, binding every output to the room's shared amount.
func (s *SessionWithKeys) MessageToSignFor(outputAddresses []models.Address) [32]byte {
	outputs := make([]models.Output, len(outputAddresses))
	for i, addr := range outputAddresses {
		outputs[i] = models.Output{Amount: s.Session.Amount, Owner: addr}
	}
	return MessageToSign(outputs)
}
