package coordinator

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/rawblock/coinshuffle-core/internal/shuffle"
	"github.com/rawblock/coinshuffle-core/pkg/models"
)

// SignatureVerificationError reports that a submitted signature did not
// recover a valid public key over the room's canonical signing message.
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("coordinator: signature verification failed: %v", e.Err)
}

func (e *SignatureVerificationError) Unwrap() error { return e.Err }

// verifyRecoverable checks that signature is a 65-byte recoverable ECDSA
// signature (compact form, trailing recovery id) over the Keccak-256 hash
// of outputs' canonical preimage. It does not bind the recovered key to
// any particular UTXO owner; that binding is a caller concern (Open
// Question 3 leaves key custody outside the coordinator's scope).
func verifyRecoverable(outputs []models.Output, signature []byte) error {
	if len(signature) != 65 {
		return &SignatureVerificationError{Err: fmt.Errorf("signature must be 65 bytes, got %d", len(signature))}
	}

	digest := shuffle.MessageToSign(outputs)

	compact := make([]byte, 65)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])

	if _, _, err := ecdsa.RecoverCompact(compact, digest[:]); err != nil {
		return &SignatureVerificationError{Err: err}
	}
	return nil
}
