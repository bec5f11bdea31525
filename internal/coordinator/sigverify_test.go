package coordinator

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/rawblock/coinshuffle-core/internal/shuffle"
	"github.com/rawblock/coinshuffle-core/pkg/models"
)

func TestVerifyRecoverableAcceptsValidSignature(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("btcec.NewPrivateKey: %v", err)
	}

	outputs := []models.Output{
		{Amount: [32]byte{0x01}, Owner: models.Address{0xAA}},
		{Amount: [32]byte{0x01}, Owner: models.Address{0xBB}},
	}
	digest := shuffle.MessageToSign(outputs)

	compact := ecdsa.SignCompact(priv, digest[:], false)
	signature := make([]byte, 65)
	copy(signature[:64], compact[1:])
	signature[64] = compact[0] - 27

	if err := verifyRecoverable(outputs, signature); err != nil {
		t.Fatalf("verifyRecoverable rejected a valid signature: %v", err)
	}
}

func TestVerifyRecoverableRejectsWrongLength(t *testing.T) {
	outputs := []models.Output{{Amount: [32]byte{0x01}, Owner: models.Address{0xAA}}}
	err := verifyRecoverable(outputs, []byte{0x01, 0x02, 0x03})
	if _, ok := err.(*SignatureVerificationError); !ok {
		t.Fatalf("expected SignatureVerificationError, got %v (%T)", err, err)
	}
}

func TestVerifyRecoverableRejectsGarbage(t *testing.T) {
	outputs := []models.Output{{Amount: [32]byte{0x01}, Owner: models.Address{0xAA}}}
	garbage := make([]byte, 65)
	for i := range garbage {
		garbage[i] = byte(i)
	}
	if err := verifyRecoverable(outputs, garbage); err == nil {
		t.Fatalf("expected an error recovering from a garbage signature")
	}
}
