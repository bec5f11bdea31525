package shuffle

import (
	"testing"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

func TestMessageToSignDeterministic(t *testing.T) {
	outputs := []models.Output{
		{Amount: amountFromUint64(100), Owner: models.Address{0x01}},
		{Amount: amountFromUint64(100), Owner: models.Address{0x02}},
	}

	got1 := MessageToSign(outputs)
	got2 := MessageToSign(outputs)
	if got1 != got2 {
		t.Fatalf("MessageToSign is not deterministic: %x != %x", got1, got2)
	}
}

func TestMessageToSignSensitiveToOrder(t *testing.T) {
	a := models.Output{Amount: amountFromUint64(100), Owner: models.Address{0x01}}
	b := models.Output{Amount: amountFromUint64(100), Owner: models.Address{0x02}}

	first := MessageToSign([]models.Output{a, b})
	second := MessageToSign([]models.Output{b, a})
	if first == second {
		t.Fatalf("MessageToSign must depend on output order")
	}
}

func TestMessageToSignSensitiveToAmount(t *testing.T) {
	owner := models.Address{0x01}
	low := MessageToSign([]models.Output{{Amount: amountFromUint64(100), Owner: owner}})
	high := MessageToSign([]models.Output{{Amount: amountFromUint64(200), Owner: owner}})
	if low == high {
		t.Fatalf("MessageToSign must depend on amount")
	}
}

func TestMessageToSignEmpty(t *testing.T) {
	got := MessageToSign(nil)
	var zero [32]byte
	if got == zero {
		t.Fatalf("Keccak-256 of empty input must not be the zero hash")
	}
}
