package shuffle

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/rawblock/coinshuffle-core/pkg/models"
)

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	return key
}

// TestShuffleRoundFullChain drives a three-participant shuffle end to end:
// each participant decrypts the layer addressed to it and wraps its own
// output for every later participant, matching the key vectors that
// coordinator.distributeKeys would hand out.
func TestShuffleRoundFullChain(t *testing.T) {
	priv0, priv1, priv2 := genKey(t), genKey(t), genKey(t)
	addr0 := models.Address{0xAA}
	addr1 := models.Address{0xBB}
	addr2 := models.Address{0xCC}
	amount := [32]byte{0x01}

	s0 := NewSession(amount, addr0, priv0).AddParticipantsKeys([]*rsa.PublicKey{&priv2.PublicKey, &priv1.PublicKey})
	s1 := NewSession(amount, addr1, priv1).AddParticipantsKeys([]*rsa.PublicKey{&priv2.PublicKey})
	s2 := NewSession(amount, addr2, priv2).AddParticipantsKeys(nil)

	round0, err := s0.ShuffleRound(nil)
	if err != nil {
		t.Fatalf("position 0 round: %v", err)
	}
	if len(round0) != 1 {
		t.Fatalf("position 0 must emit exactly 1 output, got %d", len(round0))
	}

	round1, err := s1.ShuffleRound(round0)
	if err != nil {
		t.Fatalf("position 1 round: %v", err)
	}
	if len(round1) != 2 {
		t.Fatalf("position 1 must emit exactly 2 outputs, got %d", len(round1))
	}

	round2, err := s2.ShuffleRound(round1)
	if err != nil {
		t.Fatalf("position 2 round: %v", err)
	}
	if len(round2) != 3 {
		t.Fatalf("position 2 must emit exactly 3 outputs, got %d", len(round2))
	}

	got := map[models.Address]bool{}
	for _, raw := range round2 {
		var a models.Address
		copy(a[:], raw)
		got[a] = true
	}
	for _, want := range []models.Address{addr0, addr1, addr2} {
		if !got[want] {
			t.Fatalf("final outputs missing address %x: %v", want, round2)
		}
	}
}

func TestShuffleRoundWrongKeyFailsToDecrypt(t *testing.T) {
	priv0 := genKey(t)
	wrongPriv := genKey(t)
	addr0 := models.Address{0xAA}

	s0 := NewSession([32]byte{}, addr0, priv0).AddParticipantsKeys(nil)
	round0, err := s0.ShuffleRound(nil)
	if err != nil {
		t.Fatalf("round0: %v", err)
	}

	wrongSession := NewSession([32]byte{}, models.Address{0xFF}, wrongPriv).AddParticipantsKeys(nil)
	if _, err := wrongSession.ShuffleRound(round0); err == nil {
		t.Fatalf("expected decryption failure with mismatched private key")
	}
}

func TestMessageToSignForMatchesMessageToSign(t *testing.T) {
	priv := genKey(t)
	amount := [32]byte{0x02}
	s := NewSession(amount, models.Address{0x01}, priv).AddParticipantsKeys(nil)

	addrs := []models.Address{{0x01}, {0x02}}
	got := s.MessageToSignFor(addrs)

	want := MessageToSign([]models.Output{
		{Amount: amount, Owner: addrs[0]},
		{Amount: amount, Owner: addrs[1]},
	})

	if !bytes.Equal(got[:], want[:]) {
		t.Fatalf("MessageToSignFor diverges from MessageToSign")
	}
}
