package coordinator

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func TestDistributeKeysOrdering(t *testing.T) {
	ids := []UTXOID{{1}, {2}, {3}, {4}}
	pubKeys := make(map[UTXOID]*rsa.PublicKey, len(ids))
	for _, id := range ids {
		key, err := rsa.GenerateKey(rand.Reader, 512)
		if err != nil {
			t.Fatalf("rsa.GenerateKey: %v", err)
		}
		pubKeys[id] = &key.PublicKey
	}

	keys, err := distributeKeys(ids, pubKeys)
	if err != nil {
		t.Fatalf("distributeKeys: %v", err)
	}

	tests := []struct {
		position int
		wantLen  int
	}{
		{0, 3},
		{1, 2},
		{2, 1},
		{3, 0},
	}

	for _, tt := range tests {
		got := keys[ids[tt.position]]
		if len(got) != tt.wantLen {
			t.Errorf("position %d: got %d keys, want %d", tt.position, len(got), tt.wantLen)
		}
		for i, key := range got {
			wantID := ids[len(ids)-1-i]
			if key != pubKeys[wantID] {
				t.Errorf("position %d key %d: got key for a different participant than expected", tt.position, i)
			}
		}
	}
}

func TestDistributeKeysMissingKey(t *testing.T) {
	ids := []UTXOID{{1}, {2}}
	_, err := distributeKeys(ids, map[UTXOID]*rsa.PublicKey{})
	if _, ok := err.(*ParticipantNotFoundError); !ok {
		t.Fatalf("expected ParticipantNotFoundError, got %v (%T)", err, err)
	}
}
