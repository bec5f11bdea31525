package onion

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0x42}},
		{"one chunk", bytes.Repeat([]byte{0xAB}, PTChunk)},
		{"multiple chunks", bytes.Repeat([]byte{0xCD}, PTChunk*3+17)},
		{"exact address", bytes.Repeat([]byte{0x01}, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := generateKey(t)
			cipher, _, err := EncryptChunks(tt.msg, &key.PublicKey, nil)
			if err != nil {
				t.Fatalf("EncryptChunks failed: %v", err)
			}

			wantLen := ((len(tt.msg) + PTChunk - 1) / PTChunk) * CTChunk
			if len(tt.msg) == 0 {
				wantLen = 0
			}
			if len(cipher) != wantLen {
				t.Errorf("ciphertext length = %d, want %d", len(cipher), wantLen)
			}

			plain, err := DecryptChunks(cipher, key)
			if err != nil {
				t.Fatalf("DecryptChunks failed: %v", err)
			}
			if !bytes.Equal(plain, tt.msg) {
				t.Errorf("round trip mismatch: got %x, want %x", plain, tt.msg)
			}
		})
	}
}

func TestEncryptChunksDeterministicWithSeed(t *testing.T) {
	key := generateKey(t)
	msg := bytes.Repeat([]byte{0x99}, PTChunk+5)
	seed := bytes.Repeat([]byte{0x01}, 32)

	cipher1, nonce1, err := EncryptChunks(msg, &key.PublicKey, seed)
	if err != nil {
		t.Fatalf("first encrypt failed: %v", err)
	}
	if !bytes.Equal(nonce1, seed) {
		t.Errorf("nonceOut = %x, want seed %x", nonce1, seed)
	}

	cipher2, nonce2, err := EncryptChunks(msg, &key.PublicKey, seed)
	if err != nil {
		t.Fatalf("second encrypt failed: %v", err)
	}

	if !bytes.Equal(cipher1, cipher2) {
		t.Errorf("ciphertext not reproducible with identical seed")
	}
	if !bytes.Equal(nonce1, nonce2) {
		t.Errorf("nonce not reproducible with identical seed")
	}
}

func TestEncryptChunksFreshRandomnessWithoutSeed(t *testing.T) {
	key := generateKey(t)
	msg := []byte("hello world")

	cipher1, nonce1, err := EncryptChunks(msg, &key.PublicKey, nil)
	if err != nil {
		t.Fatalf("first encrypt failed: %v", err)
	}
	cipher2, nonce2, err := EncryptChunks(msg, &key.PublicKey, nil)
	if err != nil {
		t.Fatalf("second encrypt failed: %v", err)
	}

	if bytes.Equal(cipher1, cipher2) {
		t.Errorf("ciphertext should differ across unseeded calls")
	}
	if bytes.Equal(nonce1, nonce2) {
		t.Errorf("nonce should differ across unseeded calls")
	}
}

func TestDecryptChunksInvalidSize(t *testing.T) {
	key := generateKey(t)
	_, err := DecryptChunks(make([]byte, CTChunk-1), key)
	if err == nil {
		t.Fatal("expected InvalidChunkSizeError, got nil")
	}
	var sizeErr *InvalidChunkSizeError
	if !errors.As(err, &sizeErr) {
		t.Errorf("expected *InvalidChunkSizeError, got %T", err)
	}
}
