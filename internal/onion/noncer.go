package onion

import "io"

// noncer is a randomness shim that makes chunked RSA-OAEP encryption
// replayable. When seeded with a non-empty nonce it returns that nonce
// verbatim on every Read, forcing identical OAEP salts across retries so a
// caller can reproduce byte-identical ciphertext. When unseeded, it draws
// fresh bytes from the wrapped source and remembers the first draw.
//
// Never reuse a seeded noncer across different plaintexts under the same
// key in production: replaying an OAEP salt leaks the XOR of the two
// plaintexts' padded forms. It exists for tests and retry-idempotency paths
// only.
type noncer struct {
	rng    io.Reader
	nonce  []byte
	seeded bool
}

func newNoncer(rng io.Reader, seed []byte) *noncer {
	return &noncer{rng: rng, nonce: seed, seeded: len(seed) > 0}
}

func (n *noncer) Read(dest []byte) (int, error) {
	if n.seeded {
		copy(dest, n.nonce)
		return len(dest), nil
	}

	read, err := io.ReadFull(n.rng, dest)
	if err != nil {
		return read, err
	}
	if n.nonce == nil {
		n.nonce = append([]byte(nil), dest...)
	}
	return read, nil
}
