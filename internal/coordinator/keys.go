package coordinator

import "crypto/rsa"

// distributeKeys computes, for every participant, the ordered vector of
// public keys it needs to onion-wrap its own output: the keys of every
// strictly-later participant, listed in reverse position order. The last
// participant receives an empty vector.
//
//	keys[i] = [ pubKey(n-1), pubKey(n-2), ..., pubKey(i+1) ]
//
// Participant i applies those keys in the listed order when it onion-wraps
// its output, so the outermost layer is encrypted to i+1; once i+1 peels
// that one layer off, the next-outermost layer is encrypted to i+2; and so
// on until the last participant sees cleartext.
func distributeKeys(participants []UTXOID, pubKeys map[UTXOID]*rsa.PublicKey) (map[UTXOID][]*rsa.PublicKey, error) {
	n := len(participants)
	keys := make(map[UTXOID][]*rsa.PublicKey, n)

	for position, id := range participants {
		vec := make([]*rsa.PublicKey, 0, n-position-1)
		for j := n - 1; j > position; j-- {
			laterID := participants[j]
			key, ok := pubKeys[laterID]
			if !ok {
				return nil, &ParticipantNotFoundError{UTXOID: laterID}
			}
			vec = append(vec, key)
		}
		keys[id] = vec
	}

	return keys, nil
}
