// Package digest computes and verifies commitment digests.
//
// A commitment digest is SHA256(canonical(payload) || nonce), hex encoded in
// lower case. The canonical form is documented on Canonical; it is the part
// of the scheme that must never drift, since anyone holding the payload and
// the nonce must be able to recompute the exact digest independently.
package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum computes the commitment digest for payload under nonce.
func Sum(payload interface{}, nonce []byte) (string, error) {
	canonical, err := Canonical(payload)
	if err != nil {
		return "", err
	}
	return SumCanonical(canonical, nonce), nil
}

// SumCanonical computes the digest over already-canonicalized bytes.
// Callers that store the canonical form (verified mode stores a locator
// string) can skip re-canonicalization.
func SumCanonical(canonical, nonce []byte) string {
	h := sha256.New()
	h.Write(canonical)
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether digestHex is the commitment digest of payload under
// nonce. The comparison is constant time.
func Verify(digestHex string, payload interface{}, nonce []byte) (bool, error) {
	computed, err := Sum(payload, nonce)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digestHex)) == 1, nil
}
