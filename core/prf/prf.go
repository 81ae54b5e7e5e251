package prf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/psiforge/commit-lib/lib/params"
	"github.com/zeebo/blake3"
)

const DigestLengthBytes = params.SecBytes

// Hash is the pseudorandom function used for deriving indices, permutations
// and invite tokens from beacon randomness.
//
// Internally, this is a wrapper around a blake3 hasher, but any hash function
// with an easily extendable output would work as well. Every write is framed
// with a domain string so that two different sequences of inputs can never
// produce the same byte stream.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash whose internal state is initialized with "PSIFORGE-PRF".
func New() *Hash {
	hash := &Hash{h: blake3.New()}
	_, _ = hash.h.WriteString("PSIFORGE-PRF")
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current
// hash state.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("prf.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteBytes writes data to the hash state under the given domain.
func (hash *Hash) WriteBytes(domain string, data []byte) {
	var sizeBuf [8]byte

	// Write out `(<domain_size><domain><data_size><data>)`, so that each
	// domain separated piece of data is distinguished from others.

	_, _ = hash.h.WriteString("(")
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(domain)))
	_, _ = hash.h.Write(sizeBuf[:])
	_, _ = hash.h.WriteString(domain)
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(data)))
	_, _ = hash.h.Write(sizeBuf[:])
	_, _ = hash.h.Write(data)
	_, _ = hash.h.WriteString(")")
}

// WriteString writes s under the given domain.
func (hash *Hash) WriteString(domain, s string) {
	hash.WriteBytes(domain, []byte(s))
}

// WriteUint64 writes v, big-endian, under the given domain.
func (hash *Hash) WriteUint64(domain string, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	hash.WriteBytes(domain, buf[:])
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// Fork clones this hash, and then writes data under the given domain.
// The receiver is left untouched, so many independent streams can be
// derived from one common prefix.
func (hash *Hash) Fork(domain string, data []byte) *Hash {
	newHash := hash.Clone()
	newHash.WriteBytes(domain, data)
	return newHash
}
