// Package selector derives indices, unique index sets and permutations from
// beacon randomness. All derivations are pure: the same randomness and label
// always produce the same output, on every platform, so any third party can
// recompute an experiment target from the published beacon round and label.
//
// The caller is responsible for fixing the label before the beacon round is
// known; nothing here can detect a label chosen after the fact.
package selector

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/core/prf"
)

var (
	ErrZeroRange         = errors.New("selector: range must be positive")
	ErrCountExceedsRange = errors.New("selector: count exceeds range")
	ErrNegativeSize      = errors.New("selector: size must be positive")
)

// DeriveIndex returns an integer in [0, rng) derived from randomness and
// label. The first 8 bytes of the PRF digest are read big-endian and reduced
// modulo rng.
//
// The modulo reduction is biased for ranges that do not divide 2^64. For any
// practical range (well under 2^32) the bias is cryptographically negligible;
// this is an assumption of the scheme, not a proven property.
func DeriveIndex(randomness []byte, label string, rng uint64) (uint64, error) {
	if rng == 0 {
		return 0, ErrZeroRange
	}
	h := prf.New()
	h.WriteBytes("randomness", randomness)
	h.WriteString("label", label)
	sum := h.Sum()
	return binary.BigEndian.Uint64(sum[:8]) % rng, nil
}

// DeriveUniqueIndices returns count distinct integers in [0, rng), in order
// of discovery. Candidate i is DeriveIndex(randomness, label+"#"+i, rng);
// candidates that were already chosen are skipped and the counter keeps
// advancing, so the output sequence is fully determined by the inputs.
func DeriveUniqueIndices(randomness []byte, label string, count, rng uint64) ([]uint64, error) {
	if rng == 0 {
		return nil, ErrZeroRange
	}
	if count > rng {
		return nil, errors.WithMessagef(ErrCountExceedsRange, "%d > %d", count, rng)
	}

	chosen := make(map[uint64]struct{}, count)
	out := make([]uint64, 0, count)
	for counter := uint64(0); uint64(len(out)) < count; counter++ {
		v, err := DeriveIndex(randomness, label+"#"+strconv.FormatUint(counter, 10), rng)
		if err != nil {
			return nil, err
		}
		if _, dup := chosen[v]; dup {
			continue
		}
		chosen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// DerivePermutation returns a permutation of 0..n-1 via a Fisher-Yates
// shuffle walked from the end of the array toward the front: at step i the
// element at position n-1-i is swapped with the element at position
// DeriveIndex(randomness, label+"#"+i, n-i). The convention is pinned by the
// tests; changing it silently breaks third-party replay.
func DerivePermutation(n int, randomness []byte, label string) ([]int, error) {
	if n < 1 {
		return nil, ErrNegativeSize
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < n-1; i++ {
		j, err := DeriveIndex(randomness, label+"#"+strconv.Itoa(i), uint64(n-i))
		if err != nil {
			return nil, err
		}
		k := n - 1 - i
		perm[k], perm[j] = perm[j], perm[k]
	}
	return perm, nil
}
