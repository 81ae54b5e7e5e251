package beacon

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/psiforge/commit-lib/lib/params"
)

// fallbackRound generates a local round from the OS CSPRNG, expanded through
// HKDF so the raw entropy never leaves this function. The round number is
// zero: fallback rounds have no position in any external beacon chain.
func fallbackRound() (*Round, error) {
	seed := make([]byte, params.SecBytes)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return nil, errors.WithMessage(err, "beacon: read local entropy")
	}

	expand := hkdf.New(sha256.New, seed, nil, []byte("commit-lib beacon local fallback"))
	randomness := make([]byte, params.SecBytes)
	if _, err := io.ReadFull(expand, randomness); err != nil {
		return nil, errors.WithMessage(err, "beacon: expand local entropy")
	}

	return &Round{
		Number:     0,
		Randomness: randomness,
		Source:     SourceLocalFallback,
		FetchedAt:  time.Now(),
	}, nil
}
