package ledger

import (
	"github.com/pkg/errors"

	"github.com/psiforge/commit-lib/pkg/common/commitstore"
)

var (
	// ErrInvalidInput rejects malformed requests before any state mutation.
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrHashMismatch means the recomputed digest disagrees with the stored
	// commitment hash: either a wrong nonce or corrupted data. It is never
	// downgraded to a low score.
	ErrHashMismatch = errors.New("ledger: commitment hash mismatch")

	// ErrIncompleteParticipants gates multi-party reveals until every
	// participant has committed.
	ErrIncompleteParticipants = errors.New("ledger: not all participants have committed")

	// ErrNotFound and ErrAlreadyRevealed are the store sentinels, re-exported
	// so callers only need this package for the full taxonomy.
	ErrNotFound        = commitstore.ErrNotFound
	ErrAlreadyRevealed = commitstore.ErrAlreadyRevealed
)
