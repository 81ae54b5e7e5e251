// Package scorer turns a free-text guess and a target into a similarity
// score in [0,1]. The primary scorer is an opaque external model that may be
// slow or unavailable; scoring must always complete, so a pure lexical
// fallback backs it up.
package scorer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	MethodSemantic    = "semantic"
	MethodWordOverlap = "word-overlap"
)

// Scorer scores candidate against target. Implementations may block on
// network I/O and must honor ctx.
type Scorer interface {
	Score(ctx context.Context, candidate, target string) (float64, error)
}

// Result is a score plus the method that produced it, so downstream records
// can distinguish a semantic similarity from a lexical one.
type Result struct {
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

// WordOverlap computes a lexical similarity: the number of shared
// case-folded words divided by the larger word count. Empty inputs score 0.
func WordOverlap(candidate, target string) float64 {
	candidateWords := wordSet(candidate)
	targetWords := wordSet(target)
	if len(candidateWords) == 0 || len(targetWords) == 0 {
		return 0
	}

	shared := 0
	for w := range candidateWords {
		if _, ok := targetWords[w]; ok {
			shared++
		}
	}

	larger := len(candidateWords)
	if len(targetWords) > larger {
		larger = len(targetWords)
	}
	return float64(shared) / float64(larger)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = struct{}{}
	}
	return out
}

// Chain tries the primary scorer under a bounded timeout and degrades to
// WordOverlap when the primary fails, times out, or was never configured.
// Chain.Score never returns an error: a degraded score tagged with its
// method is always available.
type Chain struct {
	primary Scorer
	timeout time.Duration
	log     zerolog.Logger
}

func NewChain(primary Scorer, timeout time.Duration, log zerolog.Logger) *Chain {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Chain{primary: primary, timeout: timeout, log: log}
}

func (c *Chain) Score(ctx context.Context, candidate, target string) Result {
	if c.primary != nil {
		scoreCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		score, err := c.primary.Score(scoreCtx, candidate, target)
		if err == nil {
			return Result{Score: score, Method: MethodSemantic}
		}
		c.log.Warn().Err(err).Msg("semantic scorer unavailable, falling back to word overlap")
	}
	return Result{Score: WordOverlap(candidate, target), Method: MethodWordOverlap}
}
