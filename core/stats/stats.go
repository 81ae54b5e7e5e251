// Package stats converts raw trial outcomes into significance statistics.
//
// Every function is pure and uses the same normal-CDF approximation, so a
// p-value reported from one call site is always comparable with a p-value
// reported from another.
//
// All tests are one-tailed: the hypothesis under test is "better than
// chance", not "different from chance". A two-tailed test would halve the
// reported significance, so the tail policy is part of the contract.
package stats

import (
	"math"

	"github.com/pkg/errors"
)

var ErrNoSamples = errors.New("stats: at least one z-score is required")

// TrialOutcome is the raw result of a scored reveal.
type TrialOutcome struct {
	ObservedHits      int     `json:"observedHits"`
	TotalTrials       int     `json:"totalTrials"`
	ChanceProbability float64 `json:"chanceProbability"`
}

// TestResult carries the significance of a single trial outcome.
type TestResult struct {
	ZScore     float64 `json:"zScore"`
	PValue     float64 `json:"pValue"`
	EffectSize float64 `json:"effectSize"`
}

// BinomialZTest computes the one-tailed z-test of observedHits successes in
// totalTrials Bernoulli trials with success probability chanceProbability.
//
// Degenerate inputs resolve to defined sentinels rather than NaN: a zero
// standard error (n == 0, p0 == 0 or p0 == 1) yields z = 0, p = 1.
func BinomialZTest(observedHits, totalTrials int, chanceProbability float64) TestResult {
	if totalTrials <= 0 || chanceProbability <= 0 || chanceProbability >= 1 {
		return TestResult{ZScore: 0, PValue: 1}
	}

	n := float64(totalTrials)
	p0 := chanceProbability
	observed := float64(observedHits) / n

	se := math.Sqrt(p0 * (1 - p0) / n)
	if se == 0 {
		return TestResult{ZScore: 0, PValue: 1}
	}

	z := (observed - p0) / se
	es := (observed - p0) / math.Sqrt(p0*(1-p0))
	return TestResult{ZScore: z, PValue: OneTailedP(z), EffectSize: es}
}

// OneTailedP converts a z-score into the one-tailed above-chance p-value:
// 1 - Phi(z) for positive z, 1.0 otherwise.
func OneTailedP(z float64) float64 {
	if z > 0 {
		return 1 - NormalCDF(z)
	}
	return 1.0
}

// Abramowitz & Stegun 26.2.17 coefficients.
const (
	cdfP  = 0.2316419
	cdfB1 = 0.319381530
	cdfB2 = -0.356563782
	cdfB3 = 1.781477937
	cdfB4 = -1.821255978
	cdfB5 = 1.330274429
)

// NormalCDF evaluates the standard normal CDF using the Abramowitz-Stegun
// five-term rational approximation (26.2.17), accurate to about 1e-7. This
// is the only normal CDF used anywhere in the kernel.
func NormalCDF(x float64) float64 {
	if x < 0 {
		return 1 - NormalCDF(-x)
	}
	t := 1 / (1 + cdfP*x)
	poly := t * (cdfB1 + t*(cdfB2+t*(cdfB3+t*(cdfB4+t*cdfB5))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	return 1 - pdf*poly
}

// StoufferCombine aggregates independent z-scores into one combined z-score:
// sum(z) / sqrt(len(z)).
func StoufferCombine(zScores []float64) (float64, error) {
	if len(zScores) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, z := range zScores {
		sum += z
	}
	return sum / math.Sqrt(float64(len(zScores))), nil
}

// CohensD computes the standardized effect size (mean - baseline) / stdDev.
// A zero standard deviation resolves to d = 0.
func CohensD(mean, baseline, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (mean - baseline) / stdDev
}

// EffectSizeLabel classifies a Cohen's d magnitude using the conventional
// bands.
func EffectSizeLabel(d float64) string {
	abs := math.Abs(d)
	switch {
	case abs < 0.2:
		return "negligible"
	case abs < 0.5:
		return "small"
	case abs < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// ChiSquareOneDF computes the one-degree-of-freedom chi-square statistic for
// a binary alignment test: observed successes against expected successes out
// of total trials, summed over both cells. Zero expected counts in either
// cell resolve the statistic to 0.
func ChiSquareOneDF(observed, expected, total float64) float64 {
	expectedMiss := total - expected
	if expected <= 0 || expectedMiss <= 0 {
		return 0
	}
	observedMiss := total - observed
	hit := (observed - expected) * (observed - expected) / expected
	miss := (observedMiss - expectedMiss) * (observedMiss - expectedMiss) / expectedMiss
	return hit + miss
}
