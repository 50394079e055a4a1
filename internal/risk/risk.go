// Package risk maps raw model outputs to bounded risk scores and tiers.
// Both mappings are pure and total; the tier cutpoints are business-policy
// constants carried in configuration, not model outputs.
package risk

import (
	"math"

	"github.com/project-edi/riskd/internal/domain"
)

// Normalizer converts raw model outputs into 0-100 risk scores and
// LOW/MEDIUM/HIGH tiers.
type Normalizer struct {
	FraudHighCut   int
	FraudMediumCut int
	LoanHighCut    int
	LoanMediumCut  int
}

// NewNormalizer builds a normalizer from policy config, falling back to the
// documented defaults for unset cutpoints.
func NewNormalizer(policy domain.PolicyConfig) *Normalizer {
	n := &Normalizer{
		FraudHighCut:   policy.FraudHighCut,
		FraudMediumCut: policy.FraudMediumCut,
		LoanHighCut:    policy.LoanHighCut,
		LoanMediumCut:  policy.LoanMediumCut,
	}
	if n.FraudHighCut <= 0 {
		n.FraudHighCut = 80
	}
	if n.FraudMediumCut <= 0 {
		n.FraudMediumCut = 50
	}
	if n.LoanHighCut <= 0 {
		n.LoanHighCut = 70
	}
	if n.LoanMediumCut <= 0 {
		n.LoanMediumCut = 40
	}
	return n
}

// FromDecision converts an anomaly decision score into a 0-100 risk score.
// The model emits higher scores for more normal rows, so the scale flips:
// the score is clamped to [-0.5, 0.5] and mapped so -0.5 -> 100 and
// 0.5 -> 0. Lower decision always means higher or equal risk.
func FromDecision(decision float64) int {
	clamped := math.Min(0.5, math.Max(-0.5, decision))
	return int(math.Floor((0.5 - clamped) * 100))
}

// FromProbability converts a [0,1] probability into a 0-100 risk score.
func FromProbability(p float64) int {
	clamped := math.Min(1, math.Max(0, p))
	return int(math.Round(clamped * 100))
}

// FraudLevel buckets a fraud risk score.
func (n *Normalizer) FraudLevel(risk int) domain.RiskLevel {
	switch {
	case risk >= n.FraudHighCut:
		return domain.RiskHigh
	case risk >= n.FraudMediumCut:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// LoanLevel buckets a loan risk score.
func (n *Normalizer) LoanLevel(risk int) domain.RiskLevel {
	switch {
	case risk >= n.LoanHighCut:
		return domain.RiskHigh
	case risk >= n.LoanMediumCut:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Status maps a fraud risk score to the external status bucket, using the
// same cutpoints as the fraud risk levels.
func (n *Normalizer) Status(risk int) string {
	switch {
	case risk >= n.FraudHighCut:
		return domain.StatusBlocked
	case risk >= n.FraudMediumCut:
		return domain.StatusUnderReview
	default:
		return domain.StatusCleared
	}
}
