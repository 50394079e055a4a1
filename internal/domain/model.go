package domain

// AnomalyScore is the raw output of the fraud anomaly model for one row.
type AnomalyScore struct {
	// Decision is the unbounded decision-function value.
	// Model convention: higher = more normal, lower = more anomalous.
	Decision float64

	// IsAnomaly is the model's own binary classification. It is
	// independent of any risk score derived from Decision.
	IsAnomaly bool
}

// AnomalyScorer scores fraud feature rows against a trained
// anomaly-detection pipeline. Implementations must be safe for concurrent
// use: the model is read-only after startup.
type AnomalyScorer interface {
	Score(f FraudFeatures) (AnomalyScore, error)
}

// ProbabilityScorer returns a default probability in [0,1] for a loan
// feature row. Implementations must be safe for concurrent use.
type ProbabilityScorer interface {
	Probability(f LoanFeatures) (float64, error)
}
