package domain

// RiskLevel is the three-tier bucket derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Status buckets for flagged transactions, derived from the same cutpoints
// as the fraud risk levels.
const (
	StatusBlocked     = "Blocked"
	StatusUnderReview = "Under Review"
	StatusCleared     = "Cleared"
)

// FlaggedRecord is the stable external shape for one bulk-scored
// transaction. The id and customer fields are synthetic labels derived from
// the source row, not real identities.
type FlaggedRecord struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"` // "YYYY-MM-DD HH:MM"
	Customer  string  `json:"customer"`
	Amount    float64 `json:"amount"`
	Channel   string  `json:"channel"`
	RiskScore int     `json:"riskScore"`
	Status    string  `json:"status"`
}
