// Package report shapes scored rows into the stable frontend contract:
// ranked, capped, with synthetic identifiers and status buckets.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/project-edi/riskd/internal/domain"
	"github.com/project-edi/riskd/internal/risk"
)

// dateLayout is the frontend's date contract.
const dateLayout = "2006-01-02 15:04"

// ScoredRow is one bulk-scored transaction before shaping.
type ScoredRow struct {
	Index         int
	TransactionID string
	Timestamp     time.Time
	Amount        float64
	Channel       string
	Risk          int
	IsAnomaly     bool
}

// FlaggedRecords ranks scored rows by risk descending, applies the bulk
// flag policy, caps the result at topN and shapes each row into the
// external record.
func FlaggedRecords(rows []ScoredRow, n *risk.Normalizer, policy domain.BulkFlagPolicy, topN int) []domain.FlaggedRecord {
	selected := make([]ScoredRow, 0, len(rows))
	for _, r := range rows {
		if policy == domain.BulkFlagAnomalies && !r.IsAnomaly {
			continue
		}
		selected = append(selected, r)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Risk > selected[j].Risk
	})

	if topN > 0 && len(selected) > topN {
		selected = selected[:topN]
	}

	records := make([]domain.FlaggedRecord, 0, len(selected))
	for _, r := range selected {
		records = append(records, domain.FlaggedRecord{
			ID:        syntheticID(r.TransactionID, r.Index),
			Date:      r.Timestamp.Format(dateLayout),
			Customer:  syntheticCustomer(r.Index),
			Amount:    r.Amount,
			Channel:   r.Channel,
			RiskScore: r.Risk,
			Status:    n.Status(r.Risk),
		})
	}
	return records
}

// syntheticID derives the external id from the source transaction id when
// it parses as an integer, else from the row index. Recovered locally,
// never surfaced as an error.
func syntheticID(txID string, index int) string {
	if id, err := strconv.Atoi(txID); err == nil {
		return fmt.Sprintf("TXN%04d", id)
	}
	return fmt.Sprintf("TXN%04d", index)
}

// syntheticCustomer is a placeholder label for the UI, not a real customer
// identity.
func syntheticCustomer(index int) string {
	return fmt.Sprintf("Customer %d", index%50+1)
}
