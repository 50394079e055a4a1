package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/project-edi/riskd/internal/domain"
	"github.com/project-edi/riskd/internal/risk"
)

func testNormalizer() *risk.Normalizer {
	return risk.NewNormalizer(domain.PolicyConfig{})
}

func TestFlaggedRecords(t *testing.T) {
	ts := time.Date(2025, 3, 15, 14, 5, 0, 0, time.UTC)

	t.Run("RankedDescendingAndCapped", func(t *testing.T) {
		rows := make([]ScoredRow, 100)
		for i := range rows {
			rows[i] = ScoredRow{
				Index:         i,
				TransactionID: fmt.Sprintf("%d", i),
				Timestamp:     ts,
				Amount:        100,
				Channel:       "POS",
				Risk:          i, // 0..99
			}
		}

		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagTop, 50)
		if len(records) != 50 {
			t.Fatalf("got %d records, want 50", len(records))
		}
		for i := 1; i < len(records); i++ {
			if records[i].RiskScore > records[i-1].RiskScore {
				t.Fatalf("records not sorted descending at %d: %d > %d",
					i, records[i].RiskScore, records[i-1].RiskScore)
			}
		}
		if records[0].RiskScore != 99 {
			t.Errorf("top record risk = %d, want 99", records[0].RiskScore)
		}
	})

	t.Run("StatusConsistentWithCutpoints", func(t *testing.T) {
		rows := []ScoredRow{
			{Index: 0, Risk: 85, Timestamp: ts},
			{Index: 1, Risk: 60, Timestamp: ts},
			{Index: 2, Risk: 10, Timestamp: ts},
		}
		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagTop, 50)

		want := []string{domain.StatusBlocked, domain.StatusUnderReview, domain.StatusCleared}
		for i, rec := range records {
			if rec.Status != want[i] {
				t.Errorf("record %d status = %q, want %q", i, rec.Status, want[i])
			}
		}
	})

	t.Run("AnomaliesPolicyFilters", func(t *testing.T) {
		rows := []ScoredRow{
			{Index: 0, Risk: 90, IsAnomaly: true, Timestamp: ts},
			{Index: 1, Risk: 95, IsAnomaly: false, Timestamp: ts},
			{Index: 2, Risk: 40, IsAnomaly: true, Timestamp: ts},
		}
		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagAnomalies, 50)
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2 anomalies", len(records))
		}
		if records[0].RiskScore != 90 || records[1].RiskScore != 40 {
			t.Errorf("anomalies not ranked: %+v", records)
		}
	})

	t.Run("TopPolicyIgnoresAnomalyFlag", func(t *testing.T) {
		rows := []ScoredRow{
			{Index: 0, Risk: 90, IsAnomaly: false, Timestamp: ts},
			{Index: 1, Risk: 10, IsAnomaly: true, Timestamp: ts},
		}
		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagTop, 50)
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
	})

	t.Run("SyntheticFields", func(t *testing.T) {
		rows := []ScoredRow{
			{Index: 3, TransactionID: "12", Amount: 55.5, Channel: "ONLINE", Risk: 20, Timestamp: ts},
			{Index: 4, TransactionID: "n/a", Risk: 10, Timestamp: ts},
		}
		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagTop, 50)

		if records[0].ID != "TXN0012" {
			t.Errorf("integer id shaped as %q, want TXN0012", records[0].ID)
		}
		if records[1].ID != "TXN0004" {
			t.Errorf("non-integer id should fall back to row index, got %q", records[1].ID)
		}
		if records[0].Customer != "Customer 4" {
			t.Errorf("customer = %q, want Customer 4", records[0].Customer)
		}
		if records[0].Date != "2025-03-15 14:05" {
			t.Errorf("date = %q", records[0].Date)
		}
	})

	t.Run("StableOrderForEqualRisk", func(t *testing.T) {
		rows := []ScoredRow{
			{Index: 0, TransactionID: "1", Risk: 50, Timestamp: ts},
			{Index: 1, TransactionID: "2", Risk: 50, Timestamp: ts},
		}
		records := FlaggedRecords(rows, testNormalizer(), domain.BulkFlagTop, 50)
		if records[0].ID != "TXN0001" || records[1].ID != "TXN0002" {
			t.Errorf("equal-risk rows reordered: %+v", records)
		}
	})
}
