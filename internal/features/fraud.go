// Package features rebuilds the exact feature schemas the trained pipelines
// expect, from either a resolved spreadsheet table (fraud) or a request
// payload (loan). Reconstruction is deterministic: one input row, one
// feature row, never mutated after construction.
package features

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/project-edi/riskd/internal/domain"
	"github.com/project-edi/riskd/internal/table"
)

// Logical field names required for fraud bulk scoring.
const (
	FieldTransactionID   = "transaction_id"
	FieldTimestamp       = "timestamp"
	FieldAmount          = "amount"
	FieldTransactionType = "transaction_type"
	FieldMerchantCountry = "merchant_country"
	FieldPaymentMode     = "payment_mode"
)

// FraudFields enumerates the required logical fields and their acceptable
// header spellings in priority order. "Tranction" variants are a known
// upstream misspelling, tracked as separate candidates on purpose.
var FraudFields = []table.LogicalField{
	{
		Name:        FieldTransactionID,
		Description: "unique transaction identifier",
		Candidates:  []string{"Transaction Id", "Transaction_Id", "TransactionID", "Txn_Id", "Txn Id", "Id"},
	},
	{
		Name:        FieldTimestamp,
		Description: "transaction timestamp",
		Candidates:  []string{"Time_Stamp", "Time Stamp", "Timestamp", "Transaction_Date", "Date"},
	},
	{
		Name:        FieldAmount,
		Description: "transaction amount",
		Candidates:  []string{"Amount", "Transaction_Amount", "Amt"},
	},
	{
		Name:        FieldTransactionType,
		Description: "transaction channel/type",
		Candidates:  []string{"Transaction_Type", "Transaction Type", "Tranction_Type", "Tranction Type", "Type"},
	},
	{
		Name:        FieldMerchantCountry,
		Description: "merchant country",
		Candidates:  []string{"Merchant_Country", "Merchant Country", "Country"},
	},
	{
		Name:        FieldPaymentMode,
		Description: "payment mode code (1=Cash, 2=Clearing, 3=Transfer)",
		Candidates:  []string{"Payment_Mode", "Payment Mode", "Mode"},
	},
}

// ResolveFraudSchema resolves all required fraud fields against the table.
func ResolveFraudSchema(t *table.RawTable) (table.ResolvedSchema, error) {
	return table.ResolveSchema(t, FraudFields)
}

// timestampLayouts are tried in order when parsing timestamp cells.
// Workbook cells arrive formatted per their cell style, so both ISO and
// common spreadsheet renderings are accepted.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/06 15:04",
	"01-02-06 15:04",
}

// ParseTimestamp parses one timestamp cell. The second return is false for
// unparseable values (the not-a-time sentinel).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// RepairTimestamps parses a timestamp column and repairs sentinel entries by
// forward-filling from the preceding valid value. Leading sentinels borrow
// the first subsequently-valid timestamp. The repair is lossy by design:
// dirty timestamp data must not abort scoring. If no value in the column is
// parseable, every row keeps the zero time and a warning is logged.
func RepairTimestamps(values []string) ([]time.Time, int) {
	times := make([]time.Time, len(values))
	valid := make([]bool, len(values))

	firstValid := -1
	for i, v := range values {
		ts, ok := ParseTimestamp(v)
		times[i] = ts
		valid[i] = ok
		if ok && firstValid == -1 {
			firstValid = i
		}
	}

	if firstValid == -1 {
		if len(values) > 0 {
			slog.Warn("no parseable timestamps in column, rows keep zero time", "rows", len(values))
		}
		return times, len(values)
	}

	repaired := 0
	last := times[firstValid]
	for i := range times {
		if valid[i] {
			last = times[i]
			continue
		}
		if i < firstValid {
			times[i] = times[firstValid]
		} else {
			times[i] = last
		}
		repaired++
	}
	return times, repaired
}

// dayOfWeek maps Go's Sunday-first weekday to the training convention:
// 0 = Monday .. 6 = Sunday.
func dayOfWeek(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

// FraudFeaturesAt assembles the single-request feature row.
func FraudFeaturesAt(amount float64, txType, country string, paymentMode int, ts time.Time) domain.FraudFeatures {
	return domain.FraudFeatures{
		Amount:          amount,
		TransactionType: txType,
		MerchantCountry: country,
		PaymentMode:     paymentMode,
		Hour:            ts.Hour(),
		DayOfWeek:       dayOfWeek(ts),
	}
}

// FraudRow is one reconstructed table row: the feature vector plus the
// source fields the response shaper needs.
type FraudRow struct {
	Index         int
	TransactionID string
	Timestamp     time.Time
	Features      domain.FraudFeatures
}

// BuildFraudFeatures reconstructs one FraudRow per table row using the
// resolved schema. Timestamps are repaired; numeric fields that cannot be
// coerced are a hard failure, because the trained pipeline's preprocessing
// is schema-sensitive and silent coercion would corrupt the score.
func BuildFraudFeatures(t *table.RawTable, schema table.ResolvedSchema) ([]FraudRow, error) {
	times, repaired := RepairTimestamps(t.Column(schema[FieldTimestamp]))
	if repaired > 0 {
		slog.Debug("repaired timestamp cells by forward-fill", "sheet", t.Sheet, "repaired", repaired)
	}

	rows := make([]FraudRow, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		amountCell := strings.TrimSpace(t.Cell(i, schema[FieldAmount]))
		amount, err := cast.ToFloat64E(amountCell)
		if err != nil {
			return nil, fmt.Errorf("row %d: amount %q in column %q is not numeric: %w",
				i, amountCell, schema[FieldAmount], err)
		}

		modeCell := strings.TrimSpace(t.Cell(i, schema[FieldPaymentMode]))
		mode, err := cast.ToIntE(modeCell)
		if err != nil {
			return nil, fmt.Errorf("row %d: payment mode %q in column %q is not an integer code: %w",
				i, modeCell, schema[FieldPaymentMode], err)
		}

		rows = append(rows, FraudRow{
			Index:         i,
			TransactionID: strings.TrimSpace(t.Cell(i, schema[FieldTransactionID])),
			Timestamp:     times[i],
			Features: domain.FraudFeatures{
				Amount:          amount,
				TransactionType: strings.TrimSpace(t.Cell(i, schema[FieldTransactionType])),
				MerchantCountry: strings.TrimSpace(t.Cell(i, schema[FieldMerchantCountry])),
				PaymentMode:     mode,
				Hour:            times[i].Hour(),
				DayOfWeek:       dayOfWeek(times[i]),
			},
		})
	}
	return rows, nil
}
