package table

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Fingerprint substrings that identify a transactions sheet once its
// headers are normalized. "tranctiontype" is a known upstream misspelling
// that must keep matching.
var sheetFingerprints = []string{
	"transactionid",
	"tranctiontype",
}

// LoadTransactionsTable opens the workbook at path and returns the
// transactions sheet as a RawTable. The workbook is read fresh on every
// call; nothing is cached between requests.
func LoadTransactionsTable(path string) (*RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	return SelectTransactionsSheet(f)
}

// SelectTransactionsSheet scans sheets in workbook order and returns the
// first whose normalized headers match a transactions fingerprint. If no
// sheet matches, the last sheet is selected with a warning: absence of a
// positive match lowers confidence but does not block scoring.
func SelectTransactionsSheet(f *excelize.File) (*RawTable, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if headersMatchFingerprint(rows[0]) {
			return New(sheet, rows)
		}
	}

	last := sheets[len(sheets)-1]
	slog.Warn("no sheet matched a transactions fingerprint, falling back to last sheet",
		"sheet", last,
		"fingerprints", sheetFingerprints,
	)

	rows, err := f.GetRows(last)
	if err != nil {
		return nil, fmt.Errorf("read fallback sheet %q: %w", last, err)
	}
	return New(last, rows)
}

func headersMatchFingerprint(headers []string) bool {
	for _, h := range headers {
		key := NormalizeHeader(h)
		for _, fp := range sheetFingerprints {
			if strings.Contains(key, fp) {
				return true
			}
		}
	}
	return false
}
