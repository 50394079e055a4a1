// Package table provides tolerant access to externally-authored
// spreadsheet data: header canonicalization, candidate-based column
// resolution and transactions-sheet detection. Header names, sheet ordering
// and cell formatting of the source workbook are not controlled by this
// service, so nothing here assumes a clean schema.
package table

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeHeader canonicalizes an arbitrary column label into a comparable
// key: lowercase alphanumeric characters only, all whitespace and
// punctuation removed. Pure and total; "  Transaction Type " and
// "transaction_type" normalize to the same key.
func NormalizeHeader(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// RawTable is one sheet's worth of uncontrolled tabular data: an ordered
// header row plus string-valued cells. Cell values keep whatever formatting
// the workbook produced; coercion happens downstream.
type RawTable struct {
	Sheet   string
	Columns []string

	rows    [][]string
	byIndex map[string]int // actual column name -> column index
}

// New builds a RawTable from sheet rows, treating the first row as headers.
func New(sheet string, rows [][]string) (*RawTable, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	headers := make([]string, len(rows[0]))
	byIndex := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = h
		byIndex[h] = i
	}

	return &RawTable{
		Sheet:   sheet,
		Columns: headers,
		rows:    rows[1:],
		byIndex: byIndex,
	}, nil
}

// NumRows returns the number of data rows (excluding the header).
func (t *RawTable) NumRows() int {
	return len(t.rows)
}

// Cell returns the value at (row, actual column name). Ragged rows are
// common in hand-edited workbooks; missing cells read as empty strings.
func (t *RawTable) Cell(row int, column string) string {
	idx, ok := t.byIndex[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return ""
	}
	r := t.rows[row]
	if idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Column returns all values of one actual column, one entry per data row.
func (t *RawTable) Column(column string) []string {
	out := make([]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.Cell(i, column)
	}
	return out
}

// LogicalField is an abstract required input, independent of its literal
// spelling in any given source table. Candidates are acceptable header
// spellings in priority order; deliberate upstream misspellings (such as
// "Tranction Type") are tracked as their own candidates.
type LogicalField struct {
	Name        string
	Description string
	Candidates  []string
}

// ResolveColumn maps a logical field to the actual column name in this
// table. Resolution is first-match over the normalized candidate list, not
// best-match: candidate order encodes priority, and ties are broken by
// declaration order, never by string similarity.
//
// On failure the error carries the field description, the full candidate
// list and the full actual-column list. This diagnostic is the only
// debugging aid an operator has when reconciling a malformed spreadsheet,
// so it is never abbreviated.
func (t *RawTable) ResolveColumn(field LogicalField) (string, error) {
	normalized := make(map[string]string, len(t.Columns))
	for _, col := range t.Columns {
		key := NormalizeHeader(col)
		if _, exists := normalized[key]; !exists {
			normalized[key] = col
		}
	}

	for _, candidate := range field.Candidates {
		if actual, ok := normalized[NormalizeHeader(candidate)]; ok {
			return actual, nil
		}
	}

	return "", fmt.Errorf(
		"cannot resolve %s (%s): tried candidates %q, sheet %q has columns %q",
		field.Name, field.Description, field.Candidates, t.Sheet, t.Columns,
	)
}

// ResolvedSchema maps logical field names to actual column names within one
// specific table. Built once per request; immutable thereafter.
type ResolvedSchema map[string]string

// ResolveSchema resolves every logical field against the table. The schema
// must be total: the first unresolvable field fails the whole request.
func ResolveSchema(t *RawTable, fields []LogicalField) (ResolvedSchema, error) {
	schema := make(ResolvedSchema, len(fields))
	for _, field := range fields {
		actual, err := t.ResolveColumn(field)
		if err != nil {
			return nil, err
		}
		schema[field.Name] = actual
	}
	return schema, nil
}
