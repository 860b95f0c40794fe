// Package ingest reads tabular sales reports into sale records.
//
// A report is accepted or rejected as a whole: a missing column or a single
// malformed line rejects the batch so no partial import can happen.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

// Format is the file type of an uploaded report.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrNoRows            = errors.New("report has no data rows")
	ErrUnsupportedFormat = errors.New("unsupported report format, expected .csv or .xlsx")
)

// ColumnsError lists required columns absent from the header.
type ColumnsError struct {
	Missing []string
}

func (e *ColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError points at the first malformed data line (1-based, header included).
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// DetectFormat picks a format from the file name.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse reads a report in the given format.
func Parse(format Format, r io.Reader) ([]core.SaleRecord, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	}
	return nil, ErrUnsupportedFormat
}

// layout maps record attributes to header names. Empty names are not read.
type layout struct {
	group    string
	product  string
	quantity string
	price    string
	payment  string
}

func (l layout) required() []string {
	var out []string
	for _, c := range []string{l.group, l.product, l.quantity, l.price, l.payment} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// index resolves column positions, failing with every missing column.
func (l layout) index(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	idx := make(map[string]int)
	var missing []string
	for _, c := range l.required() {
		i, ok := pos[normalizeHeader(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, &ColumnsError{Missing: missing}
	}
	return idx, nil
}

// records converts data lines; firstLine is the line number of rows[0].
func (l layout) records(idx map[string]int, rows [][]string, firstLine int) ([]core.SaleRecord, error) {
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]core.SaleRecord, 0, len(rows))
	batch := decimal.Zero
	for n, row := range rows {
		if blank(row) {
			continue
		}
		line := firstLine + n

		product := cell(row, l.product)
		if product == "" {
			return nil, &RowError{Line: line, Err: errors.New("product is empty")}
		}
		qty, err := parseQuantity(cell(row, l.quantity))
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("quantity: %w", err)}
		}
		price, err := parseAmount(cell(row, l.price))
		if err == nil {
			err = checkPrice(price)
		}
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("price: %w", err)}
		}

		rec := core.SaleRecord{
			Product:   product,
			Quantity:  qty,
			UnitPrice: price,
		}
		if l.group != "" {
			rec.Group = cell(row, l.group)
		}
		if l.payment != "" {
			if pm := cell(row, l.payment); pm != "" {
				rec.PaymentMethod = &pm
			}
		}
		batch = batch.Add(rec.Total())
		if !batch.LessThan(maxTotal) {
			return nil, &RowError{Line: line, Err: fmt.Errorf("report total exceeds %s", maxTotal)}
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Limits of the sales columns: quantity INTEGER, unit_price NUMERIC(12,2)
// and totals NUMERIC(14,2).
var (
	maxQuantity = decimal.NewFromInt(math.MaxInt32)
	maxPrice    = decimal.New(1, 10)
	maxTotal    = decimal.New(1, 12)
)

func parseQuantity(s string) (int64, error) {
	d, err := core.ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if d.GreaterThan(maxQuantity) {
		return 0, fmt.Errorf("%q exceeds %s", s, maxQuantity)
	}
	return d.IntPart(), nil
}

// checkPrice keeps prices within a NUMERIC(12,2) column.
func checkPrice(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(2)) {
		return fmt.Errorf("%s has more than 2 decimal places", d)
	}
	if !d.LessThan(maxPrice) {
		return fmt.Errorf("%s exceeds the largest accepted price", d)
	}
	return nil
}

// parseAmount accepts report prices such as "1234.5", "$1,234.50" or "12,5".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	}
	return core.ParseDecimal(s)
}
