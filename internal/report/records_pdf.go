// Package report renders filtered record views as printable documents.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

var decimal100 = decimal.NewFromInt(100)

// maxRows caps the detail table; the summary always covers every row.
const maxRows = 500

var viewTitles = map[core.View]string{
	core.ViewPurchases: "Purchases",
	core.ViewExpenses:  "Expenses",
	core.ViewCombined:  "Purchases and expenses",
}

// BuildRecordsPDF renders the metrics and rows of a query result.
func BuildRecordsPDF(res core.Result, f core.Filters, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Restobook records report", true)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(viewTitles[res.View]))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr("Filters: "+describeFilters(f)))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+generatedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	writeSummary(pdf, tr, res.Metrics)

	if len(res.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 8, "No records match these filters.")
		pdf.Ln(8)
	} else {
		writeRows(pdf, tr, res.Rows)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render records pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(pdf *gofpdf.Fpdf, tr func(string) string, m core.Metrics) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	lines := [][2]string{
		{"Records", fmt.Sprintf("%d", m.Count)},
		{"Total", core.FormatAmount(m.Total)},
		{"Average", core.FormatAmount(m.Average)},
		{"Daily average", core.FormatAmount(m.DailyAverage)},
		{"Top category", string(m.TopCategory)},
		{"Busiest day", m.BusiestDay.String()},
	}
	for _, l := range lines {
		pdf.Cell(45, 6, l[0])
		pdf.Cell(60, 6, tr(l[1]))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	if len(m.ByCategory) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(60, 7, "Category")
	pdf.Cell(40, 7, "Amount")
	pdf.Cell(25, 7, "%")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, c := range m.ByCategory {
		pct := 0.0
		if !m.Total.IsZero() {
			pct, _ = c.Amount.Div(m.Total).Mul(decimal100).Float64()
		}
		pdf.Cell(60, 7, tr(string(c.Name)))
		pdf.Cell(40, 7, core.FormatAmount(c.Amount))
		pdf.Cell(25, 7, fmt.Sprintf("%.1f%%", pct))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(m.BySupplier) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(60, 7, "Supplier")
	pdf.Cell(40, 7, "Amount")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, sa := range m.BySupplier {
		pdf.Cell(60, 7, tr(sa.Name))
		pdf.Cell(40, 7, core.FormatAmount(sa.Amount))
		pdf.Ln(7)
	}
	pdf.Ln(4)
}

var columns = []struct {
	title string
	width float64
}{
	{"Date", 24}, {"Kind", 20}, {"Category", 28}, {"Product", 60},
	{"Qty", 18}, {"Unit", 18}, {"Amount", 26}, {"Supplier", 40}, {"Description", 43},
}

func writeRows(pdf *gofpdf.Fpdf, tr func(string) string, rows []core.Row) {
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	shown := rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for _, r := range shown {
		if pdf.GetY()+6 > pageHeight-bottom-12 {
			pdf.AddPage()
			header()
		}
		qty, unit := "", ""
		if r.Quantity != nil {
			qty = r.Quantity.String()
		}
		if r.Unit != nil {
			unit = string(*r.Unit)
		}
		cells := []string{
			r.Date.String(), string(r.Kind), string(r.Category), r.Product,
			qty, unit, core.FormatAmount(r.Amount), deref(r.Supplier), deref(r.Description),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, tr(truncate(cells[i], int(c.width/1.9))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) > maxRows {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 6, fmt.Sprintf("Showing the first %d of %d records.", maxRows, len(rows)))
	}
}

func describeFilters(f core.Filters) string {
	var parts []string
	if c := strings.TrimSpace(f.Category); c != "" {
		parts = append(parts, "category contains \""+c+"\"")
	}
	if f.DateFrom != nil && f.DateTo != nil {
		parts = append(parts, f.DateFrom.String()+" to "+f.DateTo.String())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, "search \""+s+"\"")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
