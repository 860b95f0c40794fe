package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"restobook/internal/core"
)

var xlsxLayout = layout{
	group:    "Grupo",
	product:  "Nombre",
	quantity: "Cantidad",
	price:    "$ Venta",
}

// headerSearchDepth bounds how many leading title rows are skipped when
// locating the header of a spreadsheet export.
const headerSearchDepth = 10

// ParseXLSX reads the first sheet of a spreadsheet export with the columns
// Grupo, Nombre, Cantidad and "$ Venta" (unit price).
func ParseXLSX(r io.Reader) ([]core.SaleRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	start := findHeader(rows)
	idx, err := xlsxLayout.index(rows[start])
	if err != nil {
		return nil, err
	}
	return xlsxLayout.records(idx, rows[start+1:], start+2)
}

// findHeader returns the first row naming the product column, or 0.
func findHeader(rows [][]string) int {
	want := normalizeHeader(xlsxLayout.product)
	for i := 0; i < len(rows) && i < headerSearchDepth; i++ {
		for _, c := range rows[i] {
			if normalizeHeader(c) == want {
				return i
			}
		}
	}
	return 0
}
