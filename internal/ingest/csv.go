package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"restobook/internal/core"
)

var csvLayout = layout{
	product:  "producto",
	quantity: "cantidad",
	price:    "precio_unitario",
	payment:  "metodo_pago",
}

// ParseCSV reads a point-of-sale CSV export with the columns
// producto, cantidad, precio_unitario and metodo_pago.
func ParseCSV(r io.Reader) ([]core.SaleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx, err := csvLayout.index(header)
	if err != nil {
		return nil, err
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	return csvLayout.records(idx, rows, 2)
}
