package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

// dateValue scans DATE columns (time.Time) and ISO text columns alike.
type dateValue struct {
	core.Date
}

func (v *dateValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.Date = core.NewDate(s.Year(), s.Month(), s.Day())
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	case nil:
		v.Date = core.Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into date", src)
}

func (v *dateValue) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", s, err)
	}
	v.Date = d
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// timeValue scans TIMESTAMP columns and SQLite's text timestamps.
type timeValue struct {
	time.Time
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.Time = s.UTC()
		return nil
	case string:
		return v.parse(s)
	case []byte:
		return v.parse(string(s))
	case nil:
		v.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp %q: unsupported layout", s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRow reads the shared select list of tableColumns.
func scanRow(s rowScanner, table core.Table) (core.Row, error) {
	var (
		row         core.Row
		date        dateValue
		category    string
		quantity    decimal.NullDecimal
		unit        sql.NullString
		supplier    sql.NullString
		description sql.NullString
		createdAt   timeValue
	)
	if err := s.Scan(&row.ID, &date, &category, &row.Product, &quantity, &unit,
		&row.Amount, &supplier, &description, &createdAt); err != nil {
		return core.Row{}, err
	}
	row.Kind = core.KindOf(table)
	row.Date = date.Date
	row.Category = core.Category(category)
	row.CreatedAt = createdAt.Time
	if quantity.Valid {
		q := quantity.Decimal
		row.Quantity = &q
	}
	if unit.Valid {
		u := core.Unit(unit.String)
		row.Unit = &u
	}
	row.Supplier = stringPtr(supplier)
	row.Description = stringPtr(description)
	return row, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
