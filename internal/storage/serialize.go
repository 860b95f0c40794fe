package storage

import (
	"fmt"

	"restobook/internal/core"
)

// column is one named value of a write statement.
type column struct {
	name  string
	value any
}

// serializeRecord returns the destination table and the exact columns
// written for a record. Expense payloads never carry quantity or unit.
func serializeRecord(d Dialect, rec core.Record) (core.Table, []column, error) {
	switch r := rec.(type) {
	case core.PurchaseRecord:
		return core.TablePurchases, purchaseColumns(d, r), nil
	case core.ExpenseRecord:
		return core.TableExpenses, expenseColumns(d, r), nil
	}
	return "", nil, fmt.Errorf("unsupported record type %T", rec)
}

func purchaseColumns(d Dialect, r core.PurchaseRecord) []column {
	return []column{
		{"date", d.DateArg(r.Date)},
		{"category", string(r.Category)},
		{"product", r.Product},
		{"quantity", r.Quantity.String()},
		{"unit", string(r.Unit)},
		{"amount", r.Amount.String()},
		{"supplier", nullable(r.Supplier)},
		{"description", nullable(r.Description)},
	}
}

func expenseColumns(d Dialect, r core.ExpenseRecord) []column {
	return []column{
		{"date", d.DateArg(r.Date)},
		{"category", string(r.Category)},
		{"product", r.Product},
		{"amount", r.Amount.String()},
		{"supplier", nullable(r.Supplier)},
		{"description", nullable(r.Description)},
	}
}

func saleColumns(d Dialect, registrationID string, s core.SaleRecord) []column {
	return []column{
		{"registration_id", registrationID},
		{"date", d.DateArg(s.Date)},
		{"entity", string(s.Entity)},
		{"product_group", s.Group},
		{"product", s.Product},
		{"quantity", s.Quantity},
		{"unit_price", s.UnitPrice.String()},
		{"total", s.Total().String()},
		{"payment_method", nullable(s.PaymentMethod)},
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
