package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Draft is an unvalidated record as submitted by a form.
type Draft struct {
	Date        Date
	Category    string
	Product     string
	Quantity    decimal.Decimal
	Unit        Unit
	Amount      decimal.Decimal
	Supplier    string
	Description string
}

// Entry holds the attributes shared by purchases and expenses.
type Entry struct {
	Date        Date
	Category    Category
	Product     string
	Amount      decimal.Decimal
	Supplier    *string
	Description *string
}

// Record is a validated, table-bound record ready to be written.
// The only implementations are PurchaseRecord and ExpenseRecord.
type Record interface {
	Table() Table
	Common() Entry
	isRecord()
}

// PurchaseRecord is a merchandise purchase.
type PurchaseRecord struct {
	Entry
	Quantity decimal.Decimal
	Unit     Unit
}

func (PurchaseRecord) Table() Table    { return TablePurchases }
func (r PurchaseRecord) Common() Entry { return r.Entry }
func (PurchaseRecord) isRecord()       {}

// ExpenseRecord is any non-merchandise outlay. It has no quantity or unit.
type ExpenseRecord struct {
	Entry
}

func (ExpenseRecord) Table() Table    { return TableExpenses }
func (r ExpenseRecord) Common() Entry { return r.Entry }
func (ExpenseRecord) isRecord()       {}

// Kind tags a row with its origin in combined views.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindExpense  Kind = "expense"
)

// KindOf returns the row tag for a table.
func KindOf(t Table) Kind {
	if t == TablePurchases {
		return KindPurchase
	}
	return KindExpense
}

// Row is a persisted record as read back from a store.
type Row struct {
	ID          int64            `json:"id"`
	Kind        Kind             `json:"kind"`
	Date        Date             `json:"date"`
	Category    Category         `json:"category"`
	Product     string           `json:"product"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Unit        *Unit            `json:"unit"`
	Amount      decimal.Decimal  `json:"amount"`
	Supplier    *string          `json:"supplier"`
	Description *string          `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Table returns the table the row was read from.
func (r Row) Table() Table {
	if r.Kind == KindPurchase {
		return TablePurchases
	}
	return TableExpenses
}

// NewRow materializes a record as a stored row.
func NewRow(rec Record, id int64, createdAt time.Time) Row {
	e := rec.Common()
	row := Row{
		ID:          id,
		Kind:        KindOf(rec.Table()),
		Date:        e.Date,
		Category:    e.Category,
		Product:     e.Product,
		Amount:      e.Amount,
		Supplier:    e.Supplier,
		Description: e.Description,
		CreatedAt:   createdAt,
	}
	if p, ok := rec.(PurchaseRecord); ok {
		q, u := p.Quantity, p.Unit
		row.Quantity = &q
		row.Unit = &u
	}
	return row
}
