package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxProductLen  = 100
	maxSupplierLen = 100

	// Scales match the NUMERIC(12,2) and NUMERIC(12,3) columns.
	amountScale   = 2
	quantityScale = 3
)

var (
	maxAmount   = decimal.New(1, 10)
	maxQuantity = decimal.New(1, 9)
)

// Validate checks a draft against its classification and returns the
// cleaned record. Every rule is evaluated; failures are reported together.
func Validate(d Draft, c Classification) (Record, error) {
	var msgs []string

	product := strings.TrimSpace(d.Product)
	supplier := strings.TrimSpace(d.Supplier)

	if c.Requires(FieldDate) && d.Date.IsEmpty() {
		msgs = append(msgs, "- Date is required")
	}
	if product == "" {
		msgs = append(msgs, "- Product is required")
	} else if utf8.RuneCountInString(product) > maxProductLen {
		msgs = append(msgs, fmt.Sprintf("- Product must be at most %d characters", maxProductLen))
	}
	if !d.Amount.IsPositive() {
		msgs = append(msgs, "- Amount must be greater than 0")
	} else {
		msgs = append(msgs, checkNumber("Amount", d.Amount, amountScale, maxAmount)...)
	}
	if c.Table == TablePurchases {
		if !d.Quantity.IsPositive() {
			msgs = append(msgs, "- Quantity must be greater than 0 for Merchandise")
		} else {
			msgs = append(msgs, checkNumber("Quantity", d.Quantity, quantityScale, maxQuantity)...)
		}
		if !d.Unit.Valid() {
			msgs = append(msgs, "- Select a valid unit for Merchandise")
		}
	}
	if utf8.RuneCountInString(supplier) > maxSupplierLen {
		msgs = append(msgs, fmt.Sprintf("- Supplier must be at most %d characters", maxSupplierLen))
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	entry := Entry{
		Date:        d.Date,
		Category:    c.Category,
		Product:     product,
		Amount:      d.Amount,
		Supplier:    optional(supplier),
		Description: optional(d.Description),
	}
	if c.Table == TablePurchases {
		return PurchaseRecord{Entry: entry, Quantity: d.Quantity, Unit: d.Unit}, nil
	}
	return ExpenseRecord{Entry: entry}, nil
}

// checkNumber enforces the decimal places and the exclusive upper bound a
// stored value can hold, so what is written reads back unchanged.
func checkNumber(label string, v decimal.Decimal, scale int32, limit decimal.Decimal) []string {
	var msgs []string
	if !v.Equal(v.Truncate(scale)) {
		msgs = append(msgs, fmt.Sprintf("- %s must have at most %d decimal places", label, scale))
	}
	if !v.LessThan(limit) {
		msgs = append(msgs, fmt.Sprintf("- %s must be less than %s", label, limit.String()))
	}
	return msgs
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
