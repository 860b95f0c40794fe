package core

import (
	"strings"
)

// Category is the closed set of record categories.
type Category string

const (
	Merchandise Category = "Merchandise"
	Services    Category = "Services"
	Equipment   Category = "Equipment"
	Payroll     Category = "Payroll"
	Other       Category = "Other"
)

// Table names the destination collection of a record.
type Table string

const (
	TablePurchases Table = "purchases"
	TableExpenses  Table = "expenses"
)

// Field names a record attribute that may be required.
type Field string

const (
	FieldDate     Field = "date"
	FieldCategory Field = "category"
	FieldProduct  Field = "product"
	FieldQuantity Field = "quantity"
	FieldUnit     Field = "unit"
	FieldAmount   Field = "amount"
)

var categories = []Category{Merchandise, Services, Equipment, Payroll, Other}

// Spanish labels are accepted alongside the English names.
var categoryAliases = map[string]Category{
	"merchandise": Merchandise,
	"mercancía":   Merchandise,
	"mercancia":   Merchandise,
	"services":    Services,
	"servicios":   Services,
	"equipment":   Equipment,
	"equipos":     Equipment,
	"payroll":     Payroll,
	"nómina":      Payroll,
	"nomina":      Payroll,
	"other":       Other,
	"otros":       Other,
}

// Categories lists every known category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves a user supplied label to a Category.
func ParseCategory(label string) (Category, error) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", &UnknownCategoryError{Label: label}
	}
	return c, nil
}

// Classification is the routing decision for a category.
type Classification struct {
	Category Category
	Table    Table
	Required []Field
}

// Requires reports whether f is part of the required field set.
func (c Classification) Requires(f Field) bool {
	for _, r := range c.Required {
		if r == f {
			return true
		}
	}
	return false
}

// Classify maps a category label to its table and required fields.
func Classify(label string) (Classification, error) {
	c, err := ParseCategory(label)
	if err != nil {
		return Classification{}, err
	}
	if c == Merchandise {
		return Classification{
			Category: c,
			Table:    TablePurchases,
			Required: []Field{FieldDate, FieldProduct, FieldQuantity, FieldUnit, FieldAmount},
		}, nil
	}
	return Classification{
		Category: c,
		Table:    TableExpenses,
		Required: []Field{FieldDate, FieldCategory, FieldProduct, FieldAmount},
	}, nil
}
