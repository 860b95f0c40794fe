package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Entity is the sales channel a bulk registration belongs to.
type Entity string

const (
	EntityRestaurant Entity = "restaurant"
	EntityDelivery   Entity = "delivery"
)

var ErrInvalidEntity = errors.New("entity must be restaurant or delivery")

// ParseEntity accepts the English names and the Spanish "restaurante".
func ParseEntity(s string) (Entity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "restaurant", "restaurante":
		return EntityRestaurant, nil
	case "delivery":
		return EntityDelivery, nil
	}
	return "", ErrInvalidEntity
}

// SaleRecord is one line of an imported sales report.
type SaleRecord struct {
	Date          Date            `json:"date"`
	Entity        Entity          `json:"entity"`
	Group         string          `json:"group"`
	Product       string          `json:"product"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PaymentMethod *string         `json:"payment_method"`
}

// Total is quantity times unit price.
func (s SaleRecord) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(s.Quantity))
}

// SaleRegistration is the header of one bulk import, unique per date and entity.
type SaleRegistration struct {
	ID        string          `json:"id"`
	Date      Date            `json:"date"`
	Entity    Entity          `json:"entity"`
	Source    string          `json:"source"`
	Rows      int             `json:"rows"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// SalesTotal sums the totals of all lines.
func SalesTotal(rows []SaleRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Total())
	}
	return total
}
