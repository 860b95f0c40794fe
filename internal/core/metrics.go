package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   Category        `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// DayAmount is the total spent on one date.
type DayAmount struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// SupplierAmount is the total bought from one supplier.
type SupplierAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Metrics summarizes a set of rows. Averages are rounded half away from zero
// to cents.
type Metrics struct {
	Count        int              `json:"count"`
	Total        decimal.Decimal  `json:"total"`
	Average      decimal.Decimal  `json:"average"`
	TopCategory  Category         `json:"top_category,omitempty"`
	DailyAverage decimal.Decimal  `json:"daily_average"`
	BusiestDay   Date             `json:"busiest_day"`
	ByCategory   []CategoryAmount `json:"by_category"`
	ByDay        []DayAmount      `json:"by_day"`
	BySupplier   []SupplierAmount `json:"by_supplier"`
}

const averageScale = 2

// Empty reports whether the metrics describe no rows.
func (m Metrics) Empty() bool {
	return m.Count == 0
}

// Aggregate computes the summary of rows. Ties for the top category and the
// busiest day go to the one encountered first.
func Aggregate(rows []Row) Metrics {
	if len(rows) == 0 {
		return Metrics{}
	}

	total := decimal.Zero
	byCategory := make([]CategoryAmount, 0, 4)
	catIndex := make(map[Category]int)
	days := make([]Date, 0, len(rows))
	dayTotals := make(map[string]decimal.Decimal)
	supplierTotals := make(map[string]decimal.Decimal)

	for _, r := range rows {
		total = total.Add(r.Amount)

		if i, ok := catIndex[r.Category]; ok {
			byCategory[i].Amount = byCategory[i].Amount.Add(r.Amount)
		} else {
			catIndex[r.Category] = len(byCategory)
			byCategory = append(byCategory, CategoryAmount{Name: r.Category, Amount: r.Amount})
		}

		key := r.Date.String()
		if _, ok := dayTotals[key]; !ok {
			days = append(days, r.Date)
		}
		dayTotals[key] = dayTotals[key].Add(r.Amount)

		if r.Supplier != nil {
			if name := strings.TrimSpace(*r.Supplier); name != "" {
				supplierTotals[name] = supplierTotals[name].Add(r.Amount)
			}
		}
	}

	top := byCategory[0]
	for _, ca := range byCategory[1:] {
		if ca.Amount.GreaterThan(top.Amount) {
			top = ca
		}
	}

	busiest := days[0]
	for _, d := range days[1:] {
		if dayTotals[d.String()].GreaterThan(dayTotals[busiest.String()]) {
			busiest = d
		}
	}

	byDay := make([]DayAmount, len(days))
	for i, d := range days {
		byDay[i] = DayAmount{Date: d, Amount: dayTotals[d.String()]}
	}
	sort.SliceStable(byDay, func(i, j int) bool { return byDay[j].Date.After(byDay[i].Date) })

	bySupplier := make([]SupplierAmount, 0, len(supplierTotals))
	for name, amt := range supplierTotals {
		bySupplier = append(bySupplier, SupplierAmount{Name: name, Amount: amt})
	}
	sort.Slice(bySupplier, func(i, j int) bool { return bySupplier[i].Name < bySupplier[j].Name })

	n := decimal.NewFromInt(int64(len(rows)))
	return Metrics{
		Count:        len(rows),
		Total:        total,
		Average:      total.DivRound(n, averageScale),
		TopCategory:  top.Name,
		DailyAverage: total.DivRound(decimal.NewFromInt(int64(len(days))), averageScale),
		BusiestDay:   busiest,
		ByCategory:   byCategory,
		ByDay:        byDay,
		BySupplier:   bySupplier,
	}
}
