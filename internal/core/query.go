package core

import (
	"strings"
)

// View selects which tables a read covers.
type View string

const (
	ViewPurchases View = "purchases"
	ViewExpenses  View = "expenses"
	ViewCombined  View = "combined"
)

// ParseView resolves a view name; blank means combined.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewCombined:
		return ViewCombined, nil
	case ViewPurchases:
		return ViewPurchases, nil
	case ViewExpenses:
		return ViewExpenses, nil
	}
	return "", &FilterError{Field: "view", Reason: "must be purchases, expenses or combined"}
}

// Filters are the optional read criteria.
type Filters struct {
	Category string
	DateFrom *Date
	DateTo   *Date
	Search   string
}

// Key is a stable representation used for result caching.
func (f Filters) Key() string {
	var from, to string
	if f.DateFrom != nil {
		from = f.DateFrom.String()
	}
	if f.DateTo != nil {
		to = f.DateTo.String()
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(f.Category)),
		from,
		to,
		strings.ToLower(strings.TrimSpace(f.Search)),
	}, "|")
}

// Column names a filterable attribute.
type Column string

const (
	ColumnDate        Column = "date"
	ColumnCategory    Column = "category"
	ColumnProduct     Column = "product"
	ColumnDescription Column = "description"
)

// Operator is the kind of condition applied to a column set.
type Operator string

const (
	// OpContains matches when any of the columns contains Term, ignoring case.
	OpContains Operator = "contains"
	// OpBetween matches when the date column lies in [From, To].
	OpBetween Operator = "between"
)

// Condition is one predicate of a query. Conditions of a spec are ANDed.
type Condition struct {
	Op      Operator
	Columns []Column
	Term    string
	From    Date
	To      Date
}

// QuerySpec is a store-agnostic read of a single table.
type QuerySpec struct {
	Table      Table
	Conditions []Condition
}

// BuildQuery turns a view and filters into one spec per table read.
// Filter errors are detected here, before any store is contacted.
func BuildQuery(v View, f Filters) ([]QuerySpec, error) {
	if (f.DateFrom == nil) != (f.DateTo == nil) {
		field := "date_to"
		if f.DateFrom == nil {
			field = "date_from"
		}
		return nil, &FilterError{Field: field, Reason: "date_from and date_to must be given together"}
	}
	if f.DateFrom != nil && f.DateFrom.After(*f.DateTo) {
		return nil, &FilterError{Field: "date_from", Reason: "must not be after date_to"}
	}

	switch v {
	case ViewPurchases:
		return []QuerySpec{buildSpec(TablePurchases, f)}, nil
	case ViewExpenses:
		return []QuerySpec{buildSpec(TableExpenses, f)}, nil
	case ViewCombined:
		return []QuerySpec{buildSpec(TablePurchases, f), buildSpec(TableExpenses, f)}, nil
	}
	return nil, &FilterError{Field: "view", Reason: "must be purchases, expenses or combined"}
}

func buildSpec(t Table, f Filters) QuerySpec {
	spec := QuerySpec{Table: t}
	if c := strings.TrimSpace(f.Category); c != "" {
		// An exact label, English or Spanish, filters by its stored name.
		if known, err := ParseCategory(c); err == nil {
			c = string(known)
		}
		spec.Conditions = append(spec.Conditions, Condition{
			Op:      OpContains,
			Columns: []Column{ColumnCategory},
			Term:    c,
		})
	}
	if f.DateFrom != nil {
		spec.Conditions = append(spec.Conditions, Condition{
			Op:      OpBetween,
			Columns: []Column{ColumnDate},
			From:    *f.DateFrom,
			To:      *f.DateTo,
		})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		cols := []Column{ColumnProduct}
		if t == TableExpenses {
			cols = append(cols, ColumnDescription)
		}
		spec.Conditions = append(spec.Conditions, Condition{
			Op:      OpContains,
			Columns: cols,
			Term:    s,
		})
	}
	return spec
}

// MergeCombined concatenates purchase rows then expense rows into the
// common combined shape.
func MergeCombined(purchases, expenses []Row) []Row {
	out := make([]Row, 0, len(purchases)+len(expenses))
	for _, r := range purchases {
		r.Kind = KindPurchase
		r.Description = nil
		out = append(out, r)
	}
	for _, r := range expenses {
		r.Kind = KindExpense
		r.Quantity = nil
		r.Unit = nil
		out = append(out, r)
	}
	return out
}

// Result is a read outcome: rows plus their summary.
type Result struct {
	View    View    `json:"view"`
	Rows    []Row   `json:"rows"`
	Metrics Metrics `json:"metrics"`
}
