package storage

import (
	"fmt"
	"strings"

	"restobook/internal/core"
)

// tableColumns is the select list of each table, shaped identically so a
// single scanner reads both.
var tableColumns = map[core.Table]string{
	core.TablePurchases: "id, date, category, product, quantity, unit, amount, supplier, description, created_at",
	core.TableExpenses:  "id, date, category, product, NULL, NULL, amount, supplier, description, created_at",
}

// filterable lists the columns a condition may reference, per table.
var filterable = map[core.Table]map[core.Column]bool{
	core.TablePurchases: {core.ColumnDate: true, core.ColumnCategory: true, core.ColumnProduct: true, core.ColumnDescription: true},
	core.TableExpenses:  {core.ColumnDate: true, core.ColumnCategory: true, core.ColumnProduct: true, core.ColumnDescription: true},
}

func tableName(t core.Table) (string, error) {
	if _, ok := tableColumns[t]; !ok {
		return "", fmt.Errorf("unknown table %q", t)
	}
	return string(t), nil
}

// renderSelect builds a parameterized SELECT for spec. User input only ever
// travels as bind arguments.
func renderSelect(d Dialect, spec core.QuerySpec) (string, []any, error) {
	table, err := tableName(spec.Table)
	if err != nil {
		return "", nil, err
	}
	b := &binder{d: d}
	var where []string
	for _, c := range spec.Conditions {
		clause, err := renderCondition(b, spec.Table, c)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(tableColumns[spec.Table])
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY date DESC, id DESC")
	return sb.String(), b.args, nil
}

func renderCondition(b *binder, t core.Table, c core.Condition) (string, error) {
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("condition %s has no columns", c.Op)
	}
	for _, col := range c.Columns {
		if !filterable[t][col] {
			return "", fmt.Errorf("column %q is not filterable on %s", col, t)
		}
	}

	switch c.Op {
	case core.OpContains:
		pattern := "%" + escapeLike(strings.ToLower(c.Term)) + "%"
		parts := make([]string, 0, len(c.Columns))
		for _, col := range c.Columns {
			parts = append(parts, fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, b.d.Lower(string(col)), b.bind(pattern)))
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case core.OpBetween:
		col := c.Columns[0]
		return fmt.Sprintf("%s >= %s AND %s <= %s", col, b.bind(b.d.DateArg(c.From)), col, b.bind(b.d.DateArg(c.To))), nil
	}
	return "", fmt.Errorf("unsupported operator %q", c.Op)
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// renderInsert builds INSERT ... RETURNING for the given columns.
func renderInsert(d Dialect, table string, cols []column, returning string) (string, []any) {
	b := &binder{d: d}
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		marks[i] = b.bind(c.value)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(marks, ", "))
	if returning != "" {
		q += " RETURNING " + returning
	}
	return q, b.args
}

// renderUpdate builds UPDATE ... WHERE id = ? RETURNING for the given columns.
func renderUpdate(d Dialect, table string, cols []column, id int64, returning string) (string, []any) {
	b := &binder{d: d}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c.name + " = " + b.bind(c.value)
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", table, strings.Join(sets, ", "), b.bind(id))
	if returning != "" {
		q += " RETURNING " + returning
	}
	return q, b.args
}
