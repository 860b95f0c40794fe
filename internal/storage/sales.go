package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"restobook/internal/core"
)

func (r *SQLRepository) SalesRegistered(ctx context.Context, date core.Date, entity core.Entity) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM sale_registrations WHERE date = %s AND entity = %s",
		r.dialect.Placeholder(1), r.dialect.Placeholder(2))
	var n int
	if err := r.db.QueryRowContext(ctx, query, r.dialect.DateArg(date), string(entity)).Scan(&n); err != nil {
		return false, &core.StoreError{Op: "select", Table: "sale_registrations", Err: err}
	}
	return n > 0, nil
}

// RegisterSales inserts the registration header and every line in one
// transaction. The UNIQUE(date, entity) constraint decides concurrent races.
func (r *SQLRepository) RegisterSales(ctx context.Context, reg core.SaleRegistration, rows []core.SaleRecord) (core.SaleRegistration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.SaleRegistration{}, &core.StoreError{Op: "begin", Table: "sales", Err: err}
	}
	defer tx.Rollback()

	header := []column{
		{"id", reg.ID},
		{"date", r.dialect.DateArg(reg.Date)},
		{"entity", string(reg.Entity)},
		{"source", reg.Source},
		{"row_count", reg.Rows},
		{"total", reg.Total.String()},
	}
	query, args := renderInsert(r.dialect, "sale_registrations", header, "created_at")
	var createdAt timeValue
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&createdAt); err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return core.SaleRegistration{}, &core.DuplicateRegistrationError{Date: reg.Date, Entity: reg.Entity}
		}
		return core.SaleRegistration{}, &core.StoreError{Op: "insert", Table: "sale_registrations", Err: err}
	}

	if len(rows) > 0 {
		lineQuery, _ := renderInsert(r.dialect, "sales", saleColumns(r.dialect, reg.ID, rows[0]), "")
		stmt, err := tx.PrepareContext(ctx, lineQuery)
		if err != nil {
			return core.SaleRegistration{}, &core.StoreError{Op: "prepare", Table: "sales", Err: err}
		}
		defer stmt.Close()

		for i, s := range rows {
			cols := saleColumns(r.dialect, reg.ID, s)
			lineArgs := make([]any, len(cols))
			for j, c := range cols {
				lineArgs[j] = c.value
			}
			if _, err := stmt.ExecContext(ctx, lineArgs...); err != nil {
				return core.SaleRegistration{}, &core.StoreError{Op: "insert", Table: "sales", Err: fmt.Errorf("line %d: %w", i+1, err)}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return core.SaleRegistration{}, &core.DuplicateRegistrationError{Date: reg.Date, Entity: reg.Entity}
		}
		return core.SaleRegistration{}, &core.StoreError{Op: "commit", Table: "sales", Err: err}
	}

	slog.InfoContext(ctx, "Sales registered",
		"component", "storage",
		"registration_id", reg.ID,
		"date", reg.Date.String(),
		"entity", reg.Entity,
		"rows", len(rows))

	reg.CreatedAt = createdAt.Time
	return reg, nil
}

// ListSales returns the stored lines of a registration, in insertion order.
func (r *SQLRepository) ListSales(ctx context.Context, registrationID string) ([]core.SaleRecord, error) {
	query := "SELECT date, entity, product_group, product, quantity, unit_price, payment_method FROM sales WHERE registration_id = " +
		r.dialect.Placeholder(1) + " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, &core.StoreError{Op: "select", Table: "sales", Err: err}
	}
	defer rows.Close()

	var out []core.SaleRecord
	for rows.Next() {
		var (
			s       core.SaleRecord
			date    dateValue
			entity  string
			payment sql.NullString
		)
		if err := rows.Scan(&date, &entity, &s.Group, &s.Product, &s.Quantity, &s.UnitPrice, &payment); err != nil {
			return nil, &core.StoreError{Op: "select", Table: "sales", Err: err}
		}
		s.Date = date.Date
		s.Entity = core.Entity(entity)
		s.PaymentMethod = stringPtr(payment)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: "select", Table: "sales", Err: err}
	}
	return out, nil
}
