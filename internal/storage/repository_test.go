package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "restobook.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func strPtr(s string) *string { return &s }

func purchase(day int, product, amount string) core.PurchaseRecord {
	return core.PurchaseRecord{
		Entry: core.Entry{
			Date:     core.NewDate(2024, 4, day),
			Category: core.Merchandise,
			Product:  product,
			Amount:   decimal.RequireFromString(amount),
			Supplier: strPtr("Central Market"),
		},
		Quantity: decimal.RequireFromString("1.5"),
		Unit:     core.UnitKg,
	}
}

func expense(day int, cat core.Category, product, amount string, desc *string) core.ExpenseRecord {
	return core.ExpenseRecord{Entry: core.Entry{
		Date:        core.NewDate(2024, 4, day),
		Category:    cat,
		Product:     product,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}}
}

func TestSQLiteInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.InsertRecord(ctx, purchase(2, "Flour", "12.50"))
	if err != nil {
		t.Fatalf("insert purchase: %v", err)
	}
	if p.ID == 0 || p.CreatedAt.IsZero() || p.Kind != core.KindPurchase {
		t.Errorf("inserted purchase = %+v", p)
	}
	if _, err := repo.InsertRecord(ctx, expense(3, core.Services, "Cleaning", "50", strPtr("monthly deep clean"))); err != nil {
		t.Fatalf("insert expense: %v", err)
	}
	if _, err := repo.InsertRecord(ctx, expense(5, core.Payroll, "Salaries", "900", nil)); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	rows, err := repo.QueryRecords(ctx, core.QuerySpec{Table: core.TablePurchases})
	if err != nil {
		t.Fatalf("query purchases: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d purchases, want 1", len(rows))
	}
	got := rows[0]
	if got.Date.String() != "2024-04-02" || got.Product != "Flour" || !got.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("purchase row = %+v", got)
	}
	if got.Quantity == nil || !got.Quantity.Equal(decimal.RequireFromString("1.5")) || got.Unit == nil || *got.Unit != core.UnitKg {
		t.Errorf("purchase quantity/unit = %v/%v", got.Quantity, got.Unit)
	}
	if got.Supplier == nil || *got.Supplier != "Central Market" || got.Description != nil {
		t.Errorf("purchase optionals = %v/%v", got.Supplier, got.Description)
	}

	specs, err := core.BuildQuery(core.ViewExpenses, core.Filters{Search: "DEEP"})
	if err != nil {
		t.Fatal(err)
	}
	rows, err = repo.QueryRecords(ctx, specs[0])
	if err != nil {
		t.Fatalf("query expenses: %v", err)
	}
	if len(rows) != 1 || rows[0].Product != "Cleaning" || rows[0].Quantity != nil || rows[0].Unit != nil {
		t.Errorf("search on description = %+v", rows)
	}

	from, to := core.NewDate(2024, 4, 4), core.NewDate(2024, 4, 30)
	specs, _ = core.BuildQuery(core.ViewExpenses, core.Filters{DateFrom: &from, DateTo: &to, Category: "pay"})
	rows, err = repo.QueryRecords(ctx, specs[0])
	if err != nil {
		t.Fatalf("query by range: %v", err)
	}
	if len(rows) != 1 || rows[0].Category != core.Payroll {
		t.Errorf("range/category rows = %+v", rows)
	}
}

func TestSQLiteQueryOrderAndWildcards(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, r := range []core.Record{
		expense(1, core.Other, "100% juice", "5", nil),
		expense(9, core.Other, "Juice box", "5", nil),
		expense(9, core.Other, "Tips_jar", "5", nil),
	} {
		if _, err := repo.InsertRecord(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	specs, _ := core.BuildQuery(core.ViewExpenses, core.Filters{})
	rows, err := repo.QueryRecords(ctx, specs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0].Product != "Tips_jar" || rows[2].Product != "100% juice" {
		t.Errorf("rows not ordered newest first: %+v", rows)
	}

	for term, want := range map[string]int{"%": 1, "_": 1, "juice": 2, "0% j": 1} {
		specs, _ := core.BuildQuery(core.ViewExpenses, core.Filters{Search: term})
		rows, err := repo.QueryRecords(ctx, specs[0])
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != want {
			t.Errorf("search %q matched %d rows, want %d", term, len(rows), want)
		}
	}
}

func TestSQLiteUpdateDeleteGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	row, err := repo.InsertRecord(ctx, expense(1, core.Equipment, "Blender", "80", nil))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := repo.UpdateRecord(ctx, row.ID, expense(2, core.Equipment, "Blender Pro", "95", strPtr("replacement")))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != row.ID || updated.Product != "Blender Pro" {
		t.Errorf("updated = %+v", updated)
	}

	got, err := repo.GetRecord(ctx, core.TableExpenses, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Date.String() != "2024-04-02" || !got.Amount.Equal(decimal.NewFromInt(95)) || got.Description == nil {
		t.Errorf("got = %+v", got)
	}

	if err := repo.DeleteRecord(ctx, core.TableExpenses, row.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetRecord(ctx, core.TableExpenses, row.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteRecord(ctx, core.TableExpenses, row.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if _, err := repo.UpdateRecord(ctx, 999, expense(2, core.Other, "x", "1", nil)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRegisterSales(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	date := core.NewDate(2024, 4, 10)

	lines := []core.SaleRecord{
		{Date: date, Entity: core.EntityRestaurant, Product: "Lomo", Quantity: 2, UnitPrice: decimal.NewFromInt(18)},
		{Date: date, Entity: core.EntityRestaurant, Group: "Bebidas", Product: "Jugo", Quantity: 3, UnitPrice: decimal.RequireFromString("3.5"), PaymentMethod: strPtr("card")},
	}
	reg := core.SaleRegistration{ID: "0b8f3c1e-6a4e-4c8e-9b57-1f1c2d3e4f50", Date: date, Entity: core.EntityRestaurant,
		Source: "pos.csv", Rows: len(lines), Total: core.SalesTotal(lines)}

	exists, err := repo.SalesRegistered(ctx, date, core.EntityRestaurant)
	if err != nil || exists {
		t.Fatalf("SalesRegistered before = %v, %v", exists, err)
	}

	saved, err := repo.RegisterSales(ctx, reg, lines)
	if err != nil {
		t.Fatalf("RegisterSales: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("created_at not returned")
	}

	exists, err = repo.SalesRegistered(ctx, date, core.EntityRestaurant)
	if err != nil || !exists {
		t.Fatalf("SalesRegistered after = %v, %v", exists, err)
	}
	if other, _ := repo.SalesRegistered(ctx, date, core.EntityDelivery); other {
		t.Error("delivery must be independent of restaurant")
	}

	dup := reg
	dup.ID = "5d2c7a90-1111-4a2b-8c3d-000000000001"
	_, err = repo.RegisterSales(ctx, dup, lines)
	var de *core.DuplicateRegistrationError
	if !errors.As(err, &de) {
		t.Fatalf("second registration error = %v, want DuplicateRegistrationError", err)
	}

	stored, err := repo.ListSales(ctx, reg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[1].Product != "Jugo" || stored[1].PaymentMethod == nil || stored[0].Group != "" {
		t.Errorf("stored lines = %+v", stored)
	}
	if dupLines, _ := repo.ListSales(ctx, dup.ID); len(dupLines) != 0 {
		t.Errorf("duplicate registration wrote %d lines", len(dupLines))
	}
}
