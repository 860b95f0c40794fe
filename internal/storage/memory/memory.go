// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"restobook/internal/core"
)

type registrationKey struct {
	date   string
	entity core.Entity
}

type Store struct {
	mu            sync.Mutex
	nextID        map[core.Table]int64
	rows          map[core.Table][]core.Row
	registrations map[registrationKey]core.SaleRegistration
	sales         map[string][]core.SaleRecord
	now           func() time.Time
}

func New() *Store {
	return &Store{
		nextID:        map[core.Table]int64{core.TablePurchases: 0, core.TableExpenses: 0},
		rows:          make(map[core.Table][]core.Row),
		registrations: make(map[registrationKey]core.SaleRegistration),
		sales:         make(map[string][]core.SaleRecord),
		now:           time.Now,
	}
}

func checkTable(t core.Table) error {
	if t != core.TablePurchases && t != core.TableExpenses {
		return fmt.Errorf("unknown table %q", t)
	}
	return nil
}

func (s *Store) InsertRecord(ctx context.Context, rec core.Record) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return core.Row{}, &core.StoreError{Op: "insert", Table: string(rec.Table()), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := rec.Table()
	s.nextID[t]++
	row := core.NewRow(rec, s.nextID[t], s.now().UTC())
	s.rows[t] = append(s.rows[t], row)
	return row, nil
}

func (s *Store) UpdateRecord(ctx context.Context, id int64, rec core.Record) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return core.Row{}, &core.StoreError{Op: "update", Table: string(rec.Table()), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := rec.Table()
	for i, r := range s.rows[t] {
		if r.ID == id {
			row := core.NewRow(rec, id, r.CreatedAt)
			s.rows[t][i] = row
			return row, nil
		}
	}
	return core.Row{}, core.ErrNotFound
}

func (s *Store) DeleteRecord(ctx context.Context, table core.Table, id int64) error {
	if err := checkTable(table); err != nil {
		return &core.StoreError{Op: "delete", Table: string(table), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &core.StoreError{Op: "delete", Table: string(table), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[table]
	for i, r := range rows {
		if r.ID == id {
			s.rows[table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) GetRecord(ctx context.Context, table core.Table, id int64) (core.Row, error) {
	if err := checkTable(table); err != nil {
		return core.Row{}, &core.StoreError{Op: "get", Table: string(table), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows[table] {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Row{}, core.ErrNotFound
}

// QueryRecords evaluates spec in memory, newest date first.
func (s *Store) QueryRecords(ctx context.Context, spec core.QuerySpec) ([]core.Row, error) {
	if err := checkTable(spec.Table); err != nil {
		return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Row
	for _, r := range s.rows[spec.Table] {
		if matches(r, spec.Conditions) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Date.String(), out[j].Date.String()
		if di != dj {
			return di > dj
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matches(r core.Row, conds []core.Condition) bool {
	for _, c := range conds {
		switch c.Op {
		case core.OpContains:
			term := strings.ToLower(c.Term)
			hit := false
			for _, col := range c.Columns {
				if strings.Contains(strings.ToLower(columnValue(r, col)), term) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case core.OpBetween:
			d := r.Date.String()
			if d < c.From.String() || d > c.To.String() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func columnValue(r core.Row, col core.Column) string {
	switch col {
	case core.ColumnDate:
		return r.Date.String()
	case core.ColumnCategory:
		return string(r.Category)
	case core.ColumnProduct:
		return r.Product
	case core.ColumnDescription:
		if r.Description != nil {
			return *r.Description
		}
	}
	return ""
}

func (s *Store) SalesRegistered(ctx context.Context, date core.Date, entity core.Entity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registrations[registrationKey{date.String(), entity}]
	return ok, nil
}

// RegisterSales checks and stores under one lock, so concurrent uploads for
// the same date and entity cannot both succeed.
func (s *Store) RegisterSales(ctx context.Context, reg core.SaleRegistration, rows []core.SaleRecord) (core.SaleRegistration, error) {
	if err := ctx.Err(); err != nil {
		return core.SaleRegistration{}, &core.StoreError{Op: "insert", Table: "sales", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := registrationKey{reg.Date.String(), reg.Entity}
	if _, ok := s.registrations[key]; ok {
		return core.SaleRegistration{}, &core.DuplicateRegistrationError{Date: reg.Date, Entity: reg.Entity}
	}
	reg.CreatedAt = s.now().UTC()
	s.registrations[key] = reg
	s.sales[reg.ID] = append([]core.SaleRecord(nil), rows...)
	return reg, nil
}

func (s *Store) ListSales(_ context.Context, registrationID string) ([]core.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SaleRecord(nil), s.sales[registrationID]...), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
