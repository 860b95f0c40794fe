package storage

import (
	"context"

	"restobook/internal/core"
)

// RecordWriter persists validated records.
type RecordWriter interface {
	InsertRecord(ctx context.Context, rec core.Record) (core.Row, error)
}

// RecordReader runs filtered reads and id lookups.
type RecordReader interface {
	QueryRecords(ctx context.Context, spec core.QuerySpec) ([]core.Row, error)
	GetRecord(ctx context.Context, table core.Table, id int64) (core.Row, error)
}

// RecordUpdater replaces a record in place; the table comes from rec.
type RecordUpdater interface {
	UpdateRecord(ctx context.Context, id int64, rec core.Record) (core.Row, error)
}

// RecordDeleter hard-deletes by id.
type RecordDeleter interface {
	DeleteRecord(ctx context.Context, table core.Table, id int64) error
}

// SaleRegistrar stores bulk sale imports, at most one per date and entity.
type SaleRegistrar interface {
	SalesRegistered(ctx context.Context, date core.Date, entity core.Entity) (bool, error)
	RegisterSales(ctx context.Context, reg core.SaleRegistration, rows []core.SaleRecord) (core.SaleRegistration, error)
}

// SaleReader returns the stored lines of a registration.
type SaleReader interface {
	ListSales(ctx context.Context, registrationID string) ([]core.SaleRecord, error)
}

// RecordStore is every record operation together.
type RecordStore interface {
	RecordWriter
	RecordReader
	RecordUpdater
	RecordDeleter
}

// Store is a complete backend.
type Store interface {
	RecordStore
	SaleRegistrar
	SaleReader
	Ping(ctx context.Context) error
	Close() error
}
