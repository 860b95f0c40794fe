package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"restobook/internal/core"
)

const recordReturning = "id, created_at"

// SQLRepository implements Store on database/sql for SQLite and PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (and migrates) an embedded database file.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: SQLite}, nil
}

// NewPostgresRepository connects through the pgx stdlib driver.
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: Postgres}, nil
}

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertRecord writes rec with a single INSERT ... RETURNING.
func (r *SQLRepository) InsertRecord(ctx context.Context, rec core.Record) (core.Row, error) {
	table, cols, err := serializeRecord(r.dialect, rec)
	if err != nil {
		return core.Row{}, &core.StoreError{Op: "insert", Err: err}
	}
	query, args := renderInsert(r.dialect, string(table), cols, recordReturning)

	var (
		id        int64
		createdAt timeValue
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id, &createdAt); err != nil {
		return core.Row{}, &core.StoreError{Op: "insert", Table: string(table), Err: err}
	}

	slog.DebugContext(ctx, "Record inserted",
		"component", "storage",
		"table", table,
		"id", id,
		"backend", r.dialect.Name())

	return core.NewRow(rec, id, createdAt.Time), nil
}

// UpdateRecord overwrites every column of the record with the given id.
func (r *SQLRepository) UpdateRecord(ctx context.Context, id int64, rec core.Record) (core.Row, error) {
	table, cols, err := serializeRecord(r.dialect, rec)
	if err != nil {
		return core.Row{}, &core.StoreError{Op: "update", Err: err}
	}
	query, args := renderUpdate(r.dialect, string(table), cols, id, recordReturning)

	var (
		gotID     int64
		createdAt timeValue
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&gotID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Row{}, core.ErrNotFound
	}
	if err != nil {
		return core.Row{}, &core.StoreError{Op: "update", Table: string(table), Err: err}
	}
	return core.NewRow(rec, gotID, createdAt.Time), nil
}

func (r *SQLRepository) DeleteRecord(ctx context.Context, table core.Table, id int64) error {
	name, err := tableName(table)
	if err != nil {
		return &core.StoreError{Op: "delete", Table: string(table), Err: err}
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+name+" WHERE id = "+r.dialect.Placeholder(1), id)
	if err != nil {
		return &core.StoreError{Op: "delete", Table: name, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.StoreError{Op: "delete", Table: name, Err: err}
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) GetRecord(ctx context.Context, table core.Table, id int64) (core.Row, error) {
	name, err := tableName(table)
	if err != nil {
		return core.Row{}, &core.StoreError{Op: "get", Table: string(table), Err: err}
	}
	query := "SELECT " + tableColumns[table] + " FROM " + name + " WHERE id = " + r.dialect.Placeholder(1)
	row, err := scanRow(r.db.QueryRowContext(ctx, query, id), table)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Row{}, core.ErrNotFound
	}
	if err != nil {
		return core.Row{}, &core.StoreError{Op: "get", Table: name, Err: err}
	}
	return row, nil
}

// QueryRecords runs one filtered read.
func (r *SQLRepository) QueryRecords(ctx context.Context, spec core.QuerySpec) ([]core.Row, error) {
	query, args, err := renderSelect(r.dialect, spec)
	if err != nil {
		return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
	}
	defer rows.Close()

	var out []core.Row
	for rows.Next() {
		row, err := scanRow(rows, spec.Table)
		if err != nil {
			return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: "select", Table: string(spec.Table), Err: err}
	}
	return out, nil
}
