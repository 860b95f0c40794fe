package storage

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"restobook/internal/core"
)

// Dialect isolates the SQL differences between the supported engines.
type Dialect interface {
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// DateArg converts a calendar date to a driver argument.
	DateArg(d core.Date) any
	IsUniqueViolation(err error) bool
	// Lower wraps a column expression in a Unicode-aware lowercase call.
	Lower(expr string) string
}

// SQLite's built-in LOWER only folds ASCII.
const sqliteLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string            { return "sqlite" }
func (sqliteDialect) Placeholder(int) string  { return "?" }
func (sqliteDialect) DateArg(d core.Date) any { return d.String() }
func (sqliteDialect) Lower(expr string) string {
	return sqliteLower + "(" + expr + ")"
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) DateArg(d core.Date) any  { return d.Time }
func (postgresDialect) Lower(expr string) string { return "LOWER(" + expr + ")" }

// unique_violation
const pgUniqueViolation = "23505"

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// binder hands out consecutive placeholders and collects their arguments.
type binder struct {
	d    Dialect
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}
