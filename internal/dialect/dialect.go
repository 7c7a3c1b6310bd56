// Package dialect translates abstract table and column operations into
// statements for one SQL engine.
//
// Rendering methods return statements without executing them; the engine
// binds them to a connection later. Version-tracking methods execute
// directly against the given Executor.
package dialect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/schema"
)

// Executor runs statements. *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tracking names the table and column holding the durable applied count.
type Tracking struct {
	Table  string
	Column string
}

// DefaultTracking is a single-row "Addenda" table with an "addendum" column.
func DefaultTracking() Tracking {
	return Tracking{Table: "Addenda", Column: "addendum"}
}

// Dialect defines the interface for database-specific SQL generation.
type Dialect interface {
	// Name returns the dialect name (ansi, postgres, mysql, sqlite).
	Name() string

	// CanTranslate reports whether the dialect can speak to the connection.
	CanTranslate(db *sql.DB) bool

	// SupportsTransactionalDDL returns true if DDL can be wrapped in transactions.
	// PostgreSQL, SQLite: true
	// MySQL: false (DDL commits implicitly)
	SupportsTransactionalDDL() bool

	// QuoteIdent quotes an identifier (table/column name) for the dialect.
	QuoteIdent(name string) string

	// Placeholder returns a parameter placeholder for the given index (1-based).
	Placeholder(index int) string

	// -------------------------------------------------------------------------
	// Version tracking
	// -------------------------------------------------------------------------

	// CreateAddendaTable creates the tracking table when missing and seeds
	// its single row with zero. Safe to call repeatedly.
	CreateAddendaTable(ctx context.Context, ex Executor, tr Tracking) error

	// AddendaCount reads the number of applied units.
	AddendaCount(ctx context.Context, ex Executor, tr Tracking) (int, error)

	// Addendum advances the applied count by one.
	Addendum(ctx context.Context, ex Executor, tr Tracking) error

	// -------------------------------------------------------------------------
	// Statement rendering
	// -------------------------------------------------------------------------

	// ColumnDefSQL renders one column definition. NOT NULL is written only
	// when allowNotNull is true and the column is marked not-null.
	ColumnDefSQL(table string, col schema.Column, allowNotNull bool) (string, error)

	// CreateTableSQL renders CREATE TABLE plus any supporting statements.
	CreateTableSQL(table string, cols []schema.Column, primaryKey []string) ([]string, error)

	// AddColumnSQL renders ALTER TABLE ... ADD COLUMN.
	AddColumnSQL(table string, col schema.Column, allowNotNull bool) ([]string, error)

	// AlterColumnSQL renders the statements turning column from into column
	// to. from.Name is the column name currently in the database.
	AlterColumnSQL(table string, from, to schema.Column) ([]string, error)

	// DropColumnSQL renders ALTER TABLE ... DROP COLUMN.
	DropColumnSQL(table, column string) ([]string, error)

	// RenameTableSQL renders a table rename.
	RenameTableSQL(from, to string) ([]string, error)

	// InsertSQL renders a parameterized single-row INSERT.
	InsertSQL(table string, columns []string) string

	// HasTable reports whether the table exists in the connection's schema.
	HasTable(ctx context.Context, ex Executor, table string) (bool, error)

	// HasRows reports whether the table holds at least one row.
	HasRows(ctx context.Context, ex Executor, table string) (bool, error)

	// VerifyColumn checks that a column exists in the database with the
	// expected nullability.
	VerifyColumn(ctx context.Context, ex Executor, table string, col schema.Column) error
}

// Get returns the dialect implementation for the given name.
// Valid names: "ansi", "postgres", "postgresql", "pgx", "mysql", "mariadb",
// "sqlite", "sqlite3". Returns nil if the dialect is not supported.
func Get(name string) Dialect {
	switch name {
	case "ansi":
		return ANSI()
	case "postgres", "postgresql", "pgx":
		return Postgres()
	case "mysql", "mariadb":
		return MySQL()
	case "sqlite", "sqlite3":
		return SQLite()
	default:
		return nil
	}
}

// Names returns the list of supported dialect names.
func Names() []string {
	return []string{"ansi", "mysql", "postgres", "sqlite"}
}

// Default returns the registry probed when no dialect is fixed, in probe
// order. ANSI accepts every connection and is therefore left out.
func Default() []Dialect {
	return []Dialect{Postgres(), MySQL(), SQLite()}
}

// Resolve returns the first dialect whose CanTranslate accepts db.
func Resolve(db *sql.DB, dialects []Dialect) (Dialect, error) {
	for _, d := range dialects {
		if d.CanTranslate(db) {
			return d, nil
		}
	}
	return nil, alerr.New(alerr.ErrDialectNotResolved, "no dialect can translate the connection").
		With("driver", driverName(db)).
		With("dialects", len(dialects))
}

// Check verifies that a fixed dialect accepts db.
func Check(db *sql.DB, d Dialect) error {
	if d.CanTranslate(db) {
		return nil
	}
	return alerr.New(alerr.ErrDialectDoesNotSupportConnection, "dialect does not support the connection").
		With("dialect", d.Name()).
		With("driver", driverName(db))
}

func driverName(db *sql.DB) string {
	if db == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", db.Driver())
}
