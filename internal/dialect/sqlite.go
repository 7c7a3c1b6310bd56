package dialect

import (
	"context"
	"database/sql/driver"

	sqlitedriver "modernc.org/sqlite"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/schema"
)

// sqliteDialect implements the Dialect interface for SQLite.
// SQLite has dynamic typing with type affinities: TEXT, INTEGER, REAL, BLOB.
type sqliteDialect struct {
	*Base
}

// SQLite returns the SQLite dialect implementation.
func SQLite() Dialect {
	return &sqliteDialect{Base: NewBase(sqliteConfig())}
}

func sqliteConfig() Config {
	integer := Fixed("INTEGER")
	text := Fixed("TEXT")
	blob := Fixed("BLOB")
	return Config{
		Name: "sqlite",
		Types: map[schema.Type][]TypeName{
			// No native BOOLEAN; stored as INTEGER 0/1.
			schema.Bit:      integer,
			schema.Boolean:  integer,
			schema.TinyInt:  integer,
			schema.SmallInt: integer,
			schema.Integer:  integer,
			schema.BigInt:   integer,
			schema.Float:    Fixed("REAL"),
			schema.Real:     Fixed("REAL"),
			schema.Double:   Fixed("REAL"),
			schema.Numeric:  Fixed("NUMERIC"),
			schema.Decimal:  Fixed("NUMERIC"),
			// Length constraints are ignored; everything textual is TEXT.
			schema.Char:        text,
			schema.VarChar:     text,
			schema.LongVarChar: text,
			schema.Clob:        text,
			// Date affinities keep the declared name readable.
			schema.Date:          Fixed("DATE"),
			schema.Time:          Fixed("TIME"),
			schema.Timestamp:     Fixed("DATETIME"),
			schema.Binary:        blob,
			schema.VarBinary:     blob,
			schema.LongVarBinary: blob,
			schema.Blob:          blob,
		},
		DefaultLength:    standardLengths(),
		DefaultPrecision: standardPrecision(),
		DefaultScale:     standardScale(),
		Booleans:         NumericBooleans,
		TransactionalDDL: true,
		InlineIdentity:   true,
		Accepts: func(d driver.Driver) bool {
			_, ok := d.(*sqlitedriver.Driver)
			return ok
		},
	}
}

// AlterColumnSQL supports renames only (SQLite 3.25.0+). Changing type,
// nullability or default requires rebuilding the table.
func (d *sqliteDialect) AlterColumnSQL(table string, from, to schema.Column) ([]string, error) {
	if from.Equal(to) {
		return nil, nil
	}
	if !from.Renamed(to.Name).Equal(to) {
		return nil, d.unsupportedAlteration(table, from, to, "column definitions; use table recreation")
	}
	return []string{
		"ALTER TABLE " + d.QuoteIdent(table) + " RENAME COLUMN " + d.QuoteIdent(from.Name) + " TO " + d.QuoteIdent(to.Name),
	}, nil
}

// HasTable looks the table up in sqlite_master.
func (d *sqliteDialect) HasTable(ctx context.Context, ex Executor, table string) (bool, error) {
	return countTables(ctx, ex, table, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?")
}

// VerifyColumn reads PRAGMA table_info. An INTEGER PRIMARY KEY column is
// reported nullable by SQLite but never holds NULL, so pk counts as NOT NULL.
func (d *sqliteDialect) VerifyColumn(ctx context.Context, ex Executor, table string, col schema.Column) error {
	query := "PRAGMA table_info(" + d.QuoteIdent(table) + ")"
	rows, err := ex.QueryContext(ctx, query)
	if err != nil {
		return alerr.WrapSQL(alerr.ErrVerifyColumn, err, "verify column", table, col.Name).WithSQL(query)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return alerr.WrapSQL(alerr.ErrVerifyColumn, err, "verify column", table, col.Name).WithSQL(query)
		}
		if name == col.Name {
			return checkNullability(table, col, notNull != 0 || pk > 0)
		}
	}
	if err := rows.Err(); err != nil {
		return alerr.WrapSQL(alerr.ErrVerifyColumn, err, "verify column", table, col.Name).WithSQL(query)
	}
	return columnNotFound(table, col)
}
