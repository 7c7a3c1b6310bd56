package dialect

import (
	"database/sql/driver"
	"strconv"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/hlop3z/addenda/internal/schema"
)

// postgresMaxVarChar is the largest length PostgreSQL accepts for VARCHAR(n).
const postgresMaxVarChar = 10485760

// Postgres returns the PostgreSQL dialect implementation. It accepts
// connections opened with lib/pq ("postgres") or pgx ("pgx").
func Postgres() Dialect {
	return NewBase(postgresConfig())
}

func postgresConfig() Config {
	return Config{
		Name: "postgres",
		Types: map[schema.Type][]TypeName{
			schema.Bit:      Fixed("BOOLEAN"),
			schema.Boolean:  Fixed("BOOLEAN"),
			schema.TinyInt:  Fixed("SMALLINT"),
			schema.SmallInt: Fixed("SMALLINT"),
			schema.Integer:  Fixed("INTEGER"),
			schema.BigInt:   Fixed("BIGINT"),
			schema.Float:    Fixed("DOUBLE PRECISION"),
			schema.Real:     Fixed("REAL"),
			schema.Double:   Fixed("DOUBLE PRECISION"),
			schema.Numeric:  Fixed("NUMERIC($p,$s)"),
			schema.Decimal:  Fixed("DECIMAL($p,$s)"),
			schema.Char: {
				{MaxLength: postgresMaxVarChar, Template: "CHAR($l)"},
				{MaxLength: Unbounded, Template: "TEXT"},
			},
			schema.VarChar: {
				{MaxLength: postgresMaxVarChar, Template: "VARCHAR($l)"},
				{MaxLength: Unbounded, Template: "TEXT"},
			},
			schema.LongVarChar:   Fixed("TEXT"),
			schema.Clob:          Fixed("TEXT"),
			schema.Date:          Fixed("DATE"),
			schema.Time:          Fixed("TIME"),
			schema.Timestamp:     Fixed("TIMESTAMP"),
			schema.Binary:        Fixed("BYTEA"),
			schema.VarBinary:     Fixed("BYTEA"),
			schema.LongVarBinary: Fixed("BYTEA"),
			schema.Blob:          Fixed("BYTEA"),
		},
		DefaultLength:    standardLengths(),
		DefaultPrecision: standardPrecision(),
		DefaultScale:     standardScale(),
		Quote:            pq.QuoteIdentifier,
		Placeholder: func(index int) string {
			return "$" + strconv.Itoa(index)
		},
		Booleans:         KeywordBooleans,
		TransactionalDDL: true,
		Identity:         "GENERATED BY DEFAULT AS IDENTITY",
		Sequences:        true,
		AlterType:        "TYPE",
		Accepts: func(d driver.Driver) bool {
			switch d.(type) {
			case *pq.Driver, *stdlib.Driver:
				return true
			}
			return false
		},
		SchemaFilter: " AND table_schema = current_schema()",
	}
}
