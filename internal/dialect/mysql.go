package dialect

import (
	"database/sql/driver"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/hlop3z/addenda/internal/schema"
)

// MySQL length limits for the banded text and binary types.
const (
	mysqlMaxVarChar = 65535
	mysqlMaxMedium  = 16777215
	mysqlMaxChar    = 255
)

// mysqlDialect implements the Dialect interface for MySQL and MariaDB.
// DDL is not transactional: every statement commits implicitly.
type mysqlDialect struct {
	*Base
}

// MySQL returns the MySQL dialect implementation.
func MySQL() Dialect {
	return &mysqlDialect{Base: NewBase(mysqlConfig())}
}

func mysqlConfig() Config {
	return Config{
		Name: "mysql",
		Types: map[schema.Type][]TypeName{
			schema.Bit:      Fixed("BIT($l)"),
			schema.Boolean:  Fixed("BOOLEAN"),
			schema.TinyInt:  Fixed("TINYINT"),
			schema.SmallInt: Fixed("SMALLINT"),
			schema.Integer:  Fixed("INT"),
			schema.BigInt:   Fixed("BIGINT"),
			schema.Float:    Fixed("FLOAT"),
			schema.Real:     Fixed("DOUBLE"),
			schema.Double:   Fixed("DOUBLE"),
			schema.Numeric:  Fixed("NUMERIC($p,$s)"),
			schema.Decimal:  Fixed("DECIMAL($p,$s)"),
			schema.Char: {
				{MaxLength: mysqlMaxChar, Template: "CHAR($l)"},
				{MaxLength: mysqlMaxVarChar, Template: "VARCHAR($l)"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMTEXT"},
				{MaxLength: Unbounded, Template: "LONGTEXT"},
			},
			schema.VarChar: {
				{MaxLength: mysqlMaxVarChar, Template: "VARCHAR($l)"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMTEXT"},
				{MaxLength: Unbounded, Template: "LONGTEXT"},
			},
			schema.LongVarChar: {
				{MaxLength: mysqlMaxVarChar, Template: "TEXT"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMTEXT"},
				{MaxLength: Unbounded, Template: "LONGTEXT"},
			},
			schema.Clob:      Fixed("LONGTEXT"),
			schema.Date:      Fixed("DATE"),
			schema.Time:      Fixed("TIME"),
			schema.Timestamp: Fixed("DATETIME"),
			schema.Binary: {
				{MaxLength: mysqlMaxChar, Template: "BINARY($l)"},
				{MaxLength: mysqlMaxVarChar, Template: "VARBINARY($l)"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMBLOB"},
				{MaxLength: Unbounded, Template: "LONGBLOB"},
			},
			schema.VarBinary: {
				{MaxLength: mysqlMaxVarChar, Template: "VARBINARY($l)"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMBLOB"},
				{MaxLength: Unbounded, Template: "LONGBLOB"},
			},
			schema.LongVarBinary: {
				{MaxLength: mysqlMaxVarChar, Template: "BLOB"},
				{MaxLength: mysqlMaxMedium, Template: "MEDIUMBLOB"},
				{MaxLength: Unbounded, Template: "LONGBLOB"},
			},
			schema.Blob: Fixed("LONGBLOB"),
		},
		DefaultLength: func() map[schema.Type]int {
			m := standardLengths()
			m[schema.Bit] = 1
			return m
		}(),
		DefaultPrecision: standardPrecision(),
		DefaultScale:     standardScale(),
		Quote:            quoteIdentBacktick,
		Booleans:         NumericBooleans,
		Identity:         "AUTO_INCREMENT",
		Accepts: func(d driver.Driver) bool {
			_, ok := d.(*mysql.MySQLDriver)
			return ok
		},
		SchemaFilter: " AND table_schema = DATABASE()",
	}
}

func quoteIdentBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// AlterColumnSQL uses CHANGE COLUMN, which renames and redefines in one
// statement and is available on every MySQL and MariaDB version.
func (d *mysqlDialect) AlterColumnSQL(table string, from, to schema.Column) ([]string, error) {
	if d.generator(from) != d.generator(to) {
		return nil, d.unsupportedAlteration(table, from, to, "the key generator")
	}
	if from.Equal(to) {
		return nil, nil
	}
	def, err := d.columnDef(table, to, true, false)
	if err != nil {
		return nil, err
	}
	return []string{"ALTER TABLE " + d.QuoteIdent(table) + " CHANGE COLUMN " + d.QuoteIdent(from.Name) + " " + def}, nil
}

func (d *mysqlDialect) RenameTableSQL(from, to string) ([]string, error) {
	return []string{"RENAME TABLE " + d.QuoteIdent(from) + " TO " + d.QuoteIdent(to)}, nil
}
