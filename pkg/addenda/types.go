package addenda

import (
	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/drift"
	"github.com/hlop3z/addenda/internal/dsl"
	"github.com/hlop3z/addenda/internal/engine"
	"github.com/hlop3z/addenda/internal/schema"
)

// Unit states, narrowest last.
type (
	Creating   = dsl.Creating
	Altering   = dsl.Altering
	Asserting  = dsl.Asserting
	Populating = dsl.Populating
	Committing = dsl.Committing
)

// Builders returned by the unit states.
type (
	TableCreation    = dsl.TableCreation
	TableAlteration  = dsl.TableAlteration
	ColumnAlteration = dsl.ColumnAlteration
	Verification     = dsl.Verification
	Insertion        = dsl.Insertion
)

// Definition contributes one unit. DefinitionFunc adapts a function.
type (
	Definition     = dsl.Definition
	DefinitionFunc = dsl.DefinitionFunc
	UnitOption     = dsl.Option
)

// Unit options.
var (
	UnitName    = dsl.WithName
	UnitDialect = dsl.WithDialect
	UnitNaming  = dsl.WithNaming
)

type (
	Dialect    = dialect.Dialect
	Type       = schema.Type
	Generator  = schema.Generator
	Schema     = schema.Schema
	Status     = engine.Status
	Step       = engine.Step
	SchemaHash = drift.SchemaHash
	Error      = alerr.Error
	Code       = alerr.Code
)

// Dialects.
var (
	ANSI     = dialect.ANSI
	Postgres = dialect.Postgres
	MySQL    = dialect.MySQL
	SQLite   = dialect.SQLite
)

// Column types.
const (
	Bit           = schema.Bit
	Boolean       = schema.Boolean
	TinyInt       = schema.TinyInt
	SmallInt      = schema.SmallInt
	Integer       = schema.Integer
	BigInt        = schema.BigInt
	Float         = schema.Float
	Real          = schema.Real
	Double        = schema.Double
	Numeric       = schema.Numeric
	Decimal       = schema.Decimal
	Char          = schema.Char
	VarChar       = schema.VarChar
	LongVarChar   = schema.LongVarChar
	Clob          = schema.Clob
	Date          = schema.Date
	Time          = schema.Time
	Timestamp     = schema.Timestamp
	Binary        = schema.Binary
	VarBinary     = schema.VarBinary
	LongVarBinary = schema.LongVarBinary
	Blob          = schema.Blob
)

// Key generators.
const (
	NoGenerator   = schema.NoGenerator
	Preferred     = schema.Preferred
	AutoIncrement = schema.AutoIncrement
	Sequence      = schema.Sequence
)

// Error codes callers commonly branch on. The full set lives in alerr.
const (
	ErrEntityExists       = alerr.ErrEntityExists
	ErrEntityMissing      = alerr.ErrEntityMissing
	ErrTableExists        = alerr.ErrTableExists
	ErrPropertyExists     = alerr.ErrPropertyExists
	ErrPropertyMissing    = alerr.ErrPropertyMissing
	ErrColumnMismatch     = alerr.ErrColumnMismatch
	ErrDialectNotResolved = alerr.ErrDialectNotResolved
	ErrExecute            = alerr.ErrExecute
	ErrConnect            = alerr.ErrConnect
	ErrLookup             = alerr.ErrLookup
	ErrDefinitionInvalid  = alerr.ErrDefinitionInvalid
	ErrConfigInvalid      = alerr.ErrConfigInvalid
)

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return alerr.Is(err, code)
}
