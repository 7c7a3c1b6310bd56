package dialect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/schema"
)

// QuoteIdentFunc is a function that quotes an identifier.
type QuoteIdentFunc func(name string) string

// Unbounded is the MaxLength of a type band with no upper limit.
const Unbounded = math.MaxInt

// TypeName is one length band of a type-name table. Template applies to
// effective lengths up to and including MaxLength. The tokens $l, $p and $s
// expand to length, precision and scale.
type TypeName struct {
	MaxLength int
	Template  string
}

// Fixed is a single unbounded band.
func Fixed(template string) []TypeName {
	return []TypeName{{MaxLength: Unbounded, Template: template}}
}

// BooleanLiterals holds the true/false literals for a dialect.
type BooleanLiterals struct {
	True  string
	False string
}

// KeywordBooleans uses TRUE/FALSE.
var KeywordBooleans = BooleanLiterals{True: "TRUE", False: "FALSE"}

// NumericBooleans uses 1/0.
var NumericBooleans = BooleanLiterals{True: "1", False: "0"}

// Config describes a dialect to the shared Base renderer. Concrete dialects
// differ mostly in these tables; behavior that cannot be expressed here is
// overridden on the dialect type itself.
type Config struct {
	Name string

	// Types maps each supported type to its length bands.
	Types map[schema.Type][]TypeName
	// DefaultLength applies when a column leaves Length unspecified.
	DefaultLength map[schema.Type]int
	// DefaultPrecision and DefaultScale apply when a column specifies neither.
	DefaultPrecision map[schema.Type]int
	DefaultScale     map[schema.Type]int

	Quote       QuoteIdentFunc
	Placeholder func(index int) string
	Booleans    BooleanLiterals

	TransactionalDDL bool

	// Identity is the column clause for auto-increment keys. Empty means
	// the dialect renders no identity clause.
	Identity string
	// InlineIdentity renders auto-increment as an inline
	// "PRIMARY KEY AUTOINCREMENT", allowed only on a sole primary-key column.
	InlineIdentity bool
	// Sequences enables SEQUENCE generation via CREATE SEQUENCE + nextval.
	Sequences bool

	// AlterType is the keyword between ALTER COLUMN <name> and the new type.
	AlterType string

	// Accepts probes the connection's driver. Nil accepts every driver.
	Accepts func(driver.Driver) bool

	// SchemaFilter narrows information_schema lookups to the connection's
	// schema, e.g. " AND table_schema = current_schema()".
	SchemaFilter string
}

// Base is the ANSI-flavored renderer shared by every dialect.
type Base struct {
	cfg Config
}

// NewBase creates a renderer from cfg. Type bands are sorted ascending by
// MaxLength.
func NewBase(cfg Config) *Base {
	types := make(map[schema.Type][]TypeName, len(cfg.Types))
	for t, bands := range cfg.Types {
		sorted := slices.Clone(bands)
		slices.SortStableFunc(sorted, func(a, b TypeName) int {
			switch {
			case a.MaxLength < b.MaxLength:
				return -1
			case a.MaxLength > b.MaxLength:
				return 1
			}
			return 0
		})
		types[t] = sorted
	}
	cfg.Types = types
	if cfg.Quote == nil {
		cfg.Quote = quoteIdentDoubleQuote
	}
	if cfg.Placeholder == nil {
		cfg.Placeholder = questionPlaceholder
	}
	if cfg.AlterType == "" {
		cfg.AlterType = "SET DATA TYPE"
	}
	return &Base{cfg: cfg}
}

// ANSI returns the standard-SQL dialect. It accepts any connection and is
// only used when fixed explicitly.
func ANSI() Dialect {
	return NewBase(ansiConfig())
}

func ansiConfig() Config {
	return Config{
		Name: "ansi",
		Types: map[schema.Type][]TypeName{
			schema.Bit:           Fixed("BIT"),
			schema.Boolean:       Fixed("BOOLEAN"),
			schema.TinyInt:       Fixed("SMALLINT"),
			schema.SmallInt:      Fixed("SMALLINT"),
			schema.Integer:       Fixed("INTEGER"),
			schema.BigInt:        Fixed("BIGINT"),
			schema.Float:         Fixed("FLOAT"),
			schema.Real:          Fixed("REAL"),
			schema.Double:        Fixed("DOUBLE PRECISION"),
			schema.Numeric:       Fixed("NUMERIC($p,$s)"),
			schema.Decimal:       Fixed("DECIMAL($p,$s)"),
			schema.Char:          Fixed("CHAR($l)"),
			schema.VarChar:       Fixed("VARCHAR($l)"),
			schema.LongVarChar:   Fixed("CLOB"),
			schema.Clob:          Fixed("CLOB"),
			schema.Date:          Fixed("DATE"),
			schema.Time:          Fixed("TIME"),
			schema.Timestamp:     Fixed("TIMESTAMP"),
			schema.Binary:        Fixed("BINARY($l)"),
			schema.VarBinary:     Fixed("VARBINARY($l)"),
			schema.LongVarBinary: Fixed("BLOB"),
			schema.Blob:          Fixed("BLOB"),
		},
		DefaultLength:    standardLengths(),
		DefaultPrecision: standardPrecision(),
		DefaultScale:     standardScale(),
		Booleans:         KeywordBooleans,
		TransactionalDDL: true,
		Identity:         "GENERATED BY DEFAULT AS IDENTITY",
	}
}

func standardLengths() map[schema.Type]int {
	return map[schema.Type]int{
		schema.Char:      1,
		schema.VarChar:   255,
		schema.Binary:    1,
		schema.VarBinary: 255,
	}
}

func standardPrecision() map[schema.Type]int {
	return map[schema.Type]int{schema.Numeric: 10, schema.Decimal: 10}
}

func standardScale() map[schema.Type]int {
	return map[schema.Type]int{schema.Numeric: 2, schema.Decimal: 2}
}

func quoteIdentDoubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func questionPlaceholder(int) string {
	return "?"
}

// writeQuotedList writes comma-separated quoted identifiers to the builder.
func writeQuotedList(b *strings.Builder, items []string, quote QuoteIdentFunc) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(item))
	}
}

// -----------------------------------------------------------------------------
// Identity and features
// -----------------------------------------------------------------------------

func (b *Base) Name() string {
	return b.cfg.Name
}

func (b *Base) CanTranslate(db *sql.DB) bool {
	if b.cfg.Accepts == nil {
		return true
	}
	if db == nil {
		return false
	}
	return b.cfg.Accepts(db.Driver())
}

func (b *Base) SupportsTransactionalDDL() bool {
	return b.cfg.TransactionalDDL
}

func (b *Base) QuoteIdent(name string) string {
	return b.cfg.Quote(name)
}

func (b *Base) Placeholder(index int) string {
	return b.cfg.Placeholder(index)
}

// -----------------------------------------------------------------------------
// Column rendering
// -----------------------------------------------------------------------------

// TypeSQL renders the type name of a column using the length bands.
func (b *Base) TypeSQL(col schema.Column) (string, error) {
	typ, err := b.typeName(col)
	if err != nil {
		return "", err
	}
	return typ, nil
}

func (b *Base) typeName(col schema.Column) (string, *alerr.Error) {
	bands, ok := b.cfg.Types[col.Type]
	if !ok || len(bands) == 0 {
		return "", alerr.New(alerr.ErrDialectDoesNotSupportType, "dialect has no type name for the column type").
			With("dialect", b.cfg.Name).
			With("type", col.Type.String()).
			WithColumn(col.Name)
	}

	length := col.Length
	if length == 0 {
		length = b.cfg.DefaultLength[col.Type]
	}
	for _, band := range bands {
		if band.MaxLength >= length {
			return b.expand(band.Template, col, length), nil
		}
	}
	return "", alerr.New(alerr.ErrDialectDoesNotSupportType, "length exceeds every type band").
		With("dialect", b.cfg.Name).
		With("type", col.Type.String()).
		With("length", length).
		WithColumn(col.Name)
}

func (b *Base) expand(template string, col schema.Column, length int) string {
	if !strings.Contains(template, "$") {
		return template
	}
	precision, scale := col.Precision, col.Scale
	if precision == 0 && scale == 0 {
		precision = b.cfg.DefaultPrecision[col.Type]
		scale = b.cfg.DefaultScale[col.Type]
	}
	return strings.NewReplacer(
		"$l", strconv.Itoa(length),
		"$p", strconv.Itoa(precision),
		"$s", strconv.Itoa(scale),
	).Replace(template)
}

// generator resolves Preferred to the strategy the dialect favors.
func (b *Base) generator(col schema.Column) schema.Generator {
	if col.Generator != schema.Preferred {
		return col.Generator
	}
	switch {
	case b.cfg.Identity != "" || b.cfg.InlineIdentity:
		return schema.AutoIncrement
	case b.cfg.Sequences:
		return schema.Sequence
	}
	return schema.Preferred
}

func (b *Base) unsupportedGenerator(table string, col schema.Column) *alerr.Error {
	return alerr.New(alerr.ErrDialectDoesNotSupportGenerator, "dialect does not support the key generator").
		With("dialect", b.cfg.Name).
		With("generator", col.Generator.String()).
		WithTable(table).
		WithColumn(col.Name)
}

// defaultSQL renders a default literal. Character and temporal values are
// quoted with embedded quotes doubled; numbers and booleans are raw.
func (b *Base) defaultSQL(col schema.Column) string {
	v := col.Default
	if col.Type == schema.Boolean || col.Type == schema.Bit {
		switch strings.ToLower(v) {
		case "true":
			return b.cfg.Booleans.True
		case "false":
			return b.cfg.Booleans.False
		}
	}
	if col.Type.QuotedDefault() {
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return v
}

func sequenceName(table, column string) string {
	return table + "_" + column + "_seq"
}

func (b *Base) createSequenceSQL(table string, col schema.Column) string {
	return "CREATE SEQUENCE IF NOT EXISTS " + b.cfg.Quote(sequenceName(table, col.Name))
}

func (b *Base) ColumnDefSQL(table string, col schema.Column, allowNotNull bool) (string, error) {
	return b.columnDef(table, col, allowNotNull, false)
}

// columnDef renders name, type, generator, default and NOT NULL, in that
// order. inlineKey renders the column as the table's sole auto-increment key.
func (b *Base) columnDef(table string, col schema.Column, allowNotNull, inlineKey bool) (string, error) {
	typ, err := b.typeName(col)
	if err != nil {
		return "", err.WithTable(table)
	}

	var sb strings.Builder
	sb.WriteString(b.cfg.Quote(col.Name))
	sb.WriteString(" ")
	sb.WriteString(typ)

	writeDefault := col.HasDefault
	switch b.generator(col) {
	case schema.NoGenerator:
	case schema.AutoIncrement:
		switch {
		case inlineKey:
			sb.WriteString(" PRIMARY KEY AUTOINCREMENT")
		case b.cfg.Identity != "":
			sb.WriteString(" ")
			sb.WriteString(b.cfg.Identity)
		default:
			return "", b.unsupportedGenerator(table, col)
		}
		writeDefault = false
	case schema.Sequence:
		if !b.cfg.Sequences {
			return "", b.unsupportedGenerator(table, col)
		}
		seq := b.cfg.Quote(sequenceName(table, col.Name))
		sb.WriteString(" DEFAULT nextval('")
		sb.WriteString(strings.ReplaceAll(seq, "'", "''"))
		sb.WriteString("')")
		writeDefault = false
	default:
		return "", b.unsupportedGenerator(table, col)
	}

	if writeDefault {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(b.defaultSQL(col))
	}
	if allowNotNull && col.NotNull {
		sb.WriteString(" NOT NULL")
	}
	return sb.String(), nil
}

// -----------------------------------------------------------------------------
// DDL
// -----------------------------------------------------------------------------

func (b *Base) CreateTableSQL(table string, cols []schema.Column, primaryKey []string) ([]string, error) {
	if len(cols) == 0 {
		return nil, alerr.New(alerr.ErrNoColumns, "table has no columns").WithTable(table)
	}

	inline := ""
	if b.cfg.InlineIdentity && len(primaryKey) == 1 {
		for _, col := range cols {
			if col.Name == primaryKey[0] && b.generator(col) == schema.AutoIncrement {
				inline = col.Name
			}
		}
	}

	var stmts []string
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(b.cfg.Quote(table))
	sb.WriteString(" (\n")
	for i, col := range cols {
		if b.generator(col) == schema.Sequence && b.cfg.Sequences {
			stmts = append(stmts, b.createSequenceSQL(table, col))
		}
		def, err := b.columnDef(table, col, true, col.Name == inline)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString("  ")
		sb.WriteString(def)
	}
	if len(primaryKey) > 0 && inline == "" {
		sb.WriteString(",\n  PRIMARY KEY (")
		writeQuotedList(&sb, primaryKey, b.cfg.Quote)
		sb.WriteString(")")
	}
	sb.WriteString("\n)")

	return append(stmts, sb.String()), nil
}

func (b *Base) AddColumnSQL(table string, col schema.Column, allowNotNull bool) ([]string, error) {
	def, err := b.columnDef(table, col, allowNotNull, false)
	if err != nil {
		return nil, err
	}
	var stmts []string
	if b.generator(col) == schema.Sequence {
		stmts = append(stmts, b.createSequenceSQL(table, col))
	}
	stmt := "ALTER TABLE " + b.cfg.Quote(table) + " ADD COLUMN " + def
	return append(stmts, stmt), nil
}

func (b *Base) unsupportedAlteration(table string, from, to schema.Column, what string) *alerr.Error {
	return alerr.New(alerr.ErrDialectDoesNotSupportAlteration, "dialect cannot alter "+what).
		With("dialect", b.cfg.Name).
		WithTable(table).
		WithColumn(from.Name).
		With("to", to.String())
}

// AlterColumnSQL emits one statement per changed aspect: rename, type,
// nullability, default.
func (b *Base) AlterColumnSQL(table string, from, to schema.Column) ([]string, error) {
	if b.generator(from) != b.generator(to) {
		return nil, b.unsupportedAlteration(table, from, to, "the key generator")
	}

	prefix := "ALTER TABLE " + b.cfg.Quote(table)
	var stmts []string

	if from.Name != to.Name {
		stmts = append(stmts, prefix+" RENAME COLUMN "+b.cfg.Quote(from.Name)+" TO "+b.cfg.Quote(to.Name))
	}
	column := prefix + " ALTER COLUMN " + b.cfg.Quote(to.Name)

	changed, typ, err := b.typeChanged(from, to)
	if err != nil {
		return nil, err
	}
	if changed {
		stmts = append(stmts, column+" "+b.cfg.AlterType+" "+typ)
	}

	if from.NotNull != to.NotNull {
		if to.NotNull {
			stmts = append(stmts, column+" SET NOT NULL")
		} else {
			stmts = append(stmts, column+" DROP NOT NULL")
		}
	}

	if b.generator(to) == schema.NoGenerator && defaultChanged(from, to) {
		if to.HasDefault {
			stmts = append(stmts, column+" SET DEFAULT "+b.defaultSQL(to))
		} else {
			stmts = append(stmts, column+" DROP DEFAULT")
		}
	}
	return stmts, nil
}

// typeChanged compares the rendered types, so a change that renders the
// same type name produces no statement.
func (b *Base) typeChanged(from, to schema.Column) (bool, string, error) {
	newType, err := b.TypeSQL(to)
	if err != nil {
		return false, "", err
	}
	oldType, err := b.TypeSQL(from)
	if err != nil {
		return true, newType, nil
	}
	return oldType != newType, newType, nil
}

func defaultChanged(from, to schema.Column) bool {
	return from.HasDefault != to.HasDefault || from.Default != to.Default
}

func (b *Base) DropColumnSQL(table, column string) ([]string, error) {
	return []string{"ALTER TABLE " + b.cfg.Quote(table) + " DROP COLUMN " + b.cfg.Quote(column)}, nil
}

func (b *Base) RenameTableSQL(from, to string) ([]string, error) {
	return []string{"ALTER TABLE " + b.cfg.Quote(from) + " RENAME TO " + b.cfg.Quote(to)}, nil
}

func (b *Base) InsertSQL(table string, columns []string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.cfg.Quote(table))
	sb.WriteString(" (")
	writeQuotedList(&sb, columns, b.cfg.Quote)
	sb.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.cfg.Placeholder(i + 1))
	}
	sb.WriteString(")")
	return sb.String()
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

func (b *Base) HasRows(ctx context.Context, ex Executor, table string) (bool, error) {
	query := "SELECT 1 FROM " + b.cfg.Quote(table)
	rows, err := ex.QueryContext(ctx, query)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

func (b *Base) HasTable(ctx context.Context, ex Executor, table string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM information_schema.tables WHERE table_name = %s%s",
		b.cfg.Placeholder(1), b.cfg.SchemaFilter)
	return countTables(ctx, ex, table, query)
}

func countTables(ctx context.Context, ex Executor, table, query string) (bool, error) {
	var n int
	if err := ex.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, alerr.Wrap(alerr.ErrAddendaCount, err, "cannot look up table").
			WithTable(table).
			WithSQL(query)
	}
	return n > 0, nil
}

func (b *Base) VerifyColumn(ctx context.Context, ex Executor, table string, col schema.Column) error {
	query := fmt.Sprintf(
		"SELECT is_nullable FROM information_schema.columns WHERE table_name = %s AND column_name = %s%s",
		b.cfg.Placeholder(1), b.cfg.Placeholder(2), b.cfg.SchemaFilter,
	)
	var nullable string
	err := ex.QueryRowContext(ctx, query, table, col.Name).Scan(&nullable)
	if errors.Is(err, sql.ErrNoRows) {
		return columnNotFound(table, col)
	}
	if err != nil {
		return alerr.WrapSQL(alerr.ErrVerifyColumn, err, "verify column", table, col.Name).WithSQL(query)
	}
	return checkNullability(table, col, strings.EqualFold(nullable, "NO"))
}

func columnNotFound(table string, col schema.Column) error {
	return alerr.New(alerr.ErrColumnMissing, "column does not exist in the database").
		WithTable(table).
		WithColumn(col.Name)
}

func checkNullability(table string, col schema.Column, notNull bool) error {
	if col.NotNull == notNull {
		return nil
	}
	return alerr.New(alerr.ErrColumnMismatch, "column nullability differs from its definition").
		WithTable(table).
		WithColumn(col.Name).
		With("expected_not_null", col.NotNull).
		With("actual_not_null", notNull)
}

// -----------------------------------------------------------------------------
// Version tracking
// -----------------------------------------------------------------------------

func (b *Base) CreateAddendaTable(ctx context.Context, ex Executor, tr Tracking) error {
	typ, err := b.TypeSQL(schema.NewColumn(tr.Column, schema.Integer))
	if err != nil {
		return err
	}
	table := b.cfg.Quote(tr.Table)
	column := b.cfg.Quote(tr.Column)

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s %s NOT NULL)", table, column, typ)
	if _, err := ex.ExecContext(ctx, create); err != nil {
		return alerr.Wrap(alerr.ErrAddendaTable, err, "cannot create addenda table").
			WithTable(tr.Table).
			WithSQL(create)
	}

	count := "SELECT COUNT(*) FROM " + table
	var rows int
	if err := ex.QueryRowContext(ctx, count).Scan(&rows); err != nil {
		return alerr.Wrap(alerr.ErrAddendaTable, err, "cannot read addenda table").
			WithTable(tr.Table).
			WithSQL(count)
	}
	if rows > 0 {
		return nil
	}

	seed := fmt.Sprintf("INSERT INTO %s (%s) VALUES (0)", table, column)
	if _, err := ex.ExecContext(ctx, seed); err != nil {
		return alerr.Wrap(alerr.ErrAddendaTable, err, "cannot seed addenda table").
			WithTable(tr.Table).
			WithSQL(seed)
	}
	return nil
}

func (b *Base) AddendaCount(ctx context.Context, ex Executor, tr Tracking) (int, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", b.cfg.Quote(tr.Column), b.cfg.Quote(tr.Table))
	var n int
	err := ex.QueryRowContext(ctx, query).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, alerr.Wrap(alerr.ErrAddendaCount, err, "cannot read applied count").
			WithTable(tr.Table).
			WithColumn(tr.Column).
			WithSQL(query)
	}
	return n, nil
}

func (b *Base) Addendum(ctx context.Context, ex Executor, tr Tracking) error {
	column := b.cfg.Quote(tr.Column)
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s + 1", b.cfg.Quote(tr.Table), column, column)
	res, err := ex.ExecContext(ctx, stmt)
	if err != nil {
		return alerr.Wrap(alerr.ErrAddendum, err, "cannot advance applied count").
			WithTable(tr.Table).
			WithColumn(tr.Column).
			WithSQL(stmt)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return alerr.New(alerr.ErrAddendum, "addenda table must hold exactly one row").
			WithTable(tr.Table).
			With("rows", n)
	}
	return nil
}
