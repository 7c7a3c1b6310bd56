package dsl

import (
	"github.com/hlop3z/addenda/internal/engine"
	"github.com/hlop3z/addenda/internal/schema"
)

// -----------------------------------------------------------------------------
// Table creation
// -----------------------------------------------------------------------------

// TableCreation collects the columns and primary key of a new table. The
// table is validated and recorded on End.
type TableCreation interface {
	// Column adds a property with a column of the given type.
	Column(property string, t schema.Type) *Column[TableCreation]

	// ID adds an auto-generated integer "id" property and makes it the
	// primary key.
	ID() *Column[TableCreation]

	// String adds a VARCHAR column with a length.
	String(property string, length int) *Column[TableCreation]

	// Text adds an unbounded character column.
	Text(property string) *Column[TableCreation]

	Integer(property string) *Column[TableCreation]
	BigInt(property string) *Column[TableCreation]
	Boolean(property string) *Column[TableCreation]
	Date(property string) *Column[TableCreation]
	DateTime(property string) *Column[TableCreation]

	// Decimal adds a fixed-point column. Use for money.
	Decimal(property string, precision, scale int) *Column[TableCreation]

	// PrimaryKey sets the primary key from property names.
	PrimaryKey(properties ...string) TableCreation

	End() Creating
}

type tableCreation struct {
	unit       *unit
	alias      string
	table      string
	columns    []engine.PropertyColumn
	primaryKey []string
}

func (t *tableCreation) Column(property string, typ schema.Type) *Column[TableCreation] {
	return newColumn(t.unit.naming(property), typ, func(col schema.Column) TableCreation {
		t.columns = append(t.columns, engine.PropertyColumn{Property: property, Column: col})
		return t
	})
}

func (t *tableCreation) ID() *Column[TableCreation] {
	t.primaryKey = []string{"id"}
	return t.Column("id", schema.Integer).NotNull().Generated(schema.Preferred)
}

func (t *tableCreation) String(property string, length int) *Column[TableCreation] {
	return t.Column(property, schema.VarChar).Length(length)
}

func (t *tableCreation) Text(property string) *Column[TableCreation] {
	return t.Column(property, schema.LongVarChar)
}

func (t *tableCreation) Integer(property string) *Column[TableCreation] {
	return t.Column(property, schema.Integer)
}

func (t *tableCreation) BigInt(property string) *Column[TableCreation] {
	return t.Column(property, schema.BigInt)
}

func (t *tableCreation) Boolean(property string) *Column[TableCreation] {
	return t.Column(property, schema.Boolean)
}

func (t *tableCreation) Date(property string) *Column[TableCreation] {
	return t.Column(property, schema.Date)
}

func (t *tableCreation) DateTime(property string) *Column[TableCreation] {
	return t.Column(property, schema.Timestamp)
}

func (t *tableCreation) Decimal(property string, precision, scale int) *Column[TableCreation] {
	return t.Column(property, schema.Decimal).Precision(precision).Scale(scale)
}

func (t *tableCreation) PrimaryKey(properties ...string) TableCreation {
	t.primaryKey = properties
	return t
}

func (t *tableCreation) End() Creating {
	t.unit.add(engine.TableCreate{
		Alias:      t.alias,
		Table:      t.table,
		Columns:    t.columns,
		PrimaryKey: t.primaryKey,
	})
	return t.unit
}

// -----------------------------------------------------------------------------
// Table alteration
// -----------------------------------------------------------------------------

// TableAlteration changes one existing table. Each call is validated and
// recorded as it is made.
type TableAlteration interface {
	// Add adds a property with a new column.
	Add(property string, t schema.Type) *Column[TableAlteration]

	// Alter changes the column of a property.
	Alter(property string) ColumnAlteration

	// Drop removes a property and its column.
	Drop(property string) TableAlteration

	// Rename renames the table. Aliases follow the table.
	Rename(table string) TableAlteration

	End() Altering
}

type tableAlteration struct {
	unit  *unit
	alias string
}

func (t *tableAlteration) Add(property string, typ schema.Type) *Column[TableAlteration] {
	return newColumn(t.unit.naming(property), typ, func(col schema.Column) TableAlteration {
		t.unit.add(engine.ColumnAdd{Alias: t.alias, Property: property, Column: col})
		return t
	})
}

func (t *tableAlteration) Alter(property string) ColumnAlteration {
	return &columnAlteration{parent: t, property: property}
}

func (t *tableAlteration) Drop(property string) TableAlteration {
	t.unit.add(engine.ColumnDrop{Alias: t.alias, Property: property})
	return t
}

// Rename keeps addressing the entity after the move: when the alias was
// spelled like the old table it now resolves under the new name.
func (t *tableAlteration) Rename(table string) TableAlteration {
	before := t.alias
	t.unit.add(engine.TableRename{Alias: t.alias, To: table})
	if _, ok := t.unit.scratch.AliasTable(before); !ok {
		t.alias = table
	}
	return t
}

func (t *tableAlteration) End() Altering {
	return t.unit
}

// -----------------------------------------------------------------------------
// Column alteration
// -----------------------------------------------------------------------------

// ColumnAlteration collects changes to one column. The type may change and
// the column may be renamed in the same alteration. It is recorded on End.
type ColumnAlteration interface {
	Rename(column string) ColumnAlteration
	Type(t schema.Type) ColumnAlteration
	Length(n int) ColumnAlteration
	Precision(n int) ColumnAlteration
	Scale(n int) ColumnAlteration
	NotNull(notNull bool) ColumnAlteration
	Default(v any) ColumnAlteration
	DropDefault() ColumnAlteration
	Generated(g schema.Generator) ColumnAlteration
	End() TableAlteration
}

type columnAlteration struct {
	parent   *tableAlteration
	property string
	patch    engine.ColumnPatch
}

func (c *columnAlteration) Rename(column string) ColumnAlteration {
	c.patch.Name = &column
	return c
}

func (c *columnAlteration) Type(t schema.Type) ColumnAlteration {
	c.patch.Type = &t
	return c
}

func (c *columnAlteration) Length(n int) ColumnAlteration {
	c.patch.Length = &n
	return c
}

func (c *columnAlteration) Precision(n int) ColumnAlteration {
	c.patch.Precision = &n
	return c
}

func (c *columnAlteration) Scale(n int) ColumnAlteration {
	c.patch.Scale = &n
	return c
}

func (c *columnAlteration) NotNull(notNull bool) ColumnAlteration {
	c.patch.NotNull = &notNull
	return c
}

func (c *columnAlteration) Default(v any) ColumnAlteration {
	c.patch.Default = v
	c.patch.DropDefault = false
	return c
}

func (c *columnAlteration) DropDefault() ColumnAlteration {
	c.patch.Default = nil
	c.patch.DropDefault = true
	return c
}

func (c *columnAlteration) Generated(g schema.Generator) ColumnAlteration {
	c.patch.Generator = &g
	return c
}

func (c *columnAlteration) End() TableAlteration {
	c.parent.unit.add(engine.ColumnAlteration{
		Alias:    c.parent.alias,
		Property: c.property,
		Patch:    c.patch,
	})
	return c.parent
}
