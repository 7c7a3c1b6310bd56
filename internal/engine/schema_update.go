package engine

import (
	"slices"
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
)

// SchemaUpdate validates one change against the tracking schema, applies it,
// and returns the deferred database update for it. Validation failures are
// raised here, before any statement reaches the database.
type SchemaUpdate interface {
	Execute(s *schema.Schema) (DatabaseUpdate, error)
}

// PropertyColumn pairs a property name with its column definition.
type PropertyColumn struct {
	Property string
	Column   schema.Column
}

// TableCreate registers a new entity and creates its table.
type TableCreate struct {
	Alias      string
	Table      string
	Columns    []PropertyColumn
	PrimaryKey []string // property names
}

func (u TableCreate) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	if len(u.Columns) == 0 {
		return nil, alerr.New(alerr.ErrNoColumns, "table has no columns").
			WithAlias(u.Alias).
			WithTable(u.Table)
	}

	e := schema.NewEntity(u.Table)
	for _, pc := range u.Columns {
		if err := e.AddProperty(pc.Property, pc.Column); err != nil {
			return nil, withAlias(err, u.Alias)
		}
	}
	if len(u.PrimaryKey) > 0 {
		if err := e.SetPrimaryKey(u.PrimaryKey...); err != nil {
			return nil, withAlias(err, u.Alias)
		}
	}
	if err := s.Add(u.Alias, e); err != nil {
		return nil, err
	}

	table, cols, pk := e.Table, e.Columns(), slices.Clone(e.PrimaryKey)
	return &ddl{
		op:    "create table",
		code:  alerr.ErrCreateTable,
		table: table,
		render: func(d dialect.Dialect) ([]string, error) {
			return d.CreateTableSQL(table, cols, pk)
		},
	}, nil
}

// ColumnAdd adds a property and its column to an existing entity.
type ColumnAdd struct {
	Alias    string
	Property string
	Column   schema.Column
}

func (u ColumnAdd) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	if err := e.AddProperty(u.Property, u.Column); err != nil {
		return nil, withAlias(err, u.Alias)
	}
	return newAddColumn(e.Table, u.Column), nil
}

// ColumnPatch lists the column attributes an alteration changes. Nil fields
// are left as they are.
type ColumnPatch struct {
	Name        *string
	Type        *schema.Type
	Length      *int
	Precision   *int
	Scale       *int
	NotNull     *bool
	Default     any // nil keeps the current default
	DropDefault bool
	Generator   *schema.Generator
}

// Apply returns col with the patch applied. A type change resets
// length, precision and scale before the explicit sizes are applied.
func (p ColumnPatch) Apply(col schema.Column) schema.Column {
	if p.Name != nil {
		col = col.Renamed(*p.Name)
	}
	if p.Type != nil && *p.Type != col.Type {
		col = col.WithType(*p.Type)
	}
	if p.Length != nil {
		col = col.WithLength(*p.Length)
	}
	if p.Precision != nil {
		col = col.WithPrecision(*p.Precision)
	}
	if p.Scale != nil {
		col = col.WithScale(*p.Scale)
	}
	if p.NotNull != nil {
		col = col.WithNotNull(*p.NotNull)
	}
	switch {
	case p.DropDefault:
		col = col.WithoutDefault()
	case p.Default != nil:
		col = col.WithDefault(p.Default)
	}
	if p.Generator != nil {
		col = col.WithGenerator(*p.Generator)
	}
	return col
}

// ColumnAlteration changes a property's column, possibly renaming it.
// The statement targets the old column name.
type ColumnAlteration struct {
	Alias    string
	Property string
	Patch    ColumnPatch
}

func (u ColumnAlteration) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	from, err := e.ColumnFor(u.Property)
	if err != nil {
		return nil, withAlias(err, u.Alias)
	}
	to := u.Patch.Apply(from)
	if err := e.ReplaceColumn(u.Property, to); err != nil {
		return nil, withAlias(err, u.Alias)
	}

	table := e.Table
	return &ddl{
		op:     "alter column",
		code:   alerr.ErrAlterColumn,
		table:  table,
		column: from.Name,
		render: func(d dialect.Dialect) ([]string, error) {
			return d.AlterColumnSQL(table, from, to)
		},
	}, nil
}

// ColumnDrop removes a property and drops its column.
type ColumnDrop struct {
	Alias    string
	Property string
}

func (u ColumnDrop) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	col, err := e.RemoveProperty(u.Property)
	if err != nil {
		return nil, withAlias(err, u.Alias)
	}

	table := e.Table
	return &ddl{
		op:     "drop column",
		code:   alerr.ErrDropColumn,
		table:  table,
		column: col.Name,
		render: func(d dialect.Dialect) ([]string, error) {
			return d.DropColumnSQL(table, col.Name)
		},
	}, nil
}

// TableRename renames the table behind an alias. Every alias pointing at
// the old table follows it.
type TableRename struct {
	Alias string
	To    string
}

func (u TableRename) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	from := e.Table
	if err := s.RenameTable(from, u.To); err != nil {
		return nil, withAlias(err, u.Alias)
	}

	to := u.To
	return &ddl{
		op:    "rename table",
		code:  alerr.ErrRenameTable,
		table: from,
		render: func(d dialect.Dialect) ([]string, error) {
			if from == to {
				return nil, nil
			}
			return d.RenameTableSQL(from, to)
		},
	}, nil
}

// AliasRename renames an alias. It has no database effect.
type AliasRename struct {
	From string
	To   string
}

func (u AliasRename) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	if err := s.RenameAlias(u.From, u.To); err != nil {
		return nil, err
	}
	return noop{what: "rename alias " + u.From + " to " + u.To}, nil
}

// Insertion inserts one row, naming columns by property.
type Insertion struct {
	Alias      string
	Properties []string
	Values     []any
}

func (u Insertion) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	if len(u.Properties) != len(u.Values) {
		return nil, alerr.New(alerr.ErrInsertValuesMismatch, "insert column and value counts differ").
			WithAlias(u.Alias).
			With("columns", len(u.Properties)).
			With("values", len(u.Values))
	}
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	if len(u.Properties) == 0 {
		return nil, alerr.New(alerr.ErrNoColumns, "insert names no columns").
			WithAlias(u.Alias).
			WithTable(e.Table)
	}

	cols := make([]string, len(u.Properties))
	for i, p := range u.Properties {
		col, err := e.ColumnFor(p)
		if err != nil {
			return nil, withAlias(err, u.Alias)
		}
		cols[i] = col.Name
	}
	return &insert{table: e.Table, columns: cols, values: slices.Clone(u.Values)}, nil
}

// Execution runs a caller-supplied statement. The tracking schema is not
// touched.
type Execution struct {
	SQL  string
	Args []any
}

func (u Execution) Execute(*schema.Schema) (DatabaseUpdate, error) {
	if strings.TrimSpace(u.SQL) == "" {
		return nil, alerr.New(alerr.ErrExecute, "statement is empty")
	}
	return &execute{stmt: Statement{SQL: u.SQL, Args: slices.Clone(u.Args)}}, nil
}

// ColumnVerification asserts that a property exists and, when Type is set,
// has that type. The database update checks the live column.
type ColumnVerification struct {
	Alias    string
	Property string
	Type     schema.Type // schema.Unknown skips the type check
}

func (u ColumnVerification) Execute(s *schema.Schema) (DatabaseUpdate, error) {
	e, err := s.Entity(u.Alias)
	if err != nil {
		return nil, err
	}
	col, err := e.ColumnFor(u.Property)
	if err != nil {
		return nil, withAlias(err, u.Alias)
	}
	if u.Type != schema.Unknown && u.Type != col.Type {
		return nil, alerr.New(alerr.ErrColumnMismatch, "column type differs").
			WithAlias(u.Alias).
			WithTable(e.Table).
			WithColumn(col.Name).
			With("expected", u.Type.String()).
			With("actual", col.Type.String())
	}
	return &verify{table: e.Table, col: col}, nil
}

// withAlias adds the alias to a coded error raised by the entity, which only
// knows its table.
func withAlias(err error, alias string) error {
	return alerr.Annotate(err, "alias", alias)
}
