package schema

import (
	"slices"
	"sort"

	"github.com/hlop3z/addenda/internal/alerr"
)

// Entity is the tracked shape of one table: its name, primary key, the
// property -> column mapping and the ordered column definitions.
//
// Invariants: every mapped column exists in columns; property names and
// column names are unique within the entity.
type Entity struct {
	Table      string
	PrimaryKey []string // column names

	properties map[string]string // property -> column
	order      []string          // column names in render order
	columns    map[string]Column // column name -> definition
}

// NewEntity creates an empty entity for the given table.
func NewEntity(table string) *Entity {
	return &Entity{
		Table:      table,
		properties: make(map[string]string),
		columns:    make(map[string]Column),
	}
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := NewEntity(e.Table)
	c.PrimaryKey = slices.Clone(e.PrimaryKey)
	c.order = slices.Clone(e.order)
	for k, v := range e.properties {
		c.properties[k] = v
	}
	for k, v := range e.columns {
		c.columns[k] = v
	}
	return c
}

// Columns returns the column definitions in render order.
func (e *Entity) Columns() []Column {
	cols := make([]Column, 0, len(e.order))
	for _, name := range e.order {
		cols = append(cols, e.columns[name])
	}
	return cols
}

// Column returns the column definition with the given column name.
func (e *Entity) Column(name string) (Column, bool) {
	c, ok := e.columns[name]
	return c, ok
}

// Property returns the column name mapped to a property.
func (e *Entity) Property(property string) (string, bool) {
	c, ok := e.properties[property]
	return c, ok
}

// PropertyNames returns the property names in sorted order.
func (e *Entity) PropertyNames() []string {
	names := make([]string, 0, len(e.properties))
	for name := range e.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PropertyOf returns the property mapped to a column name.
func (e *Entity) PropertyOf(column string) (string, bool) {
	for p, c := range e.properties {
		if c == column {
			return p, true
		}
	}
	return "", false
}

// ColumnFor returns the column definition of a property.
func (e *Entity) ColumnFor(property string) (Column, error) {
	name, ok := e.properties[property]
	if !ok {
		return Column{}, e.propertyMissing(property)
	}
	col, ok := e.columns[name]
	if !ok {
		return Column{}, alerr.New(alerr.ErrColumnMissing, "property maps to an undefined column").
			WithTable(e.Table).
			WithProperty(property).
			WithColumn(name)
	}
	return col, nil
}

// AddProperty maps a new property to a new column.
func (e *Entity) AddProperty(property string, col Column) error {
	if _, ok := e.properties[property]; ok {
		return alerr.New(alerr.ErrPropertyExists, "property already exists").
			WithTable(e.Table).
			WithProperty(property)
	}
	if _, ok := e.columns[col.Name]; ok {
		return alerr.New(alerr.ErrColumnExists, "column already exists").
			WithTable(e.Table).
			WithColumn(col.Name)
	}
	e.properties[property] = col.Name
	e.columns[col.Name] = col
	e.order = append(e.order, col.Name)
	return nil
}

// ReplaceColumn stores a new definition for a property's column. When the
// column is renamed, the old column key is removed, the property is pointed
// at the new name and the new name must not collide with another column.
// The column keeps its position.
func (e *Entity) ReplaceColumn(property string, col Column) error {
	oldName, ok := e.properties[property]
	if !ok {
		return e.propertyMissing(property)
	}
	if col.Name != oldName {
		if _, taken := e.columns[col.Name]; taken {
			return alerr.New(alerr.ErrColumnExists, "column already exists").
				WithTable(e.Table).
				WithProperty(property).
				WithColumn(col.Name)
		}
		delete(e.columns, oldName)
		if i := slices.Index(e.order, oldName); i >= 0 {
			e.order[i] = col.Name
		}
		if i := slices.Index(e.PrimaryKey, oldName); i >= 0 {
			e.PrimaryKey[i] = col.Name
		}
		e.properties[property] = col.Name
	}
	e.columns[col.Name] = col
	return nil
}

// RemoveProperty removes a property and its column, returning the column.
func (e *Entity) RemoveProperty(property string) (Column, error) {
	name, ok := e.properties[property]
	if !ok {
		return Column{}, e.propertyMissing(property)
	}
	col := e.columns[name]
	delete(e.properties, property)
	delete(e.columns, name)
	e.order = slices.DeleteFunc(e.order, func(n string) bool { return n == name })
	e.PrimaryKey = slices.DeleteFunc(e.PrimaryKey, func(n string) bool { return n == name })
	return col, nil
}

// SetPrimaryKey defines the primary key from property names.
func (e *Entity) SetPrimaryKey(properties ...string) error {
	if len(e.PrimaryKey) > 0 {
		return alerr.New(alerr.ErrPrimaryKeyExists, "primary key already defined").
			WithTable(e.Table).
			With("primary_key", e.PrimaryKey)
	}
	cols := make([]string, 0, len(properties))
	for _, p := range properties {
		name, ok := e.properties[p]
		if !ok {
			return alerr.New(alerr.ErrPrimaryKeyColumnMissing, "primary key references an undefined property").
				WithTable(e.Table).
				WithProperty(p).
				WithHelp(alerr.SuggestSimilar(p, e.PropertyNames()))
		}
		cols = append(cols, name)
	}
	e.PrimaryKey = cols
	return nil
}

func (e *Entity) propertyMissing(property string) *alerr.Error {
	return alerr.New(alerr.ErrPropertyMissing, "property does not exist").
		WithTable(e.Table).
		WithProperty(property).
		WithHelp(alerr.SuggestSimilar(property, e.PropertyNames()))
}
