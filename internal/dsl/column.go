package dsl

import "github.com/hlop3z/addenda/internal/schema"

// Column builds one column definition and hands it back to its parent
// builder on End. P is the parent's state, so End returns to the builder
// the column was started from.
type Column[P any] struct {
	col  schema.Column
	done func(schema.Column) P
}

func newColumn[P any](name string, t schema.Type, done func(schema.Column) P) *Column[P] {
	return &Column[P]{col: schema.NewColumn(name, t), done: done}
}

// Named sets the column name when it differs from the property name.
func (c *Column[P]) Named(name string) *Column[P] {
	c.col = c.col.Renamed(name)
	return c
}

// Length sets the length of a character or binary column.
func (c *Column[P]) Length(n int) *Column[P] {
	c.col = c.col.WithLength(n)
	return c
}

// Precision sets the precision of a numeric column.
func (c *Column[P]) Precision(n int) *Column[P] {
	c.col = c.col.WithPrecision(n)
	return c
}

// Scale sets the scale of a numeric column.
func (c *Column[P]) Scale(n int) *Column[P] {
	c.col = c.col.WithScale(n)
	return c
}

// NotNull marks the column NOT NULL.
func (c *Column[P]) NotNull() *Column[P] {
	c.col = c.col.WithNotNull(true)
	return c
}

// Nullable allows NULL values. This is the default.
func (c *Column[P]) Nullable() *Column[P] {
	c.col = c.col.WithNotNull(false)
	return c
}

// Default sets the default value.
func (c *Column[P]) Default(v any) *Column[P] {
	c.col = c.col.WithDefault(v)
	return c
}

// Generated sets the key generation strategy.
func (c *Column[P]) Generated(g schema.Generator) *Column[P] {
	c.col = c.col.WithGenerator(g)
	return c
}

// End finishes the column and returns to the parent builder.
func (c *Column[P]) End() P {
	return c.done(c.col)
}
