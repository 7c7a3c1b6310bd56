package schema

import "fmt"

// Column describes one table column. It is a pure value: every modifier
// returns a changed copy, so a builder and the tracking schema never share
// a mutable instance.
type Column struct {
	Name       string
	Type       Type
	Length     int // 0 = unspecified
	Precision  int // 0 = unspecified
	Scale      int // 0 = unspecified
	NotNull    bool
	Default    string // literal text, meaningful only when HasDefault
	HasDefault bool
	Generator  Generator
}

// NewColumn returns a nullable column without default or generator.
func NewColumn(name string, t Type) Column {
	return Column{Name: name, Type: t}
}

// Renamed returns a copy with a new name.
func (c Column) Renamed(name string) Column {
	c.Name = name
	return c
}

// WithType returns a copy with a new type. Length, precision and scale are
// reset because they belong to the previous type.
func (c Column) WithType(t Type) Column {
	c.Type = t
	c.Length, c.Precision, c.Scale = 0, 0, 0
	return c
}

// WithLength returns a copy with the given length.
func (c Column) WithLength(n int) Column {
	c.Length = n
	return c
}

// WithPrecision returns a copy with the given precision.
func (c Column) WithPrecision(n int) Column {
	c.Precision = n
	return c
}

// WithScale returns a copy with the given scale.
func (c Column) WithScale(n int) Column {
	c.Scale = n
	return c
}

// WithNotNull returns a copy with the not-null flag set as given.
func (c Column) WithNotNull(notNull bool) Column {
	c.NotNull = notNull
	return c
}

// WithDefault returns a copy with a default value. Non-string values are
// formatted with fmt; booleans become "true"/"false".
func (c Column) WithDefault(v any) Column {
	c.Default = FormatValue(v)
	c.HasDefault = true
	return c
}

// WithoutDefault returns a copy with no default value.
func (c Column) WithoutDefault() Column {
	c.Default = ""
	c.HasDefault = false
	return c
}

// WithGenerator returns a copy with the given key generator.
func (c Column) WithGenerator(g Generator) Column {
	c.Generator = g
	return c
}

// Equal reports whether two columns have the same definition.
func (c Column) Equal(o Column) bool {
	return c == o
}

// String returns a compact description, e.g. "age INTEGER NOT NULL DEFAULT 0".
func (c Column) String() string {
	s := c.Name + " " + c.Type.String()
	switch {
	case c.Precision > 0 && c.Scale > 0:
		s += fmt.Sprintf("(%d,%d)", c.Precision, c.Scale)
	case c.Precision > 0:
		s += fmt.Sprintf("(%d)", c.Precision)
	case c.Length > 0:
		s += fmt.Sprintf("(%d)", c.Length)
	}
	if c.NotNull {
		s += " NOT NULL"
	}
	if c.HasDefault {
		s += " DEFAULT " + c.Default
	}
	if c.Generator != NoGenerator {
		s += " " + c.Generator.String()
	}
	return s
}

// FormatValue renders a literal value as the text stored for defaults.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
