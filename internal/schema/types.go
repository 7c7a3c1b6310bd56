// Package schema holds the tracking model of the migration engine: column
// values, entities and the alias-aware schema that mirrors the cumulative
// effect of every migration unit defined so far.
//
// The schema is never persisted. It is rebuilt by replaying migration units
// each time the engine starts.
package schema

import (
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
)

// -----------------------------------------------------------------------------
// Type - portable SQL type tag
// -----------------------------------------------------------------------------

// Type is an abstract SQL type tag. Dialects translate it to a type name.
type Type int

const (
	Unknown Type = iota
	Bit
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	Float
	Real
	Double
	Numeric
	Decimal
	Char
	VarChar
	LongVarChar
	Clob
	Date
	Time
	Timestamp
	Binary
	VarBinary
	LongVarBinary
	Blob
)

var typeNames = map[Type]string{
	Unknown:       "UNKNOWN",
	Bit:           "BIT",
	Boolean:       "BOOLEAN",
	TinyInt:       "TINYINT",
	SmallInt:      "SMALLINT",
	Integer:       "INTEGER",
	BigInt:        "BIGINT",
	Float:         "FLOAT",
	Real:          "REAL",
	Double:        "DOUBLE",
	Numeric:       "NUMERIC",
	Decimal:       "DECIMAL",
	Char:          "CHAR",
	VarChar:       "VARCHAR",
	LongVarChar:   "LONGVARCHAR",
	Clob:          "CLOB",
	Date:          "DATE",
	Time:          "TIME",
	Timestamp:     "TIMESTAMP",
	Binary:        "BINARY",
	VarBinary:     "VARBINARY",
	LongVarBinary: "LONGVARBINARY",
	Blob:          "BLOB",
}

// Types returns every known type tag in declaration order.
func Types() []Type {
	types := make([]Type, 0, len(typeNames)-1)
	for t := Bit; t <= Blob; t++ {
		types = append(types, t)
	}
	return types
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return typeNames[Unknown]
}

// ParseType parses a type tag name, case-insensitively.
// Common aliases (int, string, text, bool, datetime) are accepted.
func ParseType(name string) (Type, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "INT":
		return Integer, nil
	case "STRING":
		return VarChar, nil
	case "TEXT":
		return LongVarChar, nil
	case "BOOL":
		return Boolean, nil
	case "DATETIME":
		return Timestamp, nil
	}
	for t, n := range typeNames {
		if t != Unknown && n == upper {
			return t, nil
		}
	}
	return Unknown, alerr.New(alerr.ErrDialectDoesNotSupportType, "unknown column type").
		With("type", name)
}

// IsTextual reports whether values of the type are character data.
func (t Type) IsTextual() bool {
	switch t {
	case Char, VarChar, LongVarChar, Clob:
		return true
	}
	return false
}

// IsTemporal reports whether the type is a date or time type.
func (t Type) IsTemporal() bool {
	switch t {
	case Date, Time, Timestamp:
		return true
	}
	return false
}

// IsNumeric reports whether the type holds numbers.
func (t Type) IsNumeric() bool {
	switch t {
	case TinyInt, SmallInt, Integer, BigInt, Float, Real, Double, Numeric, Decimal:
		return true
	}
	return false
}

// IsInteger reports whether the type is an integral number type.
func (t Type) IsInteger() bool {
	switch t {
	case TinyInt, SmallInt, Integer, BigInt:
		return true
	}
	return false
}

// QuotedDefault reports whether a default value of this type is rendered as
// a quoted string literal. Numeric and boolean defaults are rendered raw.
func (t Type) QuotedDefault() bool {
	return !t.IsNumeric() && t != Bit && t != Boolean
}

// -----------------------------------------------------------------------------
// Generator - key generation strategy
// -----------------------------------------------------------------------------

// Generator is the key-generation mode of a column.
type Generator int

const (
	// NoGenerator leaves key values to the application.
	NoGenerator Generator = iota
	// Preferred selects the dialect's preferred generation strategy.
	Preferred
	// AutoIncrement uses identity / auto-increment columns.
	AutoIncrement
	// Sequence draws values from a database sequence.
	Sequence
)

func (g Generator) String() string {
	switch g {
	case Preferred:
		return "preferred"
	case AutoIncrement:
		return "auto_increment"
	case Sequence:
		return "sequence"
	default:
		return "none"
	}
}

// ParseGenerator parses a generator name as written by String.
func ParseGenerator(name string) (Generator, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoGenerator, true
	case "preferred":
		return Preferred, true
	case "auto_increment", "autoincrement", "identity":
		return AutoIncrement, true
	case "sequence":
		return Sequence, true
	}
	return NoGenerator, false
}
