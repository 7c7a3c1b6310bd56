package dsl

import (
	"slices"

	"github.com/hlop3z/addenda/internal/engine"
	"github.com/hlop3z/addenda/internal/schema"
)

// Verification asserts columns of one entity against the live database.
type Verification interface {
	// Column asserts the property exists. A type other than schema.Unknown
	// must also match.
	Column(property string, t schema.Type) Verification
	End() Asserting
}

type verification struct {
	unit  *unit
	alias string
}

func (v *verification) Column(property string, t schema.Type) Verification {
	v.unit.add(engine.ColumnVerification{Alias: v.alias, Property: property, Type: t})
	return v
}

func (v *verification) End() Asserting {
	return v.unit
}

// Insertion inserts rows into one entity. Columns names the properties,
// and each Values call inserts one row.
type Insertion interface {
	Columns(properties ...string) Insertion
	Values(values ...any) Insertion
	End() Populating
}

type insertion struct {
	unit       *unit
	alias      string
	properties []string
}

func (i *insertion) Columns(properties ...string) Insertion {
	i.properties = slices.Clone(properties)
	return i
}

func (i *insertion) Values(values ...any) Insertion {
	i.unit.add(engine.Insertion{Alias: i.alias, Properties: i.properties, Values: slices.Clone(values)})
	return i
}

func (i *insertion) End() Populating {
	return i.unit
}
