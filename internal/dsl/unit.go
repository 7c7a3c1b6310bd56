// Package dsl provides the builders that define migration units.
//
// A unit moves through fixed states: creating tables, altering them,
// asserting columns, populating rows, and finally committing. Each state is
// an interface exposing only the calls legal from it, and every transition
// returns a narrower interface, so an out-of-order call does not compile:
//
//	u := dsl.New(set)
//	u.Create("Person", "person").
//		String("firstName", 64).End().
//		String("lastName", 64).End().
//		End().
//		Insert("Person").Columns("firstName", "lastName").Values("Alan", "Gutierrez").End().
//		Commit()
//
// Every statement is validated against the schema as soon as it is issued.
// The first failure is kept and returned by Commit; a failed unit is not
// added to the set.
package dsl

import (
	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/engine"
	"github.com/hlop3z/addenda/internal/schema"
)

// Set receives committed units.
type Set interface {
	Append(p *engine.Patch) error
	Snapshot() *schema.Schema
	Len() int
}

// Committing finalizes a unit.
type Committing interface {
	// Commit appends the unit to the set. Calling it again returns the
	// first result.
	Commit() error
}

// Populating inserts rows and runs statements.
type Populating interface {
	Committing
	Insert(alias string) Insertion
	Execute(sql string, args ...any) Populating
}

// Asserting checks columns against the database.
type Asserting interface {
	Populating
	Verify(alias string) Verification
}

// Altering changes existing tables and aliases.
type Altering interface {
	Asserting
	Alter(alias string) TableAlteration
	RenameAlias(from, to string) Altering
}

// Creating creates tables. It is the state a new unit starts in.
type Creating interface {
	Altering
	Create(alias, table string) TableCreation
}

// Option configures a unit.
type Option func(*unit)

// WithName labels the unit in logs and errors.
func WithName(name string) Option {
	return func(u *unit) {
		u.patch.Name = name
	}
}

// WithDialect fixes the dialect used to apply the unit.
func WithDialect(d dialect.Dialect) Option {
	return func(u *unit) {
		u.patch.Dialect = d
	}
}

// WithNaming derives column names from property names, e.g.
// strutil.ToSnakeCase. By default the column is named like the property.
func WithNaming(fn func(property string) string) Option {
	return func(u *unit) {
		u.naming = fn
	}
}

// unit implements every state. The interfaces returned to the caller
// restrict which methods are reachable.
type unit struct {
	set       Set
	patch     *engine.Patch
	scratch   *schema.Schema
	naming    func(string) string
	err       error
	committed bool
}

// New starts a unit for set.
func New(set Set, opts ...Option) Creating {
	u := &unit{
		set:     set,
		patch:   engine.NewPatch("", nil),
		scratch: set.Snapshot(),
		naming:  func(p string) string { return p },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// add validates an update against the scratch schema and records it.
// After the first failure every later statement is ignored.
func (u *unit) add(update engine.SchemaUpdate) {
	if u.err != nil || u.committed {
		return
	}
	if _, err := update.Execute(u.scratch); err != nil {
		u.err = err
		return
	}
	u.patch.Append(update)
}

func (u *unit) Commit() error {
	if u.committed {
		return u.err
	}
	u.committed = true
	if u.err != nil {
		u.err = alerr.Annotate(u.err, "unit", u.set.Len()+1)
		if u.patch.Name != "" {
			u.err = alerr.Annotate(u.err, "patch", u.patch.Name)
		}
		return u.err
	}
	u.err = u.set.Append(u.patch)
	return u.err
}

func (u *unit) Create(alias, table string) TableCreation {
	return &tableCreation{unit: u, alias: alias, table: table}
}

func (u *unit) Alter(alias string) TableAlteration {
	return &tableAlteration{unit: u, alias: alias}
}

func (u *unit) RenameAlias(from, to string) Altering {
	u.add(engine.AliasRename{From: from, To: to})
	return u
}

func (u *unit) Verify(alias string) Verification {
	return &verification{unit: u, alias: alias}
}

func (u *unit) Insert(alias string) Insertion {
	return &insertion{unit: u, alias: alias}
}

func (u *unit) Execute(sql string, args ...any) Populating {
	u.add(engine.Execution{SQL: sql, Args: args})
	return u
}

// Definition issues the calls of one unit. It lets code outside this
// package, such as document loaders or generators, define units.
type Definition interface {
	Define(u Creating) Committing
}

// DefinitionFunc adapts a function to Definition.
type DefinitionFunc func(u Creating) Committing

func (f DefinitionFunc) Define(u Creating) Committing {
	return f(u)
}

// Define applies each definition as its own unit, in order, and stops at
// the first unit that fails to commit.
func Define(set Set, defs ...Definition) error {
	for _, def := range defs {
		if err := def.Define(New(set)).Commit(); err != nil {
			return err
		}
	}
	return nil
}
