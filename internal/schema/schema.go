package schema

import (
	"sort"

	"github.com/hlop3z/addenda/internal/alerr"
)

// Schema is the in-memory tracking schema: table name -> Entity and
// alias -> table name. It is owned by one migration set and is not safe for
// concurrent mutation.
type Schema struct {
	entities map[string]*Entity
	aliases  map[string]string
}

// New creates an empty tracking schema.
func New() *Schema {
	return &Schema{
		entities: make(map[string]*Entity),
		aliases:  make(map[string]string),
	}
}

// Entity looks up an entity by alias. An unknown alias fails with
// ErrEntityMissing; an alias whose table is gone fails with ErrTableMissing.
func (s *Schema) Entity(alias string) (*Entity, error) {
	table, ok := s.aliases[alias]
	if !ok {
		return nil, alerr.New(alerr.ErrEntityMissing, "entity does not exist").
			WithAlias(alias).
			WithHelp(alerr.SuggestSimilar(alias, s.Aliases()))
	}
	e, ok := s.entities[table]
	if !ok {
		return nil, alerr.New(alerr.ErrTableMissing, "entity refers to a missing table").
			WithAlias(alias).
			WithTable(table)
	}
	return e, nil
}

// Table looks up an entity by table name.
func (s *Schema) Table(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Create registers a new entity under a new alias/table pair.
func (s *Schema) Create(alias, table string) (*Entity, error) {
	if _, ok := s.aliases[alias]; ok {
		return nil, alerr.New(alerr.ErrEntityExists, "entity already exists").
			WithAlias(alias)
	}
	if _, ok := s.entities[table]; ok {
		return nil, alerr.New(alerr.ErrTableExists, "table already exists").
			WithAlias(alias).
			WithTable(table)
	}
	e := NewEntity(table)
	s.entities[table] = e
	s.aliases[alias] = table
	return e, nil
}

// Add registers a fully built entity under alias. It fails like Create and
// leaves the schema untouched on error.
func (s *Schema) Add(alias string, e *Entity) error {
	if _, ok := s.aliases[alias]; ok {
		return alerr.New(alerr.ErrEntityExists, "entity already exists").
			WithAlias(alias)
	}
	if _, ok := s.entities[e.Table]; ok {
		return alerr.New(alerr.ErrTableExists, "table already exists").
			WithAlias(alias).
			WithTable(e.Table)
	}
	s.entities[e.Table] = e
	s.aliases[alias] = e.Table
	return nil
}

// RenameAlias moves an alias to a new name. The destination must be free.
func (s *Schema) RenameAlias(from, to string) error {
	table, ok := s.aliases[from]
	if !ok {
		return alerr.New(alerr.ErrEntityMissing, "entity does not exist").
			WithAlias(from).
			WithHelp(alerr.SuggestSimilar(from, s.Aliases()))
	}
	if from == to {
		return nil
	}
	if _, ok := s.aliases[to]; ok {
		return alerr.New(alerr.ErrEntityExists, "entity already exists").
			WithAlias(to)
	}
	delete(s.aliases, from)
	s.aliases[to] = table
	return nil
}

// RenameTable moves an entity to a new table name and retargets every alias
// that pointed at the old table. An alias spelled like the old table name is
// renamed to the new table name, so the stale name stops resolving.
//
// All checks run before any mutation; the rename is applied in one step.
func (s *Schema) RenameTable(from, to string) error {
	e, ok := s.entities[from]
	if !ok {
		return alerr.New(alerr.ErrTableMissing, "table does not exist").
			WithTable(from).
			WithHelp(alerr.SuggestSimilar(from, s.TableNames()))
	}
	if from == to {
		return nil
	}
	if _, ok := s.entities[to]; ok {
		return alerr.New(alerr.ErrTableExists, "table already exists").
			WithTable(to)
	}
	if t, ok := s.aliases[from]; ok && t == from {
		if other, taken := s.aliases[to]; taken && other != from {
			return alerr.New(alerr.ErrEntityExists, "entity already exists").
				WithAlias(to).
				WithTable(to)
		}
	}

	delete(s.entities, from)
	e.Table = to
	s.entities[to] = e

	for alias, table := range s.aliases {
		if table == from {
			s.aliases[alias] = to
		}
	}
	if t, ok := s.aliases[from]; ok && t == to {
		delete(s.aliases, from)
		s.aliases[to] = to
	}
	return nil
}

// Aliases returns all aliases in sorted order.
func (s *Schema) Aliases() []string {
	names := make([]string, 0, len(s.aliases))
	for name := range s.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AliasTable returns the table an alias points at.
func (s *Schema) AliasTable(alias string) (string, bool) {
	t, ok := s.aliases[alias]
	return t, ok
}

// TableNames returns all table names in sorted order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.entities))
	for name := range s.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of tracked tables.
func (s *Schema) Len() int {
	return len(s.entities)
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	c := New()
	for name, e := range s.entities {
		c.entities[name] = e.Clone()
	}
	for alias, table := range s.aliases {
		c.aliases[alias] = table
	}
	return c
}
