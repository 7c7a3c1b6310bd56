// Package definition reads migration units from YAML documents.
//
// A document lists units in order. Each unit lists steps, and every step
// names exactly one statement:
//
//	units:
//	  - name: create person
//	    steps:
//	      - create:
//	          alias: Person
//	          table: person
//	          columns:
//	            - {property: id, type: INTEGER, not_null: true, generator: preferred}
//	            - {property: firstName, type: VARCHAR, length: 64}
//	          primary_key: [id]
//	      - insert:
//	          alias: Person
//	          columns: [firstName]
//	          values: [[Alan], [Grace]]
//
// Steps must follow the order of the unit states: create, then alter,
// rename_table and rename_alias, then verify, then insert and execute.
package definition

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
	"github.com/hlop3z/addenda/internal/strutil"
)

// Document is a parsed definition file.
type Document struct {
	// Naming is the default column naming convention for every unit.
	Naming string `yaml:"naming"`
	Units  []Unit `yaml:"units"`
}

// Unit is one migration unit.
type Unit struct {
	Name    string `yaml:"name"`
	Dialect string `yaml:"dialect"`
	Naming  string `yaml:"naming"`
	Steps   []Step `yaml:"steps"`
}

// Step holds exactly one statement.
type Step struct {
	Create      *Create      `yaml:"create"`
	Alter       *Alter       `yaml:"alter"`
	RenameTable *RenameTable `yaml:"rename_table"`
	RenameAlias *RenameAlias `yaml:"rename_alias"`
	Verify      *Verify      `yaml:"verify"`
	Insert      *Insert      `yaml:"insert"`
	Execute     *Execute     `yaml:"execute"`
}

type Create struct {
	Alias      string   `yaml:"alias"`
	Table      string   `yaml:"table"`
	Columns    []Column `yaml:"columns"`
	PrimaryKey []string `yaml:"primary_key"`
}

// Column defines a new column. Name defaults to the property name after
// the naming convention is applied.
type Column struct {
	Property  string `yaml:"property"`
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Length    int    `yaml:"length"`
	Precision int    `yaml:"precision"`
	Scale     int    `yaml:"scale"`
	NotNull   bool   `yaml:"not_null"`
	Default   any    `yaml:"default"`
	Generator string `yaml:"generator"`
}

// Alter applies ordered changes to one table.
type Alter struct {
	Alias   string   `yaml:"alias"`
	Changes []Change `yaml:"changes"`
}

// Change holds exactly one table change.
type Change struct {
	Add    *Column       `yaml:"add"`
	Alter  *ColumnChange `yaml:"alter"`
	Drop   string        `yaml:"drop"`
	Rename string        `yaml:"rename"`
}

// ColumnChange alters one column. Omitted fields are left unchanged.
type ColumnChange struct {
	Property    string `yaml:"property"`
	Rename      string `yaml:"rename"`
	Type        string `yaml:"type"`
	Length      *int   `yaml:"length"`
	Precision   *int   `yaml:"precision"`
	Scale       *int   `yaml:"scale"`
	NotNull     *bool  `yaml:"not_null"`
	Default     any    `yaml:"default"`
	DropDefault bool   `yaml:"drop_default"`
	Generator   string `yaml:"generator"`
}

type RenameTable struct {
	Alias string `yaml:"alias"`
	To    string `yaml:"to"`
}

type RenameAlias struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type Verify struct {
	Alias   string         `yaml:"alias"`
	Columns []VerifyColumn `yaml:"columns"`
}

// VerifyColumn asserts a property. An empty Type skips the type check.
type VerifyColumn struct {
	Property string `yaml:"property"`
	Type     string `yaml:"type"`
}

type Insert struct {
	Alias   string   `yaml:"alias"`
	Columns []string `yaml:"columns"`
	Values  [][]any  `yaml:"values"`
}

type Execute struct {
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args"`
}

// Canonical returns the unit encoded as YAML. Equal units encode equally,
// whatever the formatting or key order of the file they came from.
func (u Unit) Canonical() ([]byte, error) {
	data, err := yaml.Marshal(u)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrDefinitionInvalid, err, "cannot encode unit").
			With("patch", u.Name)
	}
	return data, nil
}

// -----------------------------------------------------------------------------
// Loading
// -----------------------------------------------------------------------------

// Load reads and parses definition files. Units are concatenated in the
// order the paths are given.
func Load(paths ...string) (*Document, error) {
	doc := &Document{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrDefinitionRead, err, "cannot read definition file").
				With("path", path)
		}
		d, err := Parse(data)
		if err != nil {
			return nil, alerr.Annotate(err, "path", path)
		}
		// A file-level naming convention applies to the units of that file.
		for _, u := range d.Units {
			if u.Naming == "" {
				u.Naming = d.Naming
			}
			doc.Units = append(doc.Units, u)
		}
	}
	return doc, nil
}

// Parse decodes and validates one document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, alerr.Wrap(alerr.ErrDefinitionInvalid, err, "cannot parse definition document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Step ranks follow the unit states. A step may not rank below the one
// before it.
const (
	rankCreate = iota
	rankAlter
	rankVerify
	rankPopulate
)

// Validate checks the document structure without a schema: one statement
// per step, legal step order, known types, generators, dialects and naming
// conventions. Schema consistency is checked when the units are defined.
func (d *Document) Validate() error {
	if _, ok := strutil.Convention(d.Naming); !ok {
		return invalid("unknown naming convention").With("naming", d.Naming)
	}
	for i, u := range d.Units {
		if err := u.validate(); err != nil {
			err = alerr.Annotate(err, "unit", i+1)
			if u.Name != "" {
				err = alerr.Annotate(err, "patch", u.Name)
			}
			return err
		}
	}
	return nil
}

func (u Unit) validate() error {
	if u.Dialect != "" && dialect.Get(u.Dialect) == nil {
		return invalid("unknown dialect").
			With("dialect", u.Dialect).
			WithHelp(alerr.SuggestSimilar(u.Dialect, dialect.Names()))
	}
	if _, ok := strutil.Convention(u.Naming); !ok {
		return invalid("unknown naming convention").With("naming", u.Naming)
	}
	last := rankCreate
	for i, s := range u.Steps {
		rank, err := s.validate()
		if err != nil {
			return alerr.Annotate(err, "step", i+1)
		}
		if rank < last {
			return invalid("step is out of order").
				With("step", i+1).
				With("kind", s.kind())
		}
		last = rank
	}
	return nil
}

func (s Step) kind() string {
	switch {
	case s.Create != nil:
		return "create"
	case s.Alter != nil:
		return "alter"
	case s.RenameTable != nil:
		return "rename_table"
	case s.RenameAlias != nil:
		return "rename_alias"
	case s.Verify != nil:
		return "verify"
	case s.Insert != nil:
		return "insert"
	case s.Execute != nil:
		return "execute"
	}
	return ""
}

func (s Step) count() int {
	n := 0
	for _, set := range []bool{
		s.Create != nil, s.Alter != nil, s.RenameTable != nil, s.RenameAlias != nil,
		s.Verify != nil, s.Insert != nil, s.Execute != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (s Step) validate() (int, error) {
	if s.count() != 1 {
		return 0, invalid("step must hold exactly one statement").With("statements", s.count())
	}
	switch {
	case s.Create != nil:
		for _, c := range s.Create.Columns {
			if err := c.validate(); err != nil {
				return 0, err
			}
		}
		return rankCreate, nil
	case s.Alter != nil:
		for _, c := range s.Alter.Changes {
			if err := c.validate(); err != nil {
				return 0, err
			}
		}
		return rankAlter, nil
	case s.RenameTable != nil, s.RenameAlias != nil:
		return rankAlter, nil
	case s.Verify != nil:
		for _, c := range s.Verify.Columns {
			if c.Type == "" {
				continue
			}
			if _, err := parseType(c.Type); err != nil {
				return 0, err
			}
		}
		return rankVerify, nil
	}
	return rankPopulate, nil
}

func (c Column) validate() error {
	if _, err := parseType(c.Type); err != nil {
		return err
	}
	_, err := parseGenerator(c.Generator)
	return err
}

func (c Change) validate() error {
	n := 0
	for _, set := range []bool{c.Add != nil, c.Alter != nil, c.Drop != "", c.Rename != ""} {
		if set {
			n++
		}
	}
	if n != 1 {
		return invalid("change must hold exactly one operation").With("operations", n)
	}
	switch {
	case c.Add != nil:
		return c.Add.validate()
	case c.Alter != nil:
		if c.Alter.Type != "" {
			if _, err := parseType(c.Alter.Type); err != nil {
				return err
			}
		}
		if _, err := parseGenerator(c.Alter.Generator); err != nil {
			return err
		}
	}
	return nil
}

func parseType(name string) (schema.Type, error) {
	t, err := schema.ParseType(name)
	if err != nil {
		names := make([]string, 0)
		for _, t := range schema.Types() {
			names = append(names, t.String())
		}
		return schema.Unknown, alerr.Wrap(alerr.ErrDefinitionInvalid, err, "unknown column type").
			With("type", name).
			WithHelp(alerr.SuggestSimilar(name, names))
	}
	return t, nil
}

func parseGenerator(name string) (schema.Generator, error) {
	g, ok := schema.ParseGenerator(name)
	if !ok {
		return schema.NoGenerator, invalid("unknown key generator").With("generator", name)
	}
	return g, nil
}

func invalid(msg string) *alerr.Error {
	return alerr.New(alerr.ErrDefinitionInvalid, msg)
}
