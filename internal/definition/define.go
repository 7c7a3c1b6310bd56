package definition

import (
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/dsl"
	"github.com/hlop3z/addenda/internal/schema"
	"github.com/hlop3z/addenda/internal/strutil"
)

// Define issues the DSL calls of every unit against set, in order, and
// stops at the first unit that fails to commit.
func (d *Document) Define(set dsl.Set) error {
	if err := d.Validate(); err != nil {
		return err
	}
	for _, u := range d.Units {
		naming := u.Naming
		if naming == "" {
			naming = d.Naming
		}
		if err := u.define(set, naming); err != nil {
			return err
		}
	}
	return nil
}

// define walks the steps with one variable per state. Validate has checked
// the step order, so a step never needs a state wider than the current one.
func (u Unit) define(set dsl.Set, naming string) error {
	opts := []dsl.Option{dsl.WithName(u.Name)}
	if u.Dialect != "" {
		opts = append(opts, dsl.WithDialect(dialect.Get(u.Dialect)))
	}
	if fn, _ := strutil.Convention(naming); fn != nil {
		opts = append(opts, dsl.WithNaming(fn))
	}

	creating := dsl.New(set, opts...)
	var (
		altering   dsl.Altering   = creating
		asserting  dsl.Asserting  = creating
		populating dsl.Populating = creating
	)
	for _, s := range u.Steps {
		switch {
		case s.Create != nil:
			creating = s.Create.define(creating)
			altering, asserting, populating = creating, creating, creating
		case s.Alter != nil:
			altering = s.Alter.define(altering)
			asserting, populating = altering, altering
		case s.RenameTable != nil:
			altering = altering.Alter(s.RenameTable.Alias).Rename(s.RenameTable.To).End()
			asserting, populating = altering, altering
		case s.RenameAlias != nil:
			altering = altering.RenameAlias(s.RenameAlias.From, s.RenameAlias.To)
			asserting, populating = altering, altering
		case s.Verify != nil:
			asserting = s.Verify.define(asserting)
			populating = asserting
		case s.Insert != nil:
			populating = s.Insert.define(populating)
		case s.Execute != nil:
			populating = populating.Execute(s.Execute.SQL, s.Execute.Args...)
		}
	}
	return populating.Commit()
}

func (c *Create) define(u dsl.Creating) dsl.Creating {
	t := u.Create(c.Alias, c.Table)
	for _, col := range c.Columns {
		t = col.define(t.Column(col.Property, mustType(col.Type)))
	}
	if len(c.PrimaryKey) > 0 {
		t = t.PrimaryKey(c.PrimaryKey...)
	}
	return t.End()
}

// define applies the column attributes and returns to the parent builder.
func (c Column) define(b *dsl.Column[dsl.TableCreation]) dsl.TableCreation {
	return applyColumn(c, b).End()
}

func applyColumn[P any](c Column, b *dsl.Column[P]) *dsl.Column[P] {
	if c.Name != "" {
		b = b.Named(c.Name)
	}
	if c.Length > 0 {
		b = b.Length(c.Length)
	}
	if c.Precision > 0 {
		b = b.Precision(c.Precision)
	}
	if c.Scale > 0 {
		b = b.Scale(c.Scale)
	}
	if c.NotNull {
		b = b.NotNull()
	}
	if c.Default != nil {
		b = b.Default(c.Default)
	}
	if g := mustGenerator(c.Generator); g != schema.NoGenerator {
		b = b.Generated(g)
	}
	return b
}

func (a *Alter) define(u dsl.Altering) dsl.Altering {
	t := u.Alter(a.Alias)
	for _, c := range a.Changes {
		switch {
		case c.Add != nil:
			t = applyColumn(*c.Add, t.Add(c.Add.Property, mustType(c.Add.Type))).End()
		case c.Alter != nil:
			t = c.Alter.define(t.Alter(c.Alter.Property))
		case c.Drop != "":
			t = t.Drop(c.Drop)
		case c.Rename != "":
			t = t.Rename(c.Rename)
		}
	}
	return t.End()
}

func (c *ColumnChange) define(a dsl.ColumnAlteration) dsl.TableAlteration {
	if c.Rename != "" {
		a = a.Rename(c.Rename)
	}
	if c.Type != "" {
		a = a.Type(mustType(c.Type))
	}
	if c.Length != nil {
		a = a.Length(*c.Length)
	}
	if c.Precision != nil {
		a = a.Precision(*c.Precision)
	}
	if c.Scale != nil {
		a = a.Scale(*c.Scale)
	}
	if c.NotNull != nil {
		a = a.NotNull(*c.NotNull)
	}
	if c.Default != nil {
		a = a.Default(c.Default)
	}
	if c.DropDefault {
		a = a.DropDefault()
	}
	if c.Generator != "" {
		a = a.Generated(mustGenerator(c.Generator))
	}
	return a.End()
}

func (v *Verify) define(u dsl.Asserting) dsl.Asserting {
	b := u.Verify(v.Alias)
	for _, c := range v.Columns {
		t := schema.Unknown
		if c.Type != "" {
			t = mustType(c.Type)
		}
		b = b.Column(c.Property, t)
	}
	return b.End()
}

func (i *Insert) define(u dsl.Populating) dsl.Populating {
	b := u.Insert(i.Alias).Columns(i.Columns...)
	for _, row := range i.Values {
		b = b.Values(row...)
	}
	return b.End()
}

// mustType parses a type name that Validate has already accepted.
func mustType(name string) schema.Type {
	t, _ := schema.ParseType(name)
	return t
}

func mustGenerator(name string) schema.Generator {
	g, _ := schema.ParseGenerator(name)
	return g
}
