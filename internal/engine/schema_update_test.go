package engine

import (
	"testing"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
	"github.com/hlop3z/addenda/internal/testutil"
)

func varchar(name string, n int) schema.Column {
	return schema.NewColumn(name, schema.VarChar).WithLength(n)
}

func createPerson() TableCreate {
	return TableCreate{
		Alias: "Person",
		Table: "Person",
		Columns: []PropertyColumn{
			{Property: "firstName", Column: varchar("firstName", 64)},
			{Property: "lastName", Column: varchar("lastName", 64)},
		},
	}
}

func mustExecute(t *testing.T, s *schema.Schema, u SchemaUpdate) DatabaseUpdate {
	t.Helper()
	du, err := u.Execute(s)
	if err != nil {
		t.Fatalf("%T.Execute() error = %v", u, err)
	}
	return du
}

func planSQL(t *testing.T, du DatabaseUpdate, d dialect.Dialect) []string {
	t.Helper()
	stmts, err := du.Plan(d)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

func TestTableCreate(t *testing.T) {
	s := schema.New()
	u := createPerson()
	u.Columns = append([]PropertyColumn{{
		Property: "id",
		Column:   schema.NewColumn("id", schema.Integer).WithNotNull(true).WithGenerator(schema.AutoIncrement),
	}}, u.Columns...)
	u.PrimaryKey = []string{"id"}

	du := mustExecute(t, s, u)
	testutil.AssertStatements(t, planSQL(t, du, dialect.Postgres()), []string{
		`CREATE TABLE "Person" (
		  "id" INTEGER GENERATED BY DEFAULT AS IDENTITY NOT NULL,
		  "firstName" VARCHAR(64),
		  "lastName" VARCHAR(64),
		  PRIMARY KEY ("id")
		)`,
	})

	e, err := s.Entity("Person")
	if err != nil {
		t.Fatalf("Entity(Person) error = %v", err)
	}
	testutil.AssertEqual(t, len(e.Columns()), 3)
	testutil.AssertEqual(t, du.Describe(), "create table Person")
}

func TestTableCreateErrors(t *testing.T) {
	tests := []struct {
		name   string
		update TableCreate
		code   alerr.Code
	}{
		{"alias taken", TableCreate{Alias: "Person", Table: "human", Columns: createPerson().Columns}, alerr.ErrEntityExists},
		{"table taken", TableCreate{Alias: "Human", Table: "Person", Columns: createPerson().Columns}, alerr.ErrTableExists},
		{"no columns", TableCreate{Alias: "Human", Table: "human"}, alerr.ErrNoColumns},
		{
			"duplicate property",
			TableCreate{Alias: "Human", Table: "human", Columns: []PropertyColumn{
				{Property: "name", Column: varchar("a", 10)},
				{Property: "name", Column: varchar("b", 10)},
			}},
			alerr.ErrPropertyExists,
		},
		{
			"duplicate column",
			TableCreate{Alias: "Human", Table: "human", Columns: []PropertyColumn{
				{Property: "a", Column: varchar("name", 10)},
				{Property: "b", Column: varchar("name", 10)},
			}},
			alerr.ErrColumnExists,
		},
		{
			"primary key on unknown property",
			TableCreate{Alias: "Human", Table: "human", Columns: createPerson().Columns, PrimaryKey: []string{"id"}},
			alerr.ErrPrimaryKeyColumnMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schema.New()
			mustExecute(t, s, createPerson())

			_, err := tt.update.Execute(s)
			testutil.AssertError(t, err, tt.code)
			if _, ok := s.AliasTable("Human"); ok {
				t.Error("failed create registered an alias")
			}
			testutil.AssertEqual(t, s.Len(), 1)
		})
	}
}

func TestColumnAdd(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, ColumnAdd{
		Alias:    "Person",
		Property: "age",
		Column:   schema.NewColumn("age", schema.Integer).WithNotNull(true).WithDefault(0),
	})
	testutil.AssertStatements(t, planSQL(t, du, dialect.Postgres()), []string{
		`ALTER TABLE "Person" ADD COLUMN "age" INTEGER DEFAULT 0 NOT NULL`,
	})

	_, err := ColumnAdd{Alias: "Person", Property: "age", Column: schema.NewColumn("years", schema.Integer)}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrPropertyExists)
	testutil.AssertErrorContext(t, err, "alias", "Person")

	_, err = ColumnAdd{Alias: "Nobody", Property: "x", Column: schema.NewColumn("x", schema.Integer)}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrEntityMissing)
}

func TestColumnAddPlanWithoutDefaultSuppressesNotNull(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, ColumnAdd{
		Alias:    "Person",
		Property: "nick",
		Column:   varchar("nick", 32).WithNotNull(true),
	})
	testutil.AssertStatements(t, planSQL(t, du, dialect.Postgres()), []string{
		`ALTER TABLE "Person" ADD COLUMN "nick" VARCHAR(32)`,
	})
}

func TestColumnPatchApply(t *testing.T) {
	name := "given_name"
	typ := schema.LongVarChar
	length := 128
	notNull := true
	gen := schema.Sequence

	base := varchar("firstName", 64).WithDefault("x")

	tests := []struct {
		name  string
		patch ColumnPatch
		want  schema.Column
	}{
		{"empty", ColumnPatch{}, base},
		{"rename", ColumnPatch{Name: &name}, base.Renamed(name)},
		{"type resets length", ColumnPatch{Type: &typ}, base.WithType(typ)},
		{"type then length", ColumnPatch{Type: &typ, Length: &length}, base.WithType(typ).WithLength(128)},
		{"not null", ColumnPatch{NotNull: &notNull}, base.WithNotNull(true)},
		{"default", ColumnPatch{Default: "y"}, base.WithDefault("y")},
		{"drop default wins", ColumnPatch{Default: "y", DropDefault: true}, base.WithoutDefault()},
		{"generator", ColumnPatch{Generator: &gen}, base.WithGenerator(gen)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.patch.Apply(base); !got.Equal(tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColumnAlterationRename(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	name := "given_name"
	typ := schema.LongVarChar
	du := mustExecute(t, s, ColumnAlteration{
		Alias:    "Person",
		Property: "firstName",
		Patch:    ColumnPatch{Name: &name, Type: &typ},
	})
	testutil.AssertStatements(t, planSQL(t, du, dialect.Postgres()), []string{
		`ALTER TABLE "Person" RENAME COLUMN "firstName" TO "given_name"`,
		`ALTER TABLE "Person" ALTER COLUMN "given_name" TYPE TEXT`,
	})
	testutil.AssertEqual(t, du.Describe(), "alter column Person.firstName")

	e, _ := s.Entity("Person")
	col, err := e.ColumnFor("firstName")
	if err != nil {
		t.Fatalf("ColumnFor() error = %v", err)
	}
	testutil.AssertEqual(t, col.Name, "given_name")
	if _, ok := e.Column("firstName"); ok {
		t.Error("old column name still tracked")
	}
}

func TestColumnAlterationCollision(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	name := "lastName"
	_, err := ColumnAlteration{Alias: "Person", Property: "firstName", Patch: ColumnPatch{Name: &name}}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrColumnExists)

	_, err = ColumnAlteration{Alias: "Person", Property: "middleName"}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrPropertyMissing)
}

func TestColumnDrop(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, ColumnDrop{Alias: "Person", Property: "lastName"})
	testutil.AssertStatements(t, planSQL(t, du, dialect.MySQL()), []string{
		"ALTER TABLE `Person` DROP COLUMN `lastName`",
	})

	_, err := ColumnDrop{Alias: "Person", Property: "lastName"}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrPropertyMissing)
}

func TestTableRename(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())
	mustExecute(t, s, AliasRename{From: "Person", To: "Individual"})
	mustExecute(t, s, TableCreate{
		Alias:   "Person",
		Table:   "person_v2",
		Columns: []PropertyColumn{{Property: "x", Column: schema.NewColumn("x", schema.Integer)}},
	})

	du := mustExecute(t, s, TableRename{Alias: "Individual", To: "Human"})
	testutil.AssertStatements(t, planSQL(t, du, dialect.Postgres()), []string{
		`ALTER TABLE "Person" RENAME TO "Human"`,
	})

	e, err := s.Entity("Individual")
	if err != nil || e.Table != "Human" {
		t.Fatalf("Entity(Individual) = %v, %v", e, err)
	}
	if _, ok := s.Table("Person"); ok {
		t.Error("stale table name still resolves")
	}
	if table, _ := s.AliasTable("Person"); table != "person_v2" {
		t.Errorf("unrelated alias Person -> %q, want person_v2", table)
	}

	_, err = TableRename{Alias: "Individual", To: "person_v2"}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrTableExists)
}

func TestAliasRenameIsNoop(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, AliasRename{From: "Person", To: "Individual"})
	if got := planSQL(t, du, dialect.Postgres()); len(got) != 0 {
		t.Errorf("alias rename rendered %v", got)
	}
	if err := du.Execute(t.Context(), nil, dialect.Postgres()); err != nil {
		t.Errorf("Execute() error = %v", err)
	}

	_, err := AliasRename{From: "Person", To: "Other"}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrEntityMissing)
}

func TestInsertion(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, Insertion{
		Alias:      "Person",
		Properties: []string{"firstName", "lastName"},
		Values:     []any{"Alan", "Gutierrez"},
	})
	stmts, err := du.Plan(dialect.Postgres())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertSQL(t, stmts[0].SQL, `INSERT INTO "Person" ("firstName", "lastName") VALUES ($1, $2)`)
	testutil.AssertEqual(t, len(stmts[0].Args), 2)
}

func TestInsertionArity(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	_, err := Insertion{
		Alias:      "Person",
		Properties: []string{"firstName", "lastName"},
		Values:     []any{"x"},
	}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrInsertValuesMismatch)
	testutil.AssertErrorContext(t, err, "columns", 2)
	testutil.AssertErrorContext(t, err, "values", 1)

	_, err = Insertion{Alias: "Person", Properties: []string{"email"}, Values: []any{"x"}}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrPropertyMissing)
}

func TestExecution(t *testing.T) {
	du := mustExecute(t, schema.New(), Execution{SQL: "UPDATE person SET age = ?", Args: []any{1}})
	stmts, _ := du.Plan(dialect.SQLite())
	testutil.AssertEqual(t, stmts[0].SQL, "UPDATE person SET age = ?")

	_, err := Execution{SQL: "  "}.Execute(schema.New())
	testutil.AssertError(t, err, alerr.ErrExecute)
}

func TestColumnVerification(t *testing.T) {
	s := schema.New()
	mustExecute(t, s, createPerson())

	du := mustExecute(t, s, ColumnVerification{Alias: "Person", Property: "firstName", Type: schema.VarChar})
	testutil.AssertEqual(t, du.Describe(), "verify column Person.firstName")
	mustExecute(t, s, ColumnVerification{Alias: "Person", Property: "lastName"})

	_, err := ColumnVerification{Alias: "Person", Property: "firstName", Type: schema.Integer}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrColumnMismatch)

	_, err = ColumnVerification{Alias: "Person", Property: "age"}.Execute(s)
	testutil.AssertError(t, err, alerr.ErrPropertyMissing)
}

func TestPatchApplyAddsStep(t *testing.T) {
	p := NewPatch("bad", nil)
	p.Append(createPerson(), createPerson())

	_, err := p.Apply(schema.New())
	testutil.AssertError(t, err, alerr.ErrEntityExists)
	testutil.AssertErrorContext(t, err, "step", 2)
}
