package engine

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/connector"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
	"github.com/hlop3z/addenda/internal/testutil"
)

// countingConnector records how often the handle was released.
type countingConnector struct {
	connector.Connector
	opened, closed int
}

func (c *countingConnector) Open(ctx context.Context) (*sql.DB, error) {
	c.opened++
	return c.Connector.Open(ctx)
}

func (c *countingConnector) Close(db *sql.DB) error {
	c.closed++
	return c.Connector.Close(db)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSet(t *testing.T, db *sql.DB, mutate ...func(*Config)) (*Addenda, *countingConnector) {
	t.Helper()
	conn := &countingConnector{Connector: connector.Static(db)}
	cfg := Config{Connector: conn, Logger: quietLogger()}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg), conn
}

func personPatch() *Patch {
	p := NewPatch("create person", nil)
	p.Append(
		createPerson(),
		Insertion{
			Alias:      "Person",
			Properties: []string{"firstName", "lastName"},
			Values:     []any{"Alan", "Gutierrez"},
		},
	)
	return p
}

func humanPatch() *Patch {
	p := NewPatch("person becomes human", nil)
	p.Append(
		TableRename{Alias: "Person", To: "Human"},
		ColumnAdd{
			Alias:    "Human",
			Property: "age",
			Column:   schema.NewColumn("age", schema.Integer).WithDefault(0),
		},
	)
	return p
}

func appliedCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	return testutil.QueryInt(t, db, `SELECT "addendum" FROM "Addenda"`)
}

func TestAmendEndToEnd(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, conn := newSet(t, db)

	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Amend(ctx))

	testutil.AssertRowCount(t, db, "Person", 1)
	testutil.AssertEqual(t, appliedCount(t, db), 1)

	testutil.Must(t, set.Append(humanPatch()))
	testutil.Must(t, set.Amend(ctx))

	testutil.AssertEqual(t, appliedCount(t, db), 2)
	testutil.AssertTableExists(t, db, "Human")
	testutil.AssertTableNotExists(t, db, "Person")
	testutil.AssertColumnExists(t, db, "Human", "age")
	testutil.AssertEqual(t, testutil.QueryInt(t, db, `SELECT COUNT(*) FROM "Human" WHERE "age" = 0`), 1)
	testutil.AssertEqual(t, conn.closed, conn.opened)
}

func TestAmendIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(humanPatch()))

	for range 3 {
		testutil.Must(t, set.Amend(ctx))
	}
	testutil.AssertEqual(t, appliedCount(t, db), 2)
	testutil.AssertRowCount(t, db, "Human", 1)
	testutil.AssertRowCount(t, db, "Addenda", 1)
}

func TestAmendResumesFromCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)

	first, _ := newSet(t, db)
	testutil.Must(t, first.Append(personPatch()))
	testutil.Must(t, first.Amend(ctx))

	// A new process defines the full history; only unit 2 runs.
	second, _ := newSet(t, db)
	testutil.Must(t, second.Append(personPatch()))
	testutil.Must(t, second.Append(humanPatch()))
	testutil.Must(t, second.Amend(ctx))

	testutil.AssertRowCount(t, db, "Human", 1)
	testutil.AssertEqual(t, appliedCount(t, db), 2)
}

func TestAmendFailureLeavesCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, conn := newSet(t, db)

	bad := NewPatch("broken", nil)
	bad.Append(
		ColumnAdd{Alias: "Person", Property: "nick", Column: varchar("nick", 16)},
		Execution{SQL: `INSERT INTO "missing" VALUES (1)`},
	)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(bad))

	err := set.Amend(ctx)
	testutil.AssertError(t, err, alerr.ErrExecute)
	testutil.AssertErrorContext(t, err, "unit", 2)
	testutil.AssertErrorContext(t, err, "patch", "broken")

	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertEqual(t, conn.closed, conn.opened)

	// Without a transaction the first statement of the unit stays applied.
	testutil.AssertColumnExists(t, db, "Person", "nick")
}

func TestAmendRendersUnitBeforeExecuting(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, conn := newSet(t, db)

	ticket := TableCreate{
		Alias: "Ticket",
		Table: "Ticket",
		Columns: []PropertyColumn{{
			Property: "id",
			Column:   schema.NewColumn("id", schema.Integer).WithNotNull(true).WithGenerator(schema.Sequence),
		}},
		PrimaryKey: []string{"id"},
	}
	bad := NewPatch("sequence on sqlite", nil)
	bad.Append(
		ColumnAdd{Alias: "Person", Property: "nick", Column: varchar("nick", 16)},
		ticket,
	)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(bad))

	err := set.Amend(ctx)
	testutil.AssertError(t, err, alerr.ErrDialectDoesNotSupportGenerator)
	testutil.AssertErrorContext(t, err, "unit", 2)

	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertEqual(t, conn.closed, conn.opened)
	testutil.AssertColumnNotExists(t, db, "Person", "nick")
	testutil.AssertTableNotExists(t, db, "Ticket")
}

func TestAmendTransactionalRollsBackUnit(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db, func(c *Config) { c.Transactional = true })

	bad := NewPatch("broken", nil)
	bad.Append(
		ColumnAdd{Alias: "Person", Property: "nick", Column: varchar("nick", 16)},
		Execution{SQL: `INSERT INTO "missing" VALUES (1)`},
	)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(bad))

	testutil.AssertError(t, set.Amend(ctx), alerr.ErrExecute)
	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertColumnNotExists(t, db, "Person", "nick")
}

func TestAmendNotNullOnPopulatedTable(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)

	p := NewPatch("", nil)
	p.Append(
		ColumnAdd{Alias: "Person", Property: "nick", Column: varchar("nick", 16).WithNotNull(true)},
		TableCreate{
			Alias:   "Tag",
			Table:   "tag",
			Columns: []PropertyColumn{{Property: "label", Column: varchar("label", 16)}},
		},
		ColumnAdd{Alias: "Tag", Property: "color", Column: varchar("color", 16).WithNotNull(true)},
	)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(p))
	testutil.Must(t, set.Amend(ctx))

	notNull := func(table, column string) int {
		return testutil.QueryInt(t, db, `SELECT "notnull" FROM pragma_table_info(?) WHERE name = ?`, table, column)
	}
	testutil.AssertEqual(t, notNull("Person", "nick"), 0)
	testutil.AssertEqual(t, notNull("tag", "color"), 1)
}

func TestAmendVerification(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)

	testutil.Must(t, set.Append(personPatch()))
	check := NewPatch("check", nil)
	check.Append(ColumnVerification{Alias: "Person", Property: "firstName", Type: schema.VarChar})
	testutil.Must(t, set.Append(check))
	testutil.Must(t, set.Amend(ctx))
	testutil.AssertEqual(t, appliedCount(t, db), 2)

	// lastName is dropped out of band.
	testutil.ExecSQL(t, db, `ALTER TABLE "Person" DROP COLUMN "lastName"`)
	drift := NewPatch("drift", nil)
	drift.Append(ColumnVerification{Alias: "Person", Property: "lastName"})
	testutil.Must(t, set.Append(drift))

	testutil.AssertError(t, set.Amend(ctx), alerr.ErrColumnMissing)
	testutil.AssertEqual(t, appliedCount(t, db), 2)
}

func TestAppendFailsFast(t *testing.T) {
	set, _ := newSet(t, nil)
	testutil.Must(t, set.Append(personPatch()))

	dup := NewPatch("duplicate", nil)
	dup.Append(TableCreate{
		Alias:   "Human",
		Table:   "Person",
		Columns: []PropertyColumn{{Property: "x", Column: schema.NewColumn("x", schema.Integer)}},
	})
	err := set.Append(dup)
	testutil.AssertError(t, err, alerr.ErrTableExists)
	testutil.AssertErrorContext(t, err, "unit", 2)
	testutil.AssertEqual(t, set.Len(), 1)

	// The rejected unit left no trace in the validation schema.
	ok := NewPatch("", nil)
	ok.Append(AliasRename{From: "Person", To: "Human"})
	testutil.Must(t, set.Append(ok))
}

func TestAppendInsertArity(t *testing.T) {
	set, _ := newSet(t, nil)
	p := NewPatch("", nil)
	p.Append(
		createPerson(),
		Insertion{Alias: "Person", Properties: []string{"firstName", "lastName"}, Values: []any{"x"}},
	)
	testutil.AssertError(t, set.Append(p), alerr.ErrInsertValuesMismatch)
	testutil.AssertEqual(t, set.Len(), 0)
}

func TestAmendDialectNotResolved(t *testing.T) {
	db := testutil.SetupSQLite(t)
	set, conn := newSet(t, db, func(c *Config) {
		c.Dialects = []dialect.Dialect{dialect.Postgres(), dialect.MySQL()}
	})
	testutil.Must(t, set.Append(personPatch()))

	testutil.AssertError(t, set.Amend(context.Background()), alerr.ErrDialectNotResolved)
	testutil.AssertEqual(t, conn.closed, 1)
	testutil.AssertTableNotExists(t, db, "Addenda")
}

func TestAmendFixedUnitDialect(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)

	testutil.Must(t, set.Append(personPatch()))
	p := NewPatch("postgres only", dialect.Postgres())
	p.Append(ColumnDrop{Alias: "Person", Property: "lastName"})
	testutil.Must(t, set.Append(p))

	testutil.AssertError(t, set.Amend(ctx), alerr.ErrDialectDoesNotSupportConnection)
	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertColumnExists(t, db, "Person", "lastName")
}

func TestAmendUnitDialectOutsideRegistry(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, conn := newSet(t, db, func(c *Config) {
		c.Dialects = []dialect.Dialect{dialect.Postgres()}
	})

	p := NewPatch("sqlite only", dialect.SQLite())
	p.Append(createPerson())
	testutil.Must(t, set.Append(p))

	testutil.Must(t, set.Amend(ctx))
	testutil.AssertTableExists(t, db, "Person")
	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertEqual(t, conn.closed, conn.opened)

	st, err := set.Status(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, st, Status{Dialect: "sqlite", Applied: 1, Total: 1})

	// A fixed dialect the connection rejects does not stand in.
	other, _ := newSet(t, db, func(c *Config) {
		c.Dialects = []dialect.Dialect{dialect.Postgres()}
	})
	q := NewPatch("mysql only", dialect.MySQL())
	q.Append(createPerson())
	testutil.Must(t, other.Append(q))
	testutil.AssertError(t, other.Amend(ctx), alerr.ErrDialectNotResolved)
}

func TestAmendCustomTracking(t *testing.T) {
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db, func(c *Config) {
		c.Tracking = dialect.Tracking{Table: "schema_revision", Column: "revision"}
	})
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Amend(context.Background()))

	testutil.AssertEqual(t, testutil.QueryInt(t, db, `SELECT "revision" FROM "schema_revision"`), 1)
	testutil.AssertTableNotExists(t, db, "Addenda")
}

func TestAmendWithoutConnector(t *testing.T) {
	set := New(Config{Logger: quietLogger()})
	testutil.AssertError(t, set.Amend(context.Background()), alerr.ErrConnect)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(humanPatch()))

	st, err := set.Status(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, st, Status{Dialect: "sqlite", Applied: 0, Total: 2})
	testutil.AssertEqual(t, st.Pending(), 2)
	testutil.AssertTableNotExists(t, db, "Addenda")

	testutil.Must(t, set.Amend(ctx))
	st, err = set.Status(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, st.Applied, 2)
	if !st.UpToDate() {
		t.Errorf("Status() = %+v, want up to date", st)
	}
}

func TestStatusUnreadableCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupSQLite(t)
	set, _ := newSet(t, db)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(humanPatch()))
	testutil.Must(t, set.Amend(ctx))

	// The tracking table exists but has no such column.
	wrong, _ := newSet(t, db, func(c *Config) {
		c.Tracking = dialect.Tracking{Table: "Addenda", Column: "revision"}
	})
	testutil.Must(t, wrong.Append(personPatch()))
	testutil.Must(t, wrong.Append(humanPatch()))

	_, err := wrong.Status(ctx)
	testutil.AssertError(t, err, alerr.ErrAddendaCount)
	testutil.AssertErrorContext(t, err, "column", "revision")

	_, _, err = wrong.Plan(ctx)
	testutil.AssertError(t, err, alerr.ErrAddendaCount)
	testutil.AssertError(t, wrong.Amend(ctx), alerr.ErrAddendaCount)
}

func TestSchemaReplay(t *testing.T) {
	set, _ := newSet(t, nil)
	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(humanPatch()))

	s, err := set.Schema()
	testutil.Must(t, err)
	e, err := s.Entity("Human")
	testutil.Must(t, err)
	testutil.AssertEqual(t, e.Table, "Human")
	testutil.AssertEqual(t, len(e.Columns()), 3)

	if _, err := s.Entity("Person"); !alerr.Is(err, alerr.ErrEntityMissing) {
		t.Errorf("Entity(Person) error = %v, want ErrEntityMissing", err)
	}
	testutil.AssertEqual(t, set.Snapshot().Len(), s.Len())
}
