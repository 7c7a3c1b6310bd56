package engine

import (
	"context"
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
)

// Statement is one rendered SQL statement with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// String returns the statement text.
func (s Statement) String() string {
	return s.SQL
}

// DatabaseUpdate is a deferred action produced by replaying a SchemaUpdate.
// It carries its own error context (operation and names) and runs against a
// live connection and a resolved dialect.
type DatabaseUpdate interface {
	// Execute runs the update.
	Execute(ctx context.Context, ex dialect.Executor, d dialect.Dialect) error

	// Plan renders the statements Execute would send, without a connection.
	// Updates whose statements depend on database state assume the
	// conservative case.
	Plan(d dialect.Dialect) ([]Statement, error)

	// Describe returns a short human-readable summary, e.g. "add column person.age".
	Describe() string
}

// ddl is a database update made of rendered statements without arguments.
type ddl struct {
	op     string
	code   alerr.Code
	table  string
	column string
	render func(d dialect.Dialect) ([]string, error)
}

func (u *ddl) Execute(ctx context.Context, ex dialect.Executor, d dialect.Dialect) error {
	stmts, err := u.render(d)
	if err != nil {
		return err
	}
	return u.run(ctx, ex, stmts)
}

func (u *ddl) run(ctx context.Context, ex dialect.Executor, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return alerr.WrapSQL(u.code, err, u.op, u.table, u.column).WithSQL(stmt)
		}
	}
	return nil
}

func (u *ddl) Plan(d dialect.Dialect) ([]Statement, error) {
	stmts, err := u.render(d)
	if err != nil {
		return nil, err
	}
	return statements(stmts), nil
}

func (u *ddl) Describe() string {
	return describe(u.op, u.table, u.column)
}

// addColumn suppresses NOT NULL when the table already holds rows and the
// column has no default to fill them with.
type addColumn struct {
	ddl
	col schema.Column
}

func newAddColumn(table string, col schema.Column) *addColumn {
	u := &addColumn{col: col}
	u.ddl = ddl{op: "add column", code: alerr.ErrAddColumn, table: table, column: col.Name}
	return u
}

func (u *addColumn) Execute(ctx context.Context, ex dialect.Executor, d dialect.Dialect) error {
	allowNotNull := u.col.HasDefault
	if !allowNotNull {
		populated, err := d.HasRows(ctx, ex, u.table)
		if err != nil {
			return alerr.WrapSQL(alerr.ErrAddColumn, err, u.op, u.table, u.column)
		}
		allowNotNull = !populated
	}
	stmts, err := d.AddColumnSQL(u.table, u.col, allowNotNull)
	if err != nil {
		return err
	}
	return u.run(ctx, ex, stmts)
}

func (u *addColumn) Plan(d dialect.Dialect) ([]Statement, error) {
	stmts, err := d.AddColumnSQL(u.table, u.col, u.col.HasDefault)
	if err != nil {
		return nil, err
	}
	return statements(stmts), nil
}

// insert is a single parameterized row insert.
type insert struct {
	table   string
	columns []string
	values  []any
}

func (u *insert) Execute(ctx context.Context, ex dialect.Executor, d dialect.Dialect) error {
	stmt := d.InsertSQL(u.table, u.columns)
	if _, err := ex.ExecContext(ctx, stmt, u.values...); err != nil {
		return alerr.WrapSQL(alerr.ErrInsert, err, "insert into", u.table, "").
			WithSQL(stmt).
			With("columns", u.columns)
	}
	return nil
}

func (u *insert) Plan(d dialect.Dialect) ([]Statement, error) {
	return []Statement{{SQL: d.InsertSQL(u.table, u.columns), Args: u.values}}, nil
}

func (u *insert) Describe() string {
	return describe("insert into", u.table, "")
}

// execute runs a caller-supplied statement as is.
type execute struct {
	stmt Statement
}

func (u *execute) Execute(ctx context.Context, ex dialect.Executor, _ dialect.Dialect) error {
	if _, err := ex.ExecContext(ctx, u.stmt.SQL, u.stmt.Args...); err != nil {
		return alerr.Wrap(alerr.ErrExecute, err, "cannot execute statement").
			WithSQL(u.stmt.SQL)
	}
	return nil
}

func (u *execute) Plan(dialect.Dialect) ([]Statement, error) {
	return []Statement{u.stmt}, nil
}

func (u *execute) Describe() string {
	return "execute " + firstLine(u.stmt.SQL)
}

// verify checks a live column against its tracked definition.
type verify struct {
	table string
	col   schema.Column
}

func (u *verify) Execute(ctx context.Context, ex dialect.Executor, d dialect.Dialect) error {
	return d.VerifyColumn(ctx, ex, u.table, u.col)
}

func (u *verify) Plan(dialect.Dialect) ([]Statement, error) {
	return nil, nil
}

func (u *verify) Describe() string {
	return describe("verify column", u.table, u.col.Name)
}

// noop has no database effect; alias renames only touch the tracking schema.
type noop struct {
	what string
}

func (noop) Execute(context.Context, dialect.Executor, dialect.Dialect) error { return nil }

func (noop) Plan(dialect.Dialect) ([]Statement, error) { return nil, nil }

func (u noop) Describe() string { return u.what }

func statements(stmts []string) []Statement {
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		out[i] = Statement{SQL: s}
	}
	return out
}

func describe(op, table, column string) string {
	if column == "" {
		return op + " " + table
	}
	return op + " " + table + "." + column
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
