// Package engine applies migration units to a database. Units are replayed
// against a fresh tracking schema on every run; only the applied count is
// durable, and only units past that count send statements.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/connector"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
)

// Config configures a migration set.
type Config struct {
	// Connector opens the connection for each run.
	Connector connector.Connector

	// Dialects are probed in order when no Dialect is fixed.
	// Defaults to dialect.Default().
	Dialects []dialect.Dialect

	// Dialect, when set, is used instead of probing Dialects.
	Dialect dialect.Dialect

	// Tracking names the applied-count table. Defaults to dialect.DefaultTracking().
	Tracking dialect.Tracking

	// Transactional runs each unit and its counter update in one
	// transaction on dialects with transactional DDL.
	Transactional bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Addenda is a migration set: the ordered, append-only list of units for
// one application. It is not safe for concurrent use.
type Addenda struct {
	cfg     Config
	patches []*Patch

	// validation holds the schema after every appended unit, so a bad unit
	// fails when it is appended rather than during Amend.
	validation *schema.Schema
}

// New creates an empty migration set.
func New(cfg Config) *Addenda {
	if len(cfg.Dialects) == 0 {
		cfg.Dialects = dialect.Default()
	}
	if cfg.Tracking.Table == "" || cfg.Tracking.Column == "" {
		cfg.Tracking = dialect.DefaultTracking()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Addenda{cfg: cfg, validation: schema.New()}
}

// Append validates p against the schema left by the units before it and
// adds it to the set. A failing unit is not added.
func (a *Addenda) Append(p *Patch) error {
	scratch := a.validation.Clone()
	if _, err := p.Apply(scratch); err != nil {
		return unitError(err, len(a.patches), p)
	}
	a.validation = scratch
	a.patches = append(a.patches, p)
	return nil
}

// Len returns the number of units.
func (a *Addenda) Len() int {
	return len(a.patches)
}

// Patches returns the units in order.
func (a *Addenda) Patches() []*Patch {
	return slices.Clone(a.patches)
}

// Snapshot returns a copy of the schema after the last appended unit.
func (a *Addenda) Snapshot() *schema.Schema {
	return a.validation.Clone()
}

// Schema rebuilds the tracking schema by replaying every unit.
func (a *Addenda) Schema() (*schema.Schema, error) {
	s := schema.New()
	for i, p := range a.patches {
		if _, err := p.Apply(s); err != nil {
			return nil, unitError(err, i, p)
		}
	}
	return s, nil
}

// Tracking returns the applied-count table configuration.
func (a *Addenda) Tracking() dialect.Tracking {
	return a.cfg.Tracking
}

// Amend applies every unit past the durable applied count, in order,
// advancing the count by one after each unit. Calling it again without new
// units only reads the count.
//
// A failing unit aborts the run and leaves the count at that unit, so the
// next run retries it from its first statement.
func (a *Addenda) Amend(ctx context.Context) (err error) {
	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tr := a.cfg.Tracking
	if err := sess.dialect.CreateAddendaTable(ctx, sess.conn, tr); err != nil {
		return err
	}
	applied, err := sess.dialect.AddendaCount(ctx, sess.conn, tr)
	if err != nil {
		return err
	}

	log := a.cfg.Logger.With("dialect", sess.dialect.Name())
	log.Info("amend", "applied", applied, "total", len(a.patches))
	if applied > len(a.patches) {
		log.Warn("database is ahead of the migration set",
			"applied", applied,
			"total", len(a.patches))
	}

	s := schema.New()
	for i, p := range a.patches {
		updates, err := p.Apply(s)
		if err != nil {
			return unitError(err, i, p)
		}
		if i < applied {
			continue
		}

		d, err := sess.unitDialect(p)
		if err != nil {
			return unitError(err, i, p)
		}

		start := time.Now()
		if err := a.applyUnit(ctx, sess, d, updates); err != nil {
			return unitError(err, i, p)
		}
		log.Info("applied unit",
			"unit", i+1,
			"name", p.Name,
			"updates", len(updates),
			"duration", time.Since(start))
	}
	return nil
}

// applyUnit runs a unit's database updates and advances the count.
func (a *Addenda) applyUnit(ctx context.Context, sess *session, d dialect.Dialect, updates []DatabaseUpdate) error {
	tr := a.cfg.Tracking
	if !a.cfg.Transactional || !d.SupportsTransactionalDDL() {
		// Without a rollback, render every update first so type and
		// generator errors stop the unit before any statement commits.
		for _, u := range updates {
			if _, err := u.Plan(d); err != nil {
				return err
			}
		}
		for _, u := range updates {
			a.cfg.Logger.Debug("database update", "update", u.Describe())
			if err := u.Execute(ctx, sess.conn, d); err != nil {
				return err
			}
		}
		return sess.dialect.Addendum(ctx, sess.conn, tr)
	}

	tx, err := sess.conn.BeginTx(ctx, nil)
	if err != nil {
		return alerr.Wrap(alerr.ErrCommit, err, "cannot begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, u := range updates {
		a.cfg.Logger.Debug("database update", "update", u.Describe())
		if err := u.Execute(ctx, tx, d); err != nil {
			return err
		}
	}
	if err := sess.dialect.Addendum(ctx, tx, tr); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return alerr.Wrap(alerr.ErrCommit, err, "cannot commit transaction")
	}
	committed = true
	return nil
}

// Status reports how many units the database has applied. A database
// without the tracking table reports zero.
func (a *Addenda) Status(ctx context.Context) (Status, error) {
	st, _, err := a.status(ctx)
	return st, err
}

// Plan connects to read the applied count and renders the pending units'
// statements without executing them.
func (a *Addenda) Plan(ctx context.Context) (Status, []Step, error) {
	st, d, err := a.status(ctx)
	if err != nil {
		return st, nil, err
	}
	steps, err := a.PlanFor(d, st.Applied)
	return st, steps, err
}

func (a *Addenda) status(ctx context.Context) (st Status, d dialect.Dialect, err error) {
	sess, err := a.open(ctx)
	if err != nil {
		return Status{}, nil, err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tr := a.cfg.Tracking
	exists, err := sess.dialect.HasTable(ctx, sess.conn, tr.Table)
	if err != nil {
		return Status{}, nil, err
	}
	applied := 0
	if exists {
		if applied, err = sess.dialect.AddendaCount(ctx, sess.conn, tr); err != nil {
			return Status{}, nil, err
		}
	} else {
		a.cfg.Logger.Debug("no addenda table", "table", tr.Table)
	}
	st = Status{Dialect: sess.dialect.Name(), Applied: applied, Total: len(a.patches)}
	return st, sess.dialect, nil
}

// session holds the connection for one run.
type session struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect dialect.Dialect
	close   func() error
}

// open connects, pins one connection and resolves the tracking dialect.
// The returned session must be closed on every path.
func (a *Addenda) open(ctx context.Context) (*session, error) {
	if a.cfg.Connector == nil {
		return nil, alerr.New(alerr.ErrConnect, "no connector configured")
	}
	db, err := a.cfg.Connector.Open(ctx)
	if err != nil {
		return nil, err
	}

	sess := &session{db: db}
	sess.close = func() error {
		if sess.conn != nil {
			sess.conn.Close()
		}
		return a.cfg.Connector.Close(db)
	}

	fail := func(err error) (*session, error) {
		sess.close()
		return nil, err
	}

	if a.cfg.Dialect != nil {
		if err := dialect.Check(db, a.cfg.Dialect); err != nil {
			return fail(err)
		}
		sess.dialect = a.cfg.Dialect
	} else {
		d, err := dialect.Resolve(db, a.cfg.Dialects)
		if err != nil {
			d = a.fixedDialect(db)
		}
		if d == nil {
			return fail(err)
		}
		sess.dialect = d
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fail(alerr.Wrap(alerr.ErrConnect, err, "cannot acquire connection"))
	}
	sess.conn = conn
	return sess, nil
}

// fixedDialect returns the first unit dialect the connection accepts. It
// stands in for the registry when no registered dialect matches.
func (a *Addenda) fixedDialect(db *sql.DB) dialect.Dialect {
	for _, p := range a.patches {
		if p.Dialect != nil && dialect.Check(db, p.Dialect) == nil {
			a.cfg.Logger.Debug("dialect fixed by unit", "dialect", p.Dialect.Name(), "patch", p.Name)
			return p.Dialect
		}
	}
	return nil
}

// unitDialect returns the dialect for a unit: its fixed dialect when the
// connection accepts it, otherwise the resolved one.
func (s *session) unitDialect(p *Patch) (dialect.Dialect, error) {
	if p.Dialect == nil {
		return s.dialect, nil
	}
	if err := dialect.Check(s.db, p.Dialect); err != nil {
		return nil, err
	}
	return p.Dialect, nil
}

// unitError adds the 1-based unit number and name to a coded error.
func unitError(err error, index int, p *Patch) error {
	err = alerr.Annotate(err, "unit", index+1)
	if p.Name != "" {
		err = alerr.Annotate(err, "patch", p.Name)
	}
	return err
}
