// Package addenda is a forward-only schema migration engine. A migration
// set is an append-only list of units; each run replays every unit against
// an in-memory tracking schema and sends statements only for the units the
// database has not applied yet.
//
// Example:
//
//	set, err := addenda.New(addenda.WithDatabaseURL("postgres://localhost/app"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = set.Unit(addenda.UnitName("create person")).
//	    Create("Person", "person").
//	    ID().End().
//	    String("name", 64).NotNull().End().
//	    End().
//	    Commit()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := set.Amend(ctx); err != nil {
//	    log.Fatal(err)
//	}
package addenda

import (
	"context"
	"log/slog"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/connector"
	"github.com/hlop3z/addenda/internal/definition"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/drift"
	"github.com/hlop3z/addenda/internal/dsl"
	"github.com/hlop3z/addenda/internal/engine"
	"github.com/hlop3z/addenda/internal/schema"
)

// Addenda is a migration set bound to one database.
type Addenda struct {
	cfg *Config
	set *engine.Addenda
}

// New creates an empty migration set. A database URL is resolved to a
// connector here, so an unknown driver fails before any unit is defined.
// A set without a connector can still define, plan and fingerprint units.
func New(opts ...Option) (*Addenda, error) {
	cfg := &Config{Transactional: true}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Connector == nil && cfg.DatabaseURL != "" {
		c, err := connector.FromURL(cfg.DatabaseURL, cfg.Driver)
		if err != nil {
			return nil, err
		}
		cfg.Connector = c
	}
	if cfg.Timeout < 0 {
		return nil, alerr.New(alerr.ErrConfigInvalid, "timeout must not be negative").
			With("timeout", cfg.Timeout)
	}

	set := engine.New(engine.Config{
		Connector:     cfg.Connector,
		Dialects:      cfg.Dialects,
		Dialect:       cfg.Dialect,
		Tracking:      cfg.tracking(),
		Transactional: cfg.Transactional,
		Logger:        cfg.Logger,
	})
	return &Addenda{cfg: cfg, set: set}, nil
}

// Unit starts a new unit. The unit joins the set when Commit succeeds.
func (a *Addenda) Unit(opts ...UnitOption) Creating {
	return dsl.New(a.set, opts...)
}

// Define appends the units of defs in order, stopping at the first failure.
func (a *Addenda) Define(defs ...Definition) error {
	return dsl.Define(a.set, defs...)
}

// Load appends the units of YAML definition files, in the order given.
func (a *Addenda) Load(paths ...string) error {
	doc, err := definition.Load(paths...)
	if err != nil {
		return err
	}
	return doc.Define(a.set)
}

// Len returns the number of units in the set.
func (a *Addenda) Len() int {
	return a.set.Len()
}

// Names returns the unit names in order. Unnamed units are "".
func (a *Addenda) Names() []string {
	patches := a.set.Patches()
	names := make([]string, len(patches))
	for i, p := range patches {
		names[i] = p.Name
	}
	return names
}

// Amend applies every pending unit.
func (a *Addenda) Amend(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.set.Amend(ctx)
}

// Status reads the applied count.
func (a *Addenda) Status(ctx context.Context) (Status, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.set.Status(ctx)
}

// Plan renders the statements of the pending units without running them.
func (a *Addenda) Plan(ctx context.Context) (Status, []Step, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.set.Plan(ctx)
}

// PlanFor renders the statements of the units past applied for d, without
// a connection.
func (a *Addenda) PlanFor(d Dialect, applied int) ([]Step, error) {
	return a.set.PlanFor(d, applied)
}

// Schema replays every unit and returns the tracking schema.
func (a *Addenda) Schema() (*schema.Schema, error) {
	return a.set.Schema()
}

// Fingerprint hashes the tracking schema after the last unit.
func (a *Addenda) Fingerprint() (*SchemaHash, error) {
	return drift.Fingerprint(a.set.Snapshot())
}

// Dialects lists the names of the registered dialects.
func Dialects() []string {
	return dialect.Names()
}

func (a *Addenda) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}
