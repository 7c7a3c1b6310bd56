package engine

import (
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
)

// Status is the applied state of a migration set against one database.
type Status struct {
	Dialect string
	Applied int
	Total   int
}

// Pending returns the number of units not yet applied.
func (s Status) Pending() int {
	return max(s.Total-s.Applied, 0)
}

// UpToDate reports whether every unit has been applied.
func (s Status) UpToDate() bool {
	return s.Pending() == 0
}

// Step is one database update of a pending unit with the statements it
// would send.
type Step struct {
	Unit        int // 1-based
	Patch       string
	Description string
	Statements  []Statement
}

// PlanFor replays every unit and renders the database updates of the units
// past applied with d. Nothing is executed. Statements that depend on
// database state (NOT NULL on ADD COLUMN) assume a populated table.
func (a *Addenda) PlanFor(d dialect.Dialect, applied int) ([]Step, error) {
	var steps []Step
	s := schema.New()
	for i, p := range a.patches {
		updates, err := p.Apply(s)
		if err != nil {
			return nil, unitError(err, i, p)
		}
		if i < applied {
			continue
		}
		ud := d
		if p.Dialect != nil {
			ud = p.Dialect
		}
		for _, u := range updates {
			stmts, err := u.Plan(ud)
			if err != nil {
				return nil, unitError(err, i, p)
			}
			steps = append(steps, Step{
				Unit:        i + 1,
				Patch:       p.Name,
				Description: u.Describe(),
				Statements:  stmts,
			})
		}
	}
	return steps, nil
}
