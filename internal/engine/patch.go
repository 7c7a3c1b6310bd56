package engine

import (
	"slices"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/dialect"
	"github.com/hlop3z/addenda/internal/schema"
)

// Patch is one migration unit: an append-only, ordered list of schema
// updates applied (or skipped) as a whole.
type Patch struct {
	// Name is an optional label used in logs and error context.
	Name string

	// Dialect, when set, is used for this unit instead of the resolved one.
	// The connection must still be translatable by it.
	Dialect dialect.Dialect

	updates []SchemaUpdate
}

// NewPatch creates an empty unit.
func NewPatch(name string, d dialect.Dialect) *Patch {
	return &Patch{Name: name, Dialect: d}
}

// Append adds updates to the end of the unit.
func (p *Patch) Append(updates ...SchemaUpdate) {
	p.updates = append(p.updates, updates...)
}

// Updates returns the unit's schema updates in order.
func (p *Patch) Updates() []SchemaUpdate {
	return slices.Clone(p.updates)
}

// Len returns the number of schema updates.
func (p *Patch) Len() int {
	return len(p.updates)
}

// Apply replays the unit against s and returns the database updates in the
// same order. It stops at the first failing update; s may then be partially
// updated.
func (p *Patch) Apply(s *schema.Schema) ([]DatabaseUpdate, error) {
	out := make([]DatabaseUpdate, 0, len(p.updates))
	for i, u := range p.updates {
		du, err := u.Execute(s)
		if err != nil {
			return nil, alerr.Annotate(err, "step", i+1)
		}
		out = append(out, du)
	}
	return out, nil
}
