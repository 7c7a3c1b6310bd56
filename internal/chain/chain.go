// Package chain computes checksum chains over migration units. Each unit's
// checksum is sha256(content + previous checksum), so editing a unit changes
// its checksum and the checksum of every unit after it.
package chain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/definition"
)

// Genesis is the previous checksum of the first unit.
const Genesis = "genesis"

// Link is one unit in the chain.
type Link struct {
	Unit         int    // 1-based
	Name         string
	Content      string // sha256 of the unit alone
	Checksum     string // sha256(content + PrevChecksum)
	PrevChecksum string
}

// Chain is the ordered list of links of a migration set.
type Chain struct {
	Links []Link
}

// Compute builds the chain of units in order.
func Compute(units []definition.Unit) (*Chain, error) {
	c := &Chain{Links: make([]Link, 0, len(units))}
	prev := Genesis
	for i, u := range units {
		data, err := u.Canonical()
		if err != nil {
			return nil, alerr.Annotate(err, "unit", i+1)
		}
		sum := sha256.Sum256(data)
		link := Link{
			Unit:         i + 1,
			Name:         u.Name,
			Content:      hex.EncodeToString(sum[:]),
			PrevChecksum: prev,
		}
		link.Checksum = checksum(link.Content, prev)
		c.Links = append(c.Links, link)
		prev = link.Checksum
	}
	return c, nil
}

// Head returns the checksum of the last link, or Genesis if empty.
func (c *Chain) Head() string {
	if len(c.Links) == 0 {
		return Genesis
	}
	return c.Links[len(c.Links)-1].Checksum
}

// Relink recomputes the checksums from the content hashes and reports
// whether they match the stored ones.
func Relink(links []Link) bool {
	prev := Genesis
	for _, l := range links {
		if l.PrevChecksum != prev || l.Checksum != checksum(l.Content, prev) {
			return false
		}
		prev = l.Checksum
	}
	return true
}

func checksum(content, prev string) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte(prev))
	return hex.EncodeToString(h.Sum(nil))
}

// -----------------------------------------------------------------------------
// Verification
// -----------------------------------------------------------------------------

// Mismatch is a locked unit whose checksum no longer matches.
type Mismatch struct {
	Link   Link // current
	Locked Link // as locked
	Edited bool // the unit itself changed, not only a unit before it
}

// Result lists how the current chain relates to a locked one.
type Result struct {
	Verified []Link
	Modified []Mismatch
	Removed  []Link // locked but no longer defined
	New      []Link // defined after the lock was written
}

// Valid reports whether every locked unit is still defined unchanged.
// New units are allowed: a migration set only grows.
func (r *Result) Valid() bool {
	return len(r.Modified) == 0 && len(r.Removed) == 0
}

// Err returns nil for a valid result, otherwise an error naming the first
// edited or removed unit.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	help := "units are append-only: revert the edit and add a new unit instead"
	for _, m := range r.Modified {
		if m.Edited {
			return alerr.New(alerr.ErrLockMismatch, "locked unit was edited").
				With("unit", m.Link.Unit).
				With("patch", m.Link.Name).
				With("modified", len(r.Modified)).
				WithHelp(help)
		}
	}
	if len(r.Removed) > 0 {
		l := r.Removed[0]
		return alerr.New(alerr.ErrLockMismatch, "locked unit was removed").
			With("unit", l.Unit).
			With("patch", l.Name).
			With("removed", len(r.Removed)).
			WithHelp(help)
	}
	return alerr.New(alerr.ErrLockMismatch, "locked units do not match").
		With("unit", r.Modified[0].Link.Unit).
		With("modified", len(r.Modified))
}

// Verify compares the chain position by position with locked links.
func (c *Chain) Verify(locked []Link) *Result {
	r := &Result{}
	for i, l := range c.Links {
		if i >= len(locked) {
			r.New = append(r.New, l)
			continue
		}
		lk := locked[i]
		if l.Checksum == lk.Checksum {
			r.Verified = append(r.Verified, l)
			continue
		}
		r.Modified = append(r.Modified, Mismatch{Link: l, Locked: lk, Edited: l.Content != lk.Content})
	}
	if len(locked) > len(c.Links) {
		r.Removed = append(r.Removed, locked[len(c.Links):]...)
	}
	return r
}
