// Package drift fingerprints tracking schemas with merkle trees. Two
// schemas with the same tables, columns and primary keys share a root
// hash; when roots differ, the per-table and per-column hashes locate the
// change without walking both schemas.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/schema"
)

// SchemaHash is the merkle root of a schema plus its table hashes.
type SchemaHash struct {
	Root   string
	Tables map[string]*TableHash
}

// TableHash is the hash of one table and of each of its columns.
type TableHash struct {
	Name    string
	Hash    string
	Columns map[string]string // column name -> hash
}

// tableContent is a merkle leaf.
type tableContent struct {
	name string
	hash string
}

func (t tableContent) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(t.name + ":" + t.hash))
	return h[:], nil
}

func (t tableContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(tableContent)
	if !ok {
		return false, nil
	}
	return t.name == o.name && t.hash == o.hash, nil
}

// Fingerprint hashes s. Aliases are not part of the fingerprint: they name
// tables for definitions but leave the database untouched.
func Fingerprint(s *schema.Schema) (*SchemaHash, error) {
	result := &SchemaHash{Tables: make(map[string]*TableHash)}
	if s == nil || s.Len() == 0 {
		result.Root = emptyHash()
		return result, nil
	}

	var leaves []merkletree.Content
	for _, name := range s.TableNames() {
		e, _ := s.Table(name)
		th := tableHash(e)
		result.Tables[name] = th
		leaves = append(leaves, tableContent{name: name, hash: th.Hash})
	}

	tree, err := merkletree.NewTree(leaves)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrFingerprint, err, "cannot build merkle tree").
			With("tables", len(leaves))
	}
	result.Root = hex.EncodeToString(tree.MerkleRoot())
	return result, nil
}

func tableHash(e *schema.Entity) *TableHash {
	th := &TableHash{Name: e.Table, Columns: make(map[string]string)}

	cols := e.Columns()
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		property, _ := e.PropertyOf(col.Name)
		th.Columns[col.Name] = columnHash(property, col)
		names = append(names, col.Name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + th.Columns[name]
	}
	th.Hash = hashString(fmt.Sprintf("table:%s|columns:[%s]|pk:[%s]",
		e.Table,
		strings.Join(parts, ","),
		strings.Join(e.PrimaryKey, ","),
	))
	return th
}

// columnHash covers the full column definition and the property mapped to
// it, since a remapped property changes what definitions address.
func columnHash(property string, col schema.Column) string {
	data := fmt.Sprintf("property:%s|name:%s|type:%s|length:%d|precision:%d|scale:%d|notnull:%v|generator:%s",
		property,
		col.Name,
		col.Type,
		col.Length,
		col.Precision,
		col.Scale,
		col.NotNull,
		col.Generator,
	)
	if col.HasDefault {
		data += "|default:" + col.Default
	}
	return hashString(data)
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func emptyHash() string {
	return hashString("empty_schema")
}

// -----------------------------------------------------------------------------
// Comparison
// -----------------------------------------------------------------------------

// Comparison lists the differences between two schema hashes.
type Comparison struct {
	Match         bool
	BeforeRoot    string
	AfterRoot     string
	TableDiffs    map[string]*TableDiff
	AddedTables   []string
	RemovedTables []string
}

// TableDiff lists the column differences within one table.
type TableDiff struct {
	Name            string
	AddedColumns    []string
	RemovedColumns  []string
	ModifiedColumns []string
}

// Changed reports whether any column differs. A table whose primary key
// alone changed has a diff with no column changes.
func (d *TableDiff) Changed() bool {
	return len(d.AddedColumns) > 0 || len(d.RemovedColumns) > 0 || len(d.ModifiedColumns) > 0
}

// Tables returns the names of every table that differs, sorted.
func (c *Comparison) Tables() []string {
	names := make([]string, 0, len(c.AddedTables)+len(c.RemovedTables)+len(c.TableDiffs))
	names = append(names, c.AddedTables...)
	names = append(names, c.RemovedTables...)
	for name := range c.TableDiffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compare reports how after differs from before.
func Compare(before, after *SchemaHash) *Comparison {
	c := &Comparison{
		Match:      before.Root == after.Root,
		BeforeRoot: before.Root,
		AfterRoot:  after.Root,
		TableDiffs: make(map[string]*TableDiff),
	}
	if c.Match {
		return c
	}

	for name := range after.Tables {
		if _, ok := before.Tables[name]; !ok {
			c.AddedTables = append(c.AddedTables, name)
		}
	}
	for name, b := range before.Tables {
		a, ok := after.Tables[name]
		if !ok {
			c.RemovedTables = append(c.RemovedTables, name)
			continue
		}
		if a.Hash != b.Hash {
			c.TableDiffs[name] = compareTables(b, a)
		}
	}
	sort.Strings(c.AddedTables)
	sort.Strings(c.RemovedTables)
	return c
}

func compareTables(before, after *TableHash) *TableDiff {
	d := &TableDiff{Name: before.Name}
	for name, h := range before.Columns {
		ah, ok := after.Columns[name]
		switch {
		case !ok:
			d.RemovedColumns = append(d.RemovedColumns, name)
		case ah != h:
			d.ModifiedColumns = append(d.ModifiedColumns, name)
		}
	}
	for name := range after.Columns {
		if _, ok := before.Columns[name]; !ok {
			d.AddedColumns = append(d.AddedColumns, name)
		}
	}
	sort.Strings(d.AddedColumns)
	sort.Strings(d.RemovedColumns)
	sort.Strings(d.ModifiedColumns)
	return d
}
