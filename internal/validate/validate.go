// Package validate lints the tracking schema for names that are legal when
// quoted but awkward across dialects: reserved words, names past the
// identifier length limit, and names that mix conventions.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hlop3z/addenda/internal/schema"
	"github.com/hlop3z/addenda/internal/strutil"
)

// MaxIdentifier is the longest identifier every registered dialect keeps
// intact. PostgreSQL truncates past 63 bytes.
const MaxIdentifier = 63

// Rule names a lint check.
type Rule string

const (
	RuleReserved  Rule = "reserved"
	RuleLength    Rule = "length"
	RuleSnakeCase Rule = "snake_case"
)

// Warning is one finding. Column is empty for table-level findings.
type Warning struct {
	Table   string
	Column  string
	Rule    Rule
	Message string
	Hint    string
}

func (w Warning) String() string {
	name := w.Table
	if w.Column != "" {
		name += "." + w.Column
	}
	return fmt.Sprintf("%s: %s", name, w.Message)
}

// reservedWords are keywords of the SQL standard and the registered
// dialects. Quoting makes them legal, but hand-written SQL against the
// table then needs quoting too.
var reservedWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		add all alter and any as asc between by case check column constraint
		create cross current database default delete desc distinct drop else
		end exists false fetch for foreign from full grant group having if in
		index inner insert into is join key left like limit not null offset on
		or order outer primary references revoke right select set table then to
		true union unique update using values view when where with
		array begin cast commit do except explain ilike intersect isnull lateral
		leading localtime lock natural notnull only returning rollback row
		savepoint similar some symmetric trailing truncate user vacuum
		autoincrement glob regexp replace unsigned zerofill`) {
		reservedWords[w] = true
	}
}

// IsReservedWord reports whether s is a reserved word, ignoring case.
func IsReservedWord(s string) bool {
	return reservedWords[strings.ToLower(s)]
}

var snakeCase = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// IsSnakeCase reports whether s is lower snake_case with no doubled or
// trailing underscores.
func IsSnakeCase(s string) bool {
	return snakeCase.MatchString(s)
}

// Options selects the rules to apply.
type Options struct {
	// SnakeCase flags names that are not snake_case.
	SnakeCase bool
}

// Identifier lints one table or column name.
func Identifier(table, column string, opts Options) []Warning {
	name := table
	if column != "" {
		name = column
	}
	at := func(rule Rule, msg, hint string) Warning {
		return Warning{Table: table, Column: column, Rule: rule, Message: msg, Hint: hint}
	}

	var ws []Warning
	if IsReservedWord(name) {
		ws = append(ws, at(RuleReserved,
			fmt.Sprintf("%q is a reserved word", name),
			"hand-written statements must quote it"))
	}
	if len(name) > MaxIdentifier {
		ws = append(ws, at(RuleLength,
			fmt.Sprintf("name is %d bytes, longer than %d", len(name), MaxIdentifier),
			"postgres truncates it"))
	}
	if opts.SnakeCase && !IsSnakeCase(name) {
		w := at(RuleSnakeCase, "name is not snake_case", "")
		if s := strutil.ToSnakeCase(name); s != name && IsSnakeCase(s) {
			w.Hint = "use " + s
		}
		ws = append(ws, w)
	}
	return ws
}

// Schema lints every table and column of s. Findings are ordered by table,
// then column.
func Schema(s *schema.Schema, opts Options) []Warning {
	if s == nil {
		return nil
	}
	var ws []Warning
	for _, table := range s.TableNames() {
		ws = append(ws, Identifier(table, "", opts)...)

		e, _ := s.Table(table)
		cols := e.Columns()
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		sort.Strings(names)
		for _, name := range names {
			ws = append(ws, Identifier(table, name, opts)...)
		}
	}
	return ws
}
