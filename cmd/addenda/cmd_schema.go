package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/schema"
)

// schemaCmd replays every unit and prints the resulting tracking schema.
// No database connection is needed.
func schemaCmd(g *globalFlags) *cobra.Command {
	var rootOnly bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the tracking schema and its fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g)
			if err != nil {
				return err
			}
			set, err := a.openSet()
			if err != nil {
				return err
			}
			s, err := set.Schema()
			if err != nil {
				return err
			}
			hash, err := set.Fingerprint()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rootOnly {
				fmt.Fprintln(out, hash.Root)
				return nil
			}
			printSchema(out, s)
			fmt.Fprint(out, cli.KeyValue(
				"units", fmt.Sprint(set.Len()),
				"tables", fmt.Sprint(s.Len()),
				"fingerprint", hash.Root,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rootOnly, "fingerprint", false, "Print only the fingerprint")
	return cmd
}

func printSchema(w io.Writer, s *schema.Schema) {
	aliases := make(map[string][]string)
	for _, alias := range s.Aliases() {
		table, _ := s.AliasTable(alias)
		aliases[table] = append(aliases[table], alias)
	}

	for _, name := range s.TableNames() {
		e, _ := s.Table(name)

		title := name
		if as := aliases[name]; len(as) > 0 {
			sort.Strings(as)
			title += " (" + strings.Join(as, ", ") + ")"
		}

		pk := make(map[string]bool)
		for _, p := range e.PrimaryKey {
			pk[p] = true
		}

		t := cli.NewTable("PROPERTY", "COLUMN", "TYPE", "NULL", "DEFAULT", "KEY")
		for _, col := range e.Columns() {
			property, _ := e.PropertyOf(col.Name)
			key := ""
			if pk[col.Name] {
				key = "pk"
			}
			if col.Generator != schema.NoGenerator {
				key = strings.TrimSpace(key + " " + col.Generator.String())
			}
			def := ""
			if col.HasDefault {
				def = col.Default
			}
			t.AddRow(property, col.Name, typeString(col), yesNo(!col.NotNull), def, key)
		}
		fmt.Fprintln(w, cli.Section(title, t.String()))
	}
}

// typeString renders a column type with its sizes, e.g. DECIMAL(10,2).
func typeString(col schema.Column) string {
	s := col.Type.String()
	switch {
	case col.Precision > 0 && col.Scale > 0:
		s += fmt.Sprintf("(%d,%d)", col.Precision, col.Scale)
	case col.Precision > 0:
		s += fmt.Sprintf("(%d)", col.Precision)
	case col.Length > 0:
		s += fmt.Sprintf("(%d)", col.Length)
	}
	return s
}
