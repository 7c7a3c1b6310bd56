package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/dialect"
)

// dialectsCmd lists the registered dialects and whether each is probed
// when no dialect is fixed.
func dialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			probed := make(map[string]bool)
			for _, d := range dialect.Default() {
				probed[d.Name()] = true
			}

			t := cli.NewTable("DIALECT", "PROBED", "TRANSACTIONAL DDL")
			for _, name := range dialect.Names() {
				d := dialect.Get(name)
				t.AddRow(name, yesNo(probed[name]), yesNo(d.SupportsTransactionalDDL()))
			}
			fmt.Fprint(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
