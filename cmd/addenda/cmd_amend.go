package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/pkg/addenda"
)

// amendCmd applies pending units.
func amendCmd(g *globalFlags) *cobra.Command {
	var (
		dryRun   bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Apply pending migration units",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g)
			if err != nil {
				return err
			}
			if err := a.requireDatabase(); err != nil {
				return err
			}
			if !noVerify {
				if err := a.verifyLock(); err != nil {
					return err
				}
			}
			set, err := a.openSet()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				st, steps, err := set.Plan(cmd.Context())
				if err != nil {
					return err
				}
				printPlan(out, st, steps)
				return nil
			}

			if err := set.Amend(cmd.Context()); err != nil {
				return err
			}
			st, err := set.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(out, cli.FormatSuccess(fmt.Sprintf("%s applied (%s)",
				cli.FormatCount(st.Applied, "unit", "units"), st.Dialect)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements of pending units without running them")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip checking the definitions against the lock file")
	return cmd
}

// printPlan prints each pending database update with its statements.
func printPlan(w io.Writer, st addenda.Status, steps []addenda.Step) {
	if st.UpToDate() {
		fmt.Fprint(w, cli.FormatSuccess("nothing to apply"))
		return
	}
	fmt.Fprintf(w, "%s pending on %s\n\n", cli.FormatCount(st.Pending(), "unit", "units"), st.Dialect)

	unit := 0
	for _, s := range steps {
		if s.Unit != unit {
			unit = s.Unit
			name := s.Patch
			if name == "" {
				name = cli.Dim("(unnamed)")
			}
			fmt.Fprintf(w, "%s %d  %s\n", cli.RenderPendingBadge(), s.Unit, name)
		}
		fmt.Fprintf(w, "  %s\n", s.Description)
		for _, stmt := range s.Statements {
			fmt.Fprintf(w, "    %s\n", cli.SQL(stmt.SQL))
		}
	}
}
