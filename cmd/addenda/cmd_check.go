package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/validate"
)

// checkCmd lints table and column names of the tracking schema.
func checkCmd(g *globalFlags) *cobra.Command {
	var (
		opts   validate.Options
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Lint table and column names",
		Long: `Replay every unit and lint the table and column names of the resulting
schema. Names are always quoted, so findings are warnings unless --strict
is given.`,
		Example: `  # Warn about reserved words and long names
  addenda check

  # Also require snake_case and fail on any finding
  addenda check --snake-case --strict`,
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

			out := cmd.OutOrStdout()
			ws := validate.Schema(s, opts)
			for _, w := range ws {
				fmt.Fprint(out, cli.FormatWarning(w.String()))
				if w.Hint != "" {
					fmt.Fprint(out, cli.FormatNote(w.Hint))
				}
			}
			if len(ws) == 0 {
				fmt.Fprint(out, cli.FormatSuccess(fmt.Sprintf("%s checked",
					cli.FormatCount(s.Len(), "table", "tables"))))
				return nil
			}
			if strict {
				return alerr.New(alerr.ErrDefinitionInvalid, "schema names need attention").
					With("warnings", len(ws))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.SnakeCase, "snake-case", false, "Require snake_case names")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any name is flagged")
	return cmd
}
