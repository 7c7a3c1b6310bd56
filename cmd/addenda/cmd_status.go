package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/cli"
)

// unitStatus is one row of `status --json`.
type unitStatus struct {
	Unit    int    `json:"unit"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// statusCmd shows which units the database has applied.
func statusCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied/pending migration units",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g)
			if err != nil {
				return err
			}
			if err := a.requireDatabase(); err != nil {
				return err
			}
			set, err := a.openSet()
			if err != nil {
				return err
			}
			st, err := set.Status(cmd.Context())
			if err != nil {
				return err
			}

			names := set.Names()
			units := make([]unitStatus, len(names))
			for i, name := range names {
				units[i] = unitStatus{Unit: i + 1, Name: name, Applied: i < st.Applied}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"dialect": st.Dialect,
					"applied": st.Applied,
					"pending": st.Pending(),
					"units":   units,
				})
			}

			fmt.Fprintln(out, cli.RenderTitle("Migration Status"))
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.KeyValue(
				"dialect", st.Dialect,
				"applied", fmt.Sprint(st.Applied),
				"pending", fmt.Sprint(st.Pending()),
			))
			fmt.Fprintln(out)
			for _, u := range units {
				fmt.Fprintln(out, cli.StatusLine(u.Applied, u.Unit, u.Name))
			}
			if st.Applied > len(units) {
				fmt.Fprint(out, cli.FormatWarning(fmt.Sprintf(
					"database has applied %d units but only %d are defined", st.Applied, len(units))))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
