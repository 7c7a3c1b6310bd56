package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/lockfile"
)

// lockCmd writes the lock file from the current definitions.
func lockCmd(g *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Record unit checksums in the lock file",
		Long: `Record the checksum of every unit in the lock file.

Commit the lock file with the definitions. amend and verify refuse to run
when a locked unit was edited or removed; new units are always allowed.`,
		Example: `  # Lock the current units
  addenda lock

  # Rewrite the lock after an intentional edit
  addenda lock --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, g)
			if err != nil {
				return err
			}
			c, err := a.checksums()
			if err != nil {
				return err
			}
			path := a.cfg.lockPath()

			if !force {
				r, err := lockfile.Verify(path, c)
				if err != nil {
					return err
				}
				if r != nil {
					if err := r.Err(); err != nil {
						return err
					}
				}
			}

			if err := lockfile.Write(path, c); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s locked in %s",
				cli.FormatCount(len(c.Links), "unit", "units"), path)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the lock even if locked units changed")
	return cmd
}
