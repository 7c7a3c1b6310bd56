package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/chain"
	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/lockfile"
)

// verifyCmd checks the definitions against the lock file.
func verifyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the definitions against the lock file",
		Long: `Check that no locked unit was edited or removed since the lock file was
written. Units added after the lock are listed as new.`,
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
			r, err := lockfile.Verify(path, c)
			if err != nil {
				return err
			}
			if r == nil {
				return alerr.New(alerr.ErrLockRead, "no lock file").
					With("path", path).
					WithHelp("create it with `addenda lock`")
			}

			out := cmd.OutOrStdout()
			printVerify(out, r)
			if err := r.Err(); err != nil {
				return alerr.Annotate(err, "lock", path)
			}
			fmt.Fprint(out, cli.FormatSuccess(fmt.Sprintf("%s verified", cli.FormatCount(len(r.Verified), "unit", "units"))))
			return nil
		},
	}
	return cmd
}

func printVerify(w io.Writer, r *chain.Result) {
	t := cli.NewTable("UNIT", "STATE", "NAME", "CHECKSUM")
	for _, l := range r.Verified {
		t.AddRow(fmt.Sprint(l.Unit), "verified", l.Name, short(l.Checksum))
	}
	for _, m := range r.Modified {
		state := "moved"
		if m.Edited {
			state = "edited"
		}
		t.AddRow(fmt.Sprint(m.Link.Unit), state, m.Link.Name, short(m.Link.Checksum))
	}
	for _, l := range r.Removed {
		t.AddRow(fmt.Sprint(l.Unit), "removed", l.Name, short(l.Checksum))
	}
	for _, l := range r.New {
		t.AddRow(fmt.Sprint(l.Unit), "new", l.Name, short(l.Checksum))
	}
	fmt.Fprintln(w, t.String())
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
