// Package main provides the addenda CLI. Migration units are read from YAML
// definition files and applied forward-only to the configured database.
//
// Usage:
//
//	addenda amend             # Apply pending units
//	addenda amend --dry-run   # Print the statements of pending units
//	addenda status            # Show applied/pending units
//	addenda schema            # Show the tracking schema and its fingerprint
//	addenda watch             # Amend whenever a definition file changes
//	addenda lock              # Record unit checksums in addenda.lock
//	addenda verify            # Check the definitions against addenda.lock
//	addenda check             # Lint table and column names
//	addenda dialects          # List registered dialects
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hlop3z/addenda/internal/cli"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile  string
	databaseURL string
	driver      string
	logLevel    string
	logFormat   string
	noColor     bool
}

func (g *globalFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configFile, "config", "c", defaultConfigFile, "Path to config file")
	fs.StringVarP(&g.databaseURL, "database-url", "d", "", "Database connection URL")
	fs.StringVar(&g.driver, "driver", "", "Database driver (postgres, pgx, mysql, sqlite)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "addenda",
		Short:         "Forward-only schema migrations",
		Long:          `addenda applies append-only migration units to a relational database. Only units past the database's applied count send statements.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				cli.SetDefault(&cli.Config{Mode: cli.ModePlain, Writer: cmd.OutOrStdout()})
			}
		},
	}

	g.bind(root.PersistentFlags())

	root.AddCommand(
		amendCmd(g),
		statusCmd(g),
		schemaCmd(g),
		watchCmd(g),
		lockCmd(g),
		verifyCmd(g),
		checkCmd(g),
		dialectsCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
