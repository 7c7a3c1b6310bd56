package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/cli"
	"github.com/hlop3z/addenda/internal/drift"
)

// watchCmd amends the database whenever a definition file changes.
func watchCmd(g *globalFlags) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Amend the database whenever a definition file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debounce <= 0 {
				return alerr.New(alerr.ErrConfigInvalid, "debounce must be positive").
					With("debounce", debounce.String())
			}
			a, err := setup(cmd, g)
			if err != nil {
				return err
			}
			if err := a.requireDatabase(); err != nil {
				return err
			}
			w := &watcher{
				app:      a,
				debounce: debounce,
				out:      cmd.OutOrStdout(),
				errOut:   cmd.ErrOrStderr(),
			}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before amending after a change")
	return cmd
}

// watcher reloads the definitions and amends after file changes settle.
// Failures are reported and the watch continues.
type watcher struct {
	app      *app
	debounce time.Duration
	out      io.Writer
	errOut   io.Writer

	// last is the fingerprint of the last amended migration set.
	last *drift.SchemaHash
}

func (w *watcher) run(ctx context.Context) error {
	files, err := w.app.cfg.definitionFiles()
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return alerr.Wrap(alerr.ErrConfigInvalid, err, "cannot start file watcher")
	}
	defer fsw.Close()

	// Directories are watched so editors that save by rename are seen.
	dirs := make(map[string]bool)
	for _, f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return alerr.Wrap(alerr.ErrConfigInvalid, err, "cannot watch directory").
				With("path", dir)
		}
		dirs[dir] = true
	}
	fmt.Fprintf(w.out, "watching %s\n", cli.FormatCount(len(files), "definition file", "definition files"))

	w.report(w.apply(ctx))

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var pending bool
	var changed time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 && w.matches(event.Name) {
				w.app.log.Debug("definition changed", "path", event.Name, "op", event.Op.String())
				pending = true
				changed = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.app.log.Error("file watcher error", "err", err)

		case <-ticker.C:
			if pending && time.Since(changed) >= w.debounce {
				pending = false
				w.report(w.apply(ctx))
			}
		}
	}
}

// matches reports whether path is one of the configured definition files.
// Patterns are matched again so files created after the start are seen.
func (w *watcher) matches(path string) bool {
	path = filepath.Clean(path)
	for _, pattern := range w.app.cfg.Definitions {
		if ok, _ := filepath.Match(filepath.Clean(pattern), path); ok {
			return true
		}
	}
	return false
}

// apply reloads the definitions, prints the tables whose tracking schema
// changed since the last run and amends.
func (w *watcher) apply(ctx context.Context) error {
	set, err := w.app.openSet()
	if err != nil {
		return err
	}
	hash, err := set.Fingerprint()
	if err != nil {
		return err
	}

	if w.last != nil {
		c := drift.Compare(w.last, hash)
		if c.Match {
			fmt.Fprint(w.out, cli.FormatNote("tracking schema unchanged"))
		}
		for _, t := range c.AddedTables {
			fmt.Fprintf(w.out, "  + %s\n", t)
		}
		for _, t := range c.RemovedTables {
			fmt.Fprintf(w.out, "  - %s\n", t)
		}
		for _, t := range c.Tables() {
			if d, ok := c.TableDiffs[t]; ok {
				fmt.Fprintf(w.out, "  ~ %s\n", d.Name)
			}
		}
	}

	if err := set.Amend(ctx); err != nil {
		return err
	}
	w.last = hash

	st, err := set.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(w.out, cli.FormatSuccess(fmt.Sprintf("%s applied", cli.FormatCount(st.Applied, "unit", "units"))))
	return nil
}

func (w *watcher) report(err error) {
	if err != nil {
		fmt.Fprint(w.errOut, cli.FormatError(err))
	}
}
