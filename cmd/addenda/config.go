package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/chain"
	"github.com/hlop3z/addenda/internal/definition"
	"github.com/hlop3z/addenda/internal/lockfile"
	"github.com/hlop3z/addenda/pkg/addenda"
)

const defaultConfigFile = "addenda.yaml"

// Config represents the addenda.yaml configuration file.
type Config struct {
	DatabaseURL   string        `yaml:"database_url"`
	Driver        string        `yaml:"driver"`
	Definitions   []string      `yaml:"definitions"`
	Tracking      Tracking      `yaml:"tracking"`
	Transactional *bool         `yaml:"transactional"`
	Timeout       time.Duration `yaml:"timeout"`
	LogLevel      string        `yaml:"log_level"`
	LockFile      string        `yaml:"lock_file"`

	path string // config file the values were read from
}

// Tracking names the applied-count table.
type Tracking struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// loadConfig loads configuration from file, env vars and CLI flags.
// Precedence: CLI flags > env vars > config file > defaults.
//
// A missing default config file is not an error; a missing file named with
// --config is.
func loadConfig(g *globalFlags, explicit bool) (*Config, error) {
	cfg := &Config{LogLevel: "info", path: g.configFile}

	data, err := os.ReadFile(g.configFile)
	switch {
	case err == nil:
		// ${VAR} references are expanded before parsing.
		expanded := os.Expand(string(data), os.Getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "cannot parse config file").
				With("path", g.configFile)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "cannot read config file").
			With("path", g.configFile)
	}

	if env := os.Getenv("DATABASE_URL"); env != "" {
		cfg.DatabaseURL = env
	}
	if env := os.Getenv("ADDENDA_DEFINITIONS"); env != "" {
		cfg.Definitions = filepath.SplitList(env)
	}

	if g.databaseURL != "" {
		cfg.DatabaseURL = g.databaseURL
	}
	if g.driver != "" {
		cfg.Driver = g.driver
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

// definitionFiles expands glob patterns. Each pattern's matches are sorted;
// patterns keep their configured order. A pattern matching nothing is kept
// as written so loading reports it.
func (c *Config) definitionFiles() ([]string, error) {
	if len(c.Definitions) == 0 {
		return nil, alerr.New(alerr.ErrConfigInvalid, "no definition files configured").
			WithHelp("set definitions in " + defaultConfigFile + " or ADDENDA_DEFINITIONS")
	}
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range c.Definitions {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, alerr.Wrap(alerr.ErrConfigInvalid, err, "invalid definition pattern").
				With("pattern", pattern)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// lockPath returns the lock file location. Relative paths are resolved
// against the directory of the config file.
func (c *Config) lockPath() string {
	p := c.LockFile
	if p == "" {
		p = lockfile.DefaultPath
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

// options translates the configuration into library options.
func (c *Config) options(log *slog.Logger) []addenda.Option {
	opts := []addenda.Option{
		addenda.WithLogger(log),
		addenda.WithTracking(c.Tracking.Table, c.Tracking.Column),
		addenda.WithTimeout(c.Timeout),
	}
	if c.DatabaseURL != "" {
		opts = append(opts, addenda.WithDatabaseURL(c.DatabaseURL), addenda.WithDriver(c.Driver))
	}
	if c.Transactional != nil {
		opts = append(opts, addenda.WithTransactional(*c.Transactional))
	}
	return opts
}

// newLogger builds the slog logger for --log-level and --log-format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, alerr.New(alerr.ErrConfigInvalid, "unknown log format").
		With("format", format).
		WithHelp("use text or json")
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, alerr.New(alerr.ErrConfigInvalid, "unknown log level").
		With("level", level)
}

// app is what a command needs after flags and config are resolved.
type app struct {
	cfg *Config
	log *slog.Logger
}

func setup(cmd *cobra.Command, g *globalFlags) (*app, error) {
	cfg, err := loadConfig(g, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, g.logFormat)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

// openSet builds the migration set from the configured definition files.
func (a *app) openSet() (*addenda.Addenda, error) {
	files, err := a.cfg.definitionFiles()
	if err != nil {
		return nil, err
	}
	set, err := addenda.New(a.cfg.options(a.log)...)
	if err != nil {
		return nil, err
	}
	if err := set.Load(files...); err != nil {
		return nil, err
	}
	a.log.Debug("definitions loaded", "files", len(files), "units", set.Len())
	return set, nil
}

// checksums computes the checksum chain of the configured definition files.
func (a *app) checksums() (*chain.Chain, error) {
	files, err := a.cfg.definitionFiles()
	if err != nil {
		return nil, err
	}
	doc, err := definition.Load(files...)
	if err != nil {
		return nil, err
	}
	return chain.Compute(doc.Units)
}

// verifyLock checks the definitions against the lock file. Without a lock
// file there is nothing to verify.
func (a *app) verifyLock() error {
	c, err := a.checksums()
	if err != nil {
		return err
	}
	r, err := lockfile.Verify(a.cfg.lockPath(), c)
	if err != nil || r == nil {
		return err
	}
	if err := r.Err(); err != nil {
		return alerr.Annotate(err, "lock", a.cfg.lockPath())
	}
	a.log.Debug("lock verified", "verified", len(r.Verified), "new", len(r.New))
	return nil
}

// requireDatabase fails when no database URL is configured.
func (a *app) requireDatabase() error {
	if a.cfg.DatabaseURL == "" {
		return alerr.New(alerr.ErrConfigInvalid, "no database url configured").
			WithHelp("set database_url in " + defaultConfigFile + ", DATABASE_URL or --database-url")
	}
	return nil
}
