package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hlop3z/addenda/internal/alerr"
	"github.com/hlop3z/addenda/internal/testutil"
)

const personUnit = `
units:
  - name: create person
    steps:
      - create:
          alias: Person
          table: person
          columns:
            - {property: id, type: INTEGER, not_null: true, generator: preferred}
            - {property: name, type: VARCHAR, length: 64}
          primary_key: [id]
      - insert: {alias: Person, columns: [name], values: [[Alan]]}
`

const ageUnit = `
  - name: add age
    steps:
      - alter:
          alias: Person
          changes:
            - add: {property: age, type: INTEGER, default: 0}
`

// project writes a config file and one definition file and returns the
// config path and the database path.
func project(t *testing.T, units string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	defs := filepath.Join(dir, "units.yaml")
	testutil.WriteFile(t, defs, units)

	t.Setenv("ADDENDA_TEST_DB", dbPath)
	config := filepath.Join(dir, "addenda.yaml")
	testutil.WriteFile(t, config, "database_url: sqlite://${ADDENDA_TEST_DB}?_pragma=busy_timeout(5000)\n"+
		"definitions:\n  - "+defs+"\n")
	return config, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADDENDA_DEFINITIONS", "")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color", "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAmendCommand(t *testing.T) {
	config, dbPath := project(t, personUnit)

	out, err := execute(t, "amend", "--config", config, "--dry-run")
	testutil.Must(t, err)
	for _, want := range []string{"1 unit pending on sqlite", "[PENDING] 1  create person", "CREATE TABLE"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry run output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "amend", "--config", config)
	testutil.Must(t, err)
	if !strings.Contains(out, "ok: 1 unit applied (sqlite)") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = execute(t, "amend", "--config", config, "--dry-run")
	testutil.Must(t, err)
	if !strings.Contains(out, "nothing to apply") {
		t.Errorf("unexpected output:\n%s", out)
	}

	db := testutil.SetupSQLiteFile(t, dbPath)
	testutil.AssertRowCount(t, db, "person", 1)
}

func TestStatusCommand(t *testing.T) {
	config, _ := project(t, personUnit)
	_, err := execute(t, "amend", "--config", config)
	testutil.Must(t, err)

	testutil.WriteFile(t, filepath.Join(filepath.Dir(config), "units.yaml"), personUnit+ageUnit)

	out, err := execute(t, "status", "--config", config, "--json")
	testutil.Must(t, err)
	var got struct {
		Dialect string       `json:"dialect"`
		Applied int          `json:"applied"`
		Pending int          `json:"pending"`
		Units   []unitStatus `json:"units"`
	}
	testutil.Must(t, json.Unmarshal([]byte(out), &got))
	testutil.AssertEqual(t, got.Dialect, "sqlite")
	testutil.AssertEqual(t, got.Applied, 1)
	testutil.AssertEqual(t, got.Pending, 1)
	testutil.AssertEqual(t, len(got.Units), 2)
	testutil.AssertEqual(t, got.Units[1], unitStatus{Unit: 2, Name: "add age", Applied: false})

	out, err = execute(t, "status", "--config", config)
	testutil.Must(t, err)
	for _, want := range []string{"[APPLIED]    1  create person", "[PENDING]    2  add age"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestSchemaCommand(t *testing.T) {
	config, _ := project(t, personUnit+ageUnit)

	out, err := execute(t, "schema", "--config", config)
	testutil.Must(t, err)
	for _, want := range []string{"person (Person)", "VARCHAR(64)", "pk preferred", "fingerprint"} {
		if !strings.Contains(out, want) {
			t.Errorf("schema output missing %q:\n%s", want, out)
		}
	}

	root, err := execute(t, "schema", "--config", config, "--fingerprint")
	testutil.Must(t, err)
	root = strings.TrimSpace(root)
	testutil.AssertEqual(t, len(root), 64)
	if !strings.Contains(out, root) {
		t.Error("full output should include the fingerprint")
	}
}

func TestDialectsCommand(t *testing.T) {
	out, err := execute(t, "dialects")
	testutil.Must(t, err)
	for _, want := range []string{"ansi", "mysql", "postgres", "sqlite"} {
		if !strings.Contains(out, want) {
			t.Errorf("dialects output missing %q:\n%s", want, out)
		}
	}
}

func TestLockAndVerifyCommands(t *testing.T) {
	config, _ := project(t, personUnit)
	defs := filepath.Join(filepath.Dir(config), "units.yaml")

	_, err := execute(t, "verify", "--config", config)
	testutil.AssertError(t, err, alerr.ErrLockRead)

	out, err := execute(t, "lock", "--config", config)
	testutil.Must(t, err)
	if !strings.Contains(out, "ok: 1 unit locked in "+filepath.Join(filepath.Dir(config), "addenda.lock")) {
		t.Errorf("unexpected output:\n%s", out)
	}

	testutil.WriteFile(t, defs, personUnit+ageUnit)
	out, err = execute(t, "verify", "--config", config)
	testutil.Must(t, err)
	for _, want := range []string{"verified  create person", "new       add age", "ok: 1 unit verified"} {
		if !strings.Contains(out, want) {
			t.Errorf("verify output missing %q:\n%s", want, out)
		}
	}

	// Editing a locked unit blocks verify, lock and amend.
	testutil.WriteFile(t, defs, strings.Replace(personUnit, "length: 64", "length: 128", 1))
	out, err = execute(t, "verify", "--config", config)
	testutil.AssertError(t, err, alerr.ErrLockMismatch)
	testutil.AssertErrorContext(t, err, "patch", "create person")
	if !strings.Contains(out, "edited") {
		t.Errorf("verify output missing edited unit:\n%s", out)
	}

	_, err = execute(t, "lock", "--config", config)
	testutil.AssertError(t, err, alerr.ErrLockMismatch)
	_, err = execute(t, "amend", "--config", config)
	testutil.AssertError(t, err, alerr.ErrLockMismatch)

	_, err = execute(t, "amend", "--config", config, "--no-verify")
	testutil.Must(t, err)
	_, err = execute(t, "lock", "--config", config, "--force")
	testutil.Must(t, err)
	_, err = execute(t, "verify", "--config", config)
	testutil.Must(t, err)
}

func TestLockPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		lock string
		want string
	}{
		{"", filepath.Join(dir, "addenda.lock")},
		{"locks/app.lock", filepath.Join(dir, "locks", "app.lock")},
		{filepath.Join(dir, "abs.lock"), filepath.Join(dir, "abs.lock")},
	}
	for _, tt := range tests {
		cfg := &Config{LockFile: tt.lock, path: filepath.Join(dir, "addenda.yaml")}
		testutil.AssertEqual(t, cfg.lockPath(), tt.want)
	}
}

func TestCheckCommand(t *testing.T) {
	config, _ := project(t, personUnit)

	out, err := execute(t, "check", "--config", config)
	testutil.Must(t, err)
	if !strings.Contains(out, "ok: 1 table checked") {
		t.Errorf("unexpected output:\n%s", out)
	}

	testutil.WriteFile(t, filepath.Join(filepath.Dir(config), "units.yaml"), personUnit+`
  - name: orders
    steps:
      - create:
          alias: Order
          table: order
          columns: [{property: placedAt, type: TIMESTAMP}]
`)
	out, err = execute(t, "check", "--config", config, "--snake-case")
	testutil.Must(t, err)
	for _, want := range []string{`warning: order: "order" is a reserved word`, "warning: order.placedAt: name is not snake_case", "= note: use placed_at"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}

	_, err = execute(t, "check", "--config", config, "--strict")
	testutil.AssertError(t, err, alerr.ErrDefinitionInvalid)
	testutil.AssertErrorContext(t, err, "warnings", 1)
}

func TestCommandErrors(t *testing.T) {
	config, _ := project(t, personUnit)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		code alerr.Code
	}{
		{"missing config", []string{"amend", "--config", filepath.Join(dir, "nope.yaml")}, alerr.ErrConfigInvalid},
		{"no database", []string{"status"}, alerr.ErrConfigInvalid},
		{"bad log level", []string{"schema", "--config", config, "--log-level", "loud"}, alerr.ErrConfigInvalid},
		{"bad driver", []string{"amend", "--config", config, "--driver", "oracle"}, alerr.ErrLookup},
		{"zero debounce", []string{"watch", "--config", config, "--debounce", "0"}, alerr.ErrConfigInvalid},
		{"negative debounce", []string{"watch", "--config", config, "--debounce=-1s"}, alerr.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			testutil.AssertError(t, err, tt.code)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "addenda.yaml")
	testutil.WriteFile(t, path, `
database_url: postgres://${ADDENDA_TEST_USER}@localhost/app
driver: pgx
definitions: [a.yaml, b.yaml]
tracking: {table: versions, column: applied}
transactional: false
timeout: 30s
log_level: warn
`)
	t.Setenv("ADDENDA_TEST_USER", "alan")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADDENDA_DEFINITIONS", "")

	cfg, err := loadConfig(&globalFlags{configFile: path}, true)
	testutil.Must(t, err)
	testutil.AssertEqual(t, cfg.DatabaseURL, "postgres://alan@localhost/app")
	testutil.AssertEqual(t, cfg.Driver, "pgx")
	testutil.AssertEqual(t, len(cfg.Definitions), 2)
	testutil.AssertEqual(t, cfg.Tracking, Tracking{Table: "versions", Column: "applied"})
	testutil.AssertEqual(t, *cfg.Transactional, false)
	testutil.AssertEqual(t, cfg.Timeout, 30*time.Second)
	testutil.AssertEqual(t, cfg.LogLevel, "warn")

	t.Setenv("DATABASE_URL", "mysql://env/app")
	t.Setenv("ADDENDA_DEFINITIONS", "c.yaml"+string(filepath.ListSeparator)+"d.yaml")
	cfg, err = loadConfig(&globalFlags{configFile: path}, true)
	testutil.Must(t, err)
	testutil.AssertEqual(t, cfg.DatabaseURL, "mysql://env/app")
	testutil.AssertEqual(t, strings.Join(cfg.Definitions, ","), "c.yaml,d.yaml")

	cfg, err = loadConfig(&globalFlags{configFile: path, databaseURL: "app.db", driver: "sqlite", logLevel: "debug"}, true)
	testutil.Must(t, err)
	testutil.AssertEqual(t, cfg.DatabaseURL, "app.db")
	testutil.AssertEqual(t, cfg.Driver, "sqlite")
	testutil.AssertEqual(t, cfg.LogLevel, "debug")
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")

	cfg, err := loadConfig(&globalFlags{configFile: missing}, false)
	testutil.Must(t, err)
	testutil.AssertEqual(t, cfg.LogLevel, "info")

	_, err = loadConfig(&globalFlags{configFile: missing}, true)
	testutil.AssertError(t, err, alerr.ErrConfigInvalid)
	testutil.AssertErrorContext(t, err, "path", missing)

	bad := filepath.Join(dir, "bad.yaml")
	testutil.WriteFile(t, bad, "definitions: {")
	_, err = loadConfig(&globalFlags{configFile: bad}, true)
	testutil.AssertError(t, err, alerr.ErrConfigInvalid)
}

func TestDefinitionFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.yaml", "001_a.yaml", "010_c.yaml"} {
		testutil.WriteFile(t, filepath.Join(dir, name), "units: []\n")
	}
	extra := filepath.Join(dir, "000_extra.yml")

	cfg := &Config{Definitions: []string{extra, filepath.Join(dir, "*.yaml"), filepath.Join(dir, "001_a.yaml")}}
	files, err := cfg.definitionFiles()
	testutil.Must(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	testutil.AssertEqual(t, strings.Join(names, ","), "000_extra.yml,001_a.yaml,002_b.yaml,010_c.yaml")

	_, err = (&Config{}).definitionFiles()
	testutil.AssertError(t, err, alerr.ErrConfigInvalid)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", "json")
	testutil.Must(t, err)
	log.Info("hidden")
	log.Warn("shown", "unit", 1)
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"unit":1`) {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	_, err = newLogger(&buf, "info", "xml")
	testutil.AssertError(t, err, alerr.ErrConfigInvalid)
	testutil.AssertErrorContext(t, err, "format", "xml")

	_, err = newLogger(&buf, "loud", "text")
	testutil.AssertError(t, err, alerr.ErrConfigInvalid)
	testutil.AssertErrorContext(t, err, "level", "loud")
}

func newWatcher(t *testing.T, config string) (*watcher, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADDENDA_DEFINITIONS", "")
	cfg, err := loadConfig(&globalFlags{configFile: config}, true)
	testutil.Must(t, err)
	log, err := newLogger(&bytes.Buffer{}, "error", "text")
	testutil.Must(t, err)

	var out, errOut bytes.Buffer
	return &watcher{
		app:      &app{cfg: cfg, log: log},
		debounce: 20 * time.Millisecond,
		out:      &out,
		errOut:   &errOut,
	}, &out, &errOut
}

func TestWatcherApply(t *testing.T) {
	config, dbPath := project(t, personUnit)
	w, out, _ := newWatcher(t, config)
	ctx := context.Background()

	testutil.Must(t, w.apply(ctx))
	testutil.Must(t, w.apply(ctx))
	if !strings.Contains(out.String(), "tracking schema unchanged") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	out.Reset()
	testutil.WriteFile(t, filepath.Join(filepath.Dir(config), "units.yaml"), personUnit+ageUnit)
	testutil.Must(t, w.apply(ctx))
	if !strings.Contains(out.String(), "  ~ person\n") || !strings.Contains(out.String(), "2 units applied") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	db := testutil.SetupSQLiteFile(t, dbPath)
	testutil.AssertColumnExists(t, db, "person", "age")
}

func TestWatcherMatches(t *testing.T) {
	w := &watcher{app: &app{cfg: &Config{Definitions: []string{"defs/*.yaml", "extra.yaml"}}}}
	tests := []struct {
		path string
		want bool
	}{
		{"defs/001.yaml", true},
		{"./defs/002.yaml", true},
		{"defs/notes.txt", false},
		{"extra.yaml", true},
		{"other.yaml", false},
	}
	for _, tt := range tests {
		if got := w.matches(tt.path); got != tt.want {
			t.Errorf("matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherRun(t *testing.T) {
	config, dbPath := project(t, personUnit)
	w, _, errOut := newWatcher(t, config)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	db := testutil.SetupSQLiteFile(t, dbPath+"?_pragma=busy_timeout(5000)")
	waitForColumn(t, db, "person", "name")

	testutil.WriteFile(t, filepath.Join(filepath.Dir(config), "units.yaml"), personUnit+ageUnit)
	waitForColumn(t, db, "person", "age")

	cancel()
	testutil.Must(t, <-done)
	if errOut.Len() > 0 {
		t.Errorf("unexpected errors:\n%s", errOut.String())
	}
}

// waitForColumn polls until the column exists. Errors are retried since
// the watcher may hold the database lock.
func waitForColumn(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
		if err == nil && n > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("column %s.%s did not appear", table, column)
}
