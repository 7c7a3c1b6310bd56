package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SQLitePath returns the path of a fresh SQLite database file inside the
// test's temporary directory. The file is created on first use.
func SQLitePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// SetupSQLite opens a file-backed SQLite database for testing. A file is
// used instead of :memory: so every pooled connection sees the same data.
// The connection is automatically closed when the test completes.
func SetupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	return SetupSQLiteFile(t, SQLitePath(t))
}

// SetupSQLiteFile opens a SQLite database at the given path.
// The connection is automatically closed when the test completes.
func SetupSQLiteFile(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open sqlite file: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping sqlite: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// AssertTableExists checks that a table exists in the SQLite database.
func AssertTableExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if !tableExists(t, db, table) {
		t.Errorf("expected table %q to exist, but it does not", table)
	}
}

// AssertTableNotExists checks that a table does not exist in the SQLite database.
func AssertTableNotExists(t *testing.T, db *sql.DB, table string) {
	t.Helper()

	if tableExists(t, db, table) {
		t.Errorf("expected table %q to not exist, but it does", table)
	}
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, table).Scan(&n)
	if err != nil {
		t.Fatalf("failed to check if table exists: %v", err)
	}
	return n > 0
}

// AssertColumnExists checks that a column exists in a SQLite table.
func AssertColumnExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	if !columnExists(t, db, table, column) {
		t.Errorf("expected column %q to exist in table %q, but it does not", column, table)
	}
}

// AssertColumnNotExists checks that a column does not exist in a SQLite table.
func AssertColumnNotExists(t *testing.T, db *sql.DB, table, column string) {
	t.Helper()

	if columnExists(t, db, table, column) {
		t.Errorf("expected column %q to not exist in table %q, but it does", column, table)
	}
}

func columnExists(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		t.Fatalf("failed to get table info: %v", err)
	}
	return n > 0
}

// ExecSQL executes a SQL statement and fails the test on error.
func ExecSQL(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()

	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("failed to execute SQL:\n%s\nerror: %v", query, err)
	}
}

// QueryInt runs a query returning a single integer.
func QueryInt(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("failed to query SQL:\n%s\nerror: %v", query, err)
	}
	return n
}

// AssertRowCount checks that a table has the expected number of rows.
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	count := QueryInt(t, db, `SELECT COUNT(*) FROM "`+table+`"`)
	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}
