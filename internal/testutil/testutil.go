package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/hlop3z/addenda/internal/alerr"
)

var whitespace = regexp.MustCompile(`\s+`)

// -----------------------------------------------------------------------------
// SQL Assertions
// -----------------------------------------------------------------------------

// NormalizeSQL collapses whitespace runs into one space, trims the ends
// and upper-cases the statement.
func NormalizeSQL(sql string) string {
	return strings.ToUpper(strings.TrimSpace(whitespace.ReplaceAllString(sql, " ")))
}

// AssertSQL compares two SQL strings after normalizing them.
func AssertSQL(t *testing.T, got, want string) {
	t.Helper()

	if g, w := NormalizeSQL(got), NormalizeSQL(want); g != w {
		t.Errorf("SQL mismatch:\ngot:  %s\nwant: %s\n\noriginal got:\n%s", g, w, got)
	}
}

// AssertStatements compares rendered statements one by one after
// normalizing them.
func AssertStatements(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d statements, want %d:\n%s", len(got), len(want), strings.Join(got, "\n"))
	}
	for i := range got {
		AssertSQL(t, got[i], want[i])
	}
}

// AssertSQLContains checks if a SQL string contains a substring.
// Both strings are normalized before comparison.
func AssertSQLContains(t *testing.T, sql, substr string) {
	t.Helper()

	if !strings.Contains(NormalizeSQL(sql), NormalizeSQL(substr)) {
		t.Errorf("SQL does not contain expected substring:\nsql:    %s\nsubstr: %s", sql, substr)
	}
}

// -----------------------------------------------------------------------------
// Error Assertions
// -----------------------------------------------------------------------------

// AssertError checks that an error has the expected error code.
func AssertError(t *testing.T, err error, code alerr.Code) {
	t.Helper()

	if err == nil {
		t.Errorf("expected error with code %s, got nil", code)
		return
	}
	if got := alerr.GetErrorCode(err); got != code {
		t.Errorf("expected error code %s, got %s\nerror: %v", code, got, err)
	}
}

// AssertNoError checks that an error is nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

// AssertErrorContext checks that a coded error carries key = want in its
// context.
func AssertErrorContext(t *testing.T, err error, key string, want any) {
	t.Helper()

	e, ok := err.(*alerr.Error)
	if !ok {
		t.Errorf("expected *alerr.Error, got %T: %v", err, err)
		return
	}
	if got := e.GetContext()[key]; got != want {
		t.Errorf("context %q = %v, want %v\nerror: %v", key, got, want, err)
	}
}

// -----------------------------------------------------------------------------
// Test Helpers
// -----------------------------------------------------------------------------

// WriteFile writes content to a file, creating parent directories as needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// AssertEqual is a generic equality check for testing.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()

	if got != want {
		t.Errorf("values not equal:\ngot:  %v\nwant: %v", got, want)
	}
}
