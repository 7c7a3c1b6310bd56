package testutil

import "testing"

// Must asserts that err is nil, or fails the test immediately.
// Useful for test setup code.
//
// Example:
//
//	testutil.Must(t, set.Append(patch))
func Must(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
