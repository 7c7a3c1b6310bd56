// Package alerr provides the coded errors raised by the migration engine.
// Every failure carries a stable Code, structured context (table, column,
// alias, property, sql) and, for execution failures, the driver error as cause.
// Callers branch on the Code; text is only rendered at the boundary.
package alerr

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code represents a stable, machine-readable error code.
// Format: E{category}{number} where category is 1-6 and number is 001-999.
type Code string

// Error codes organized by category.
const (
	// Schema consistency errors (E1xxx) - raised before any statement runs
	ErrEntityExists            Code = "E1001" // Alias is already registered
	ErrEntityMissing           Code = "E1002" // Alias is not registered
	ErrTableExists             Code = "E1003" // Table name is already taken
	ErrTableMissing            Code = "E1004" // Alias resolves to no table
	ErrPropertyExists          Code = "E1005" // Property already defined on entity
	ErrPropertyMissing         Code = "E1006" // Property not defined on entity
	ErrColumnExists            Code = "E1007" // Column already defined on entity
	ErrColumnMissing           Code = "E1008" // Column not defined on entity
	ErrPrimaryKeyExists        Code = "E1009" // Primary key already defined
	ErrPrimaryKeyColumnMissing Code = "E1010" // Primary key names an undefined property
	ErrInsertValuesMismatch    Code = "E1011" // Insert column and value counts differ
	ErrColumnMismatch          Code = "E1012" // Column does not match an expected definition
	ErrNoColumns               Code = "E1013" // Table created without columns
	ErrFingerprint             Code = "E1014" // Schema fingerprint could not be built

	// Dialect capability errors (E2xxx)
	ErrDialectDoesNotSupportType       Code = "E2001" // No type name for the column type
	ErrDialectDoesNotSupportGenerator  Code = "E2002" // Generator strategy not available
	ErrDialectDoesNotSupportConnection Code = "E2003" // Forced dialect cannot translate connection
	ErrDialectNotResolved              Code = "E2004" // No registered dialect accepts the connection
	ErrDialectDoesNotSupportAlteration Code = "E2005" // Column alteration not expressible

	// Execution errors (E3xxx) - always wrap the driver error
	ErrCreateTable   Code = "E3001" // CREATE TABLE failed
	ErrAddColumn     Code = "E3002" // ADD COLUMN failed
	ErrAlterColumn   Code = "E3003" // column alteration failed
	ErrDropColumn    Code = "E3004" // DROP COLUMN failed
	ErrRenameTable   Code = "E3005" // table rename failed
	ErrInsert        Code = "E3006" // INSERT failed
	ErrExecute       Code = "E3007" // caller-supplied statement failed
	ErrVerifyColumn  Code = "E3008" // column verification query failed
	ErrAddendaTable  Code = "E3009" // version tracking table could not be created
	ErrAddendaCount  Code = "E3010" // applied count could not be read
	ErrAddendum      Code = "E3011" // applied count could not be advanced
	ErrCommit        Code = "E3012" // transaction begin/commit failed

	// Connection lifecycle errors (E4xxx)
	ErrConnect Code = "E4001" // Connection could not be opened
	ErrClose   Code = "E4002" // Connection could not be closed
	ErrLookup  Code = "E4003" // Driver or data source could not be resolved

	// Definition document errors (E5xxx)
	ErrDefinitionInvalid Code = "E5001" // Definition document is malformed
	ErrDefinitionRead    Code = "E5002" // Definition document could not be read
	ErrLockRead          Code = "E5003" // Lock file could not be read or written
	ErrLockMismatch      Code = "E5004" // Locked units were edited or removed

	// Configuration errors (E6xxx)
	ErrConfigInvalid Code = "E6001" // Configuration is invalid
)

// Error is the standard error type for the engine.
type Error struct {
	code    Code           // Machine-readable error code
	message string         // Human-readable error message
	context map[string]any // Structured context data
	cause   error          // Wrapped underlying error
	stack   string         // Stack trace for debugging
}

// Error returns the formatted error string.
// Format:
//
//	[E1003] table already exists
//	  alias: Person
//	  table: person
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.code, e.message))

	if len(e.context) > 0 {
		keys := make([]string, 0, len(e.context))
		for k := range e.context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s: %v", k, e.context[k]))
		}
	}

	if e.cause != nil {
		b.WriteString(fmt.Sprintf("\n  cause: %v", e.cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error for errors.Unwrap compatibility.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether the target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.code == targetErr.code
	}

	return false
}

// GetCode returns the error code.
func (e *Error) GetCode() Code {
	return e.code
}

// GetMessage returns the error message.
func (e *Error) GetMessage() string {
	return e.message
}

// GetContext returns the error context map.
func (e *Error) GetContext() map[string]any {
	return e.context
}

// GetCause returns the underlying cause error.
func (e *Error) GetCause() error {
	return e.cause
}

// GetStack returns the stack trace.
func (e *Error) GetStack() string {
	return e.stack
}

// With adds a key-value pair to the error context.
func (e *Error) With(key string, value any) *Error {
	if e.context == nil {
		e.context = make(map[string]any)
	}
	e.context[key] = value
	return e
}

// WithTable adds table context to the error.
func (e *Error) WithTable(table string) *Error {
	return e.With("table", table)
}

// WithColumn adds column context to the error.
func (e *Error) WithColumn(name string) *Error {
	return e.With("column", name)
}

// WithAlias adds entity alias context to the error.
func (e *Error) WithAlias(alias string) *Error {
	return e.With("alias", alias)
}

// WithProperty adds property context to the error.
func (e *Error) WithProperty(name string) *Error {
	return e.With("property", name)
}

// WithSQL adds SQL statement context to the error.
func (e *Error) WithSQL(sql string) *Error {
	return e.With("sql", sql)
}

// WithHelp adds a help suggestion to the error (displayed as "help: ...").
func (e *Error) WithHelp(help string) *Error {
	if help == "" {
		return e
	}
	helps, _ := e.context["helps"].([]string)
	helps = append(helps, help)
	return e.With("helps", helps)
}

// Helps returns all help suggestions attached to this error.
func (e *Error) Helps() []string {
	helps, _ := e.context["helps"].([]string)
	return helps
}

// captureStack captures a stack trace for debugging.
func captureStack(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return b.String()
}

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
		context: make(map[string]any),
		stack:   captureStack(3),
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return New(code, msg)
	}
	return &Error{
		code:    code,
		message: msg,
		context: make(map[string]any),
		cause:   err,
		stack:   captureStack(3),
	}
}

// Wrapf creates a new Error that wraps an existing error with a formatted message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

// GetErrorCode extracts the outermost error code from an error chain.
// Returns empty string if no code is found.
func GetErrorCode(err error) Code {
	if err == nil {
		return ""
	}

	var alerr *Error
	if errors.As(err, &alerr) {
		return alerr.code
	}

	return ""
}

// Is checks if an error has the specified code.
func Is(err error, code Code) bool {
	return GetErrorCode(err) == code
}

// HasCode checks if an error has any error code.
func HasCode(err error) bool {
	return GetErrorCode(err) != ""
}

// Annotate adds a context entry to the outermost coded error in err.
// Errors without a code are returned unchanged.
func Annotate(err error, key string, value any) error {
	var e *Error
	if errors.As(err, &e) {
		e.With(key, value)
	}
	return err
}

// WrapSQL creates an execution error with table and optional column context.
// Example: WrapSQL(ErrAddColumn, err, "add column", "person", "age")
func WrapSQL(code Code, err error, op, table, column string) *Error {
	e := Wrap(code, err, "cannot "+op)
	if table != "" {
		e.WithTable(table)
	}
	if column != "" {
		e.WithColumn(column)
	}
	return e
}
