package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hlop3z/addenda/internal/alerr"
)

// FormatError formats an error for CLI display:
//
//	error[E1002]: entity does not exist
//	  |
//	  = alias: Persons
//	  = unit: 2
//	  |
//	  = sql: SELECT 1
//	  = cause: no such table
//	help: did you mean 'Person'?
//
// Errors without a code render as a single error line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var ae *alerr.Error
	if !errors.As(err, &ae) {
		return Error("error") + ": " + err.Error() + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s\n", Error("error"), Code(string(ae.GetCode())), ae.GetMessage())

	ctx := ae.GetContext()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if k == "helps" || k == "sql" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sql, _ := ctx["sql"].(string)
	cause := ae.GetCause()
	if len(keys) > 0 || sql != "" || cause != nil {
		fmt.Fprintf(&b, "  %s\n", Pipe())
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "  = %s: %v\n", Dim(k), ctx[k])
	}
	if sql != "" {
		fmt.Fprintf(&b, "  = %s: %s\n", Dim("sql"), SQL(sql))
	}
	if cause != nil {
		fmt.Fprintf(&b, "  = %s: %s\n", Note("cause"), causeMessage(cause))
	}
	for _, h := range ae.Helps() {
		fmt.Fprintf(&b, "%s: %s\n", Help("help"), h)
	}
	return b.String()
}

// causeMessage renders a cause on one line. Coded causes contribute their
// message only; their context is usually repeated by the outer error.
func causeMessage(err error) string {
	var ae *alerr.Error
	if errors.As(err, &ae) {
		return fmt.Sprintf("[%s] %s", ae.GetCode(), ae.GetMessage())
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}

// FormatWarning formats a warning line.
func FormatWarning(msg string) string {
	return Warning("warning") + ": " + msg + "\n"
}

// FormatNote formats a note line.
func FormatNote(msg string) string {
	return "  = " + Note("note") + ": " + msg + "\n"
}

// FormatSuccess formats a success line.
func FormatSuccess(msg string) string {
	return Success("ok") + ": " + msg + "\n"
}
