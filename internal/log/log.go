// Package log wraps fmt.Fprintf(os.Stderr, ...) under one name, the way the
// teacher's own code writes to stderr. No package in this module imports
// it; diagnostics go through diag.Reporter and the CLI writes to stderr
// directly.
package log

import (
	"fmt"
	"os"
)

// Printf writes a formatted line to stderr, newline-terminated.
func Printf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
