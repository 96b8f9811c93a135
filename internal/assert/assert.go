// Package assert provides the one assertion primitive the core uses to
// enforce protocol-misuse contracts (read after destroy, width mismatches,
// negative offsets, and so on). These are programming bugs, not recoverable
// errors, so the policy is to abort immediately.
package assert

import "fmt"

// Require panics with msg (formatted like fmt.Sprintf) if cond is false.
func Require(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
