//go:build debugchecks

package core

import "fmt"

// debugChecks enables the internal consistency assertions. Violations
// signal a bug in upstream physics or in the evaluators themselves, not a
// user-facing condition.
const debugChecks = true

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}
