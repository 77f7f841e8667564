// Package invariant provides contract assertions for the interpreter core.
//
// Violations here are interpreter bugs, not user-facing errors: a corrupted
// environment chain, a control signal that escaped its enclosing construct, a
// resolver depth that doesn't point at a real scope. The top-level driver
// recovers the panic, prints it as a fatal error, and exits with code 105.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Precondition checks an input contract at function entry.
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks an internal invariant during function execution.
//
// Use this for the guarantees spec.md calls out explicitly: scope-chain
// length restored after every Block, no Return/Break/Continue signal
// observed outside the construct that must consume it.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including a typed nil pointer or interface.
func NotNil(value interface{}, name string) {
	if value == nil || isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// Unreachable panics unconditionally; use it in switch default arms over a
// closed, resolver-checked set of AST node kinds.
func Unreachable(format string, args ...interface{}) {
	fail("INVARIANT", "unreachable: "+format, args...)
}

// fail panics with a formatted message including the call site.
func fail(kind, format string, args ...interface{}) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]interface{}{kind}, args...)...)
	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}
	panic(msg)
}
