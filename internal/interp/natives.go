package interp

import (
	"fmt"
	"time"

	"github.com/waxwing-lang/loxwalk/internal/errs"
)

// ExitRequest is what the exit() native returns to unwind evaluation. It
// deliberately does not satisfy errs.Error's shape: a driver is expected to
// type-assert for it specifically and call os.Exit(Code) itself, rather than
// have library code exit the process out from under its caller.
type ExitRequest struct {
	Code int
}

func (e *ExitRequest) Error() string { return fmt.Sprintf("exit(%d)", e.Code) }

// defineNatives binds the two globals spec.md §6 names: clock() and exit().
// Nothing else from a general-purpose standard library is in scope (Non-goal).
func (it *Interpreter) defineNatives() {
	it.globals.Define("clock", &NativeFunction{
		Name: "clock",
		Arg:  0,
		Apply: func(it *Interpreter, args []Value) (Value, error) {
			// Milliseconds since the Unix epoch, matching the reference
			// implementation's duration_since(UNIX_EPOCH).as_millis(). Go's
			// monotonic clock can't actually fail the way a libc call can, so
			// the system-time-error kind this mirrors is unreachable here;
			// it's kept in errs.Kind for parity with the runtime error list.
			return Number(float64(time.Now().UnixMilli())), nil
		},
	})

	it.globals.Define("exit", &NativeFunction{
		Name: "exit",
		Arg:  1,
		Apply: func(it *Interpreter, args []Value) (Value, error) {
			n, ok := args[0].(Number)
			if !ok {
				return nil, runtimeFatal(errs.KindFatalError, "exit() requires a numeric status code")
			}
			return nil, &ExitRequest{Code: int(n)}
		},
	})
}
