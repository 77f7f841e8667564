package interp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-lang/loxwalk/internal/interp"
	"github.com/waxwing-lang/loxwalk/internal/parser"
	"github.com/waxwing-lang/loxwalk/internal/resolver"
	"github.com/waxwing-lang/loxwalk/internal/scanner"
	"github.com/waxwing-lang/loxwalk/internal/source"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	buf := source.New(src)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	require.Empty(t, parseErrs)
	resolveErrs := resolver.Resolve(stmts)
	require.Empty(t, resolveErrs)

	var out bytes.Buffer
	it := interp.New(&out)
	err := it.Run(stmts)
	return out.String(), err
}

// Closures capture their declaration-time environment, not the environment
// at call time (spec.md §8 scenario 1).
func TestClosuresCaptureDeclarationTimeEnvironment(t *testing.T) {
	out, err := run(t, `
		var a = "global";
		{
			fun show() { print a; }
			var a = "local";
			show();
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "global\n", out)
}

// A method detached from its instance still sees the right instance state
// when called later (spec.md §8 scenario 2).
func TestMethodBindingSurvivesDetachment(t *testing.T) {
	out, err := run(t, `
		class Greeter {
			init(word) { this.word = word; }
			greet() { print this.word; }
		}
		var g = Greeter("hi");
		var m = g.greet;
		m();
	`)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
}

// super.method() calls the base class's method with the current (subclass)
// instance bound to `this` (spec.md §8 scenario 3).
func TestSuperCallsBaseMethodWithCurrentThis(t *testing.T) {
	out, err := run(t, `
		class A {
			identify() { print "A"; }
		}
		class B < A {
			identify() {
				super.identify();
				print "B";
			}
		}
		B().identify();
	`)
	require.NoError(t, err)
	assert.Equal(t, "A\nB\n", out)
}

// return inside a loop exits the enclosing function, not just the loop
// (spec.md §8 scenario 5).
func TestReturnInsideLoopExitsEnclosingFunction(t *testing.T) {
	out, err := run(t, `
		fun f() {
			var i = 0;
			while (true) {
				i = i + 1;
				if (i == 1) return i;
			}
		}
		print f();
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

// Arithmetic string coercion formats numbers with six fractional digits and
// nil as the literal text "nil" (spec.md §8 scenario 6).
func TestArithmeticStringCoercion(t *testing.T) {
	out, err := run(t, `
		print "x=" + 3;
		print 3 + "=x";
		var n = nil;
		print "n=" + n;
	`)
	require.NoError(t, err)
	assert.Equal(t, "x=3.000000\n3.000000=x\nn=nil\n", out)
}

// A recursive initializer ("var a = a;" in the scope that declares a) is a
// static resolution error, never reaches evaluation (spec.md §8 scenario 4).
func TestRecursiveInitializerNeverEvaluates(t *testing.T) {
	buf := source.New(`var a = "outer"; { var a = a; }`)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	require.Empty(t, parseErrs)
	resolveErrs := resolver.Resolve(stmts)
	require.Len(t, resolveErrs, 1)
	assert.Equal(t, "recursive-initializer", string(resolveErrs[0].Kind))
}

// `for` desugars to a `while` whose condition, body, and increment behave
// identically to a hand-written while loop built the same way (spec.md §8
// for≡while desugar equivalence).
func TestForDesugarEquivalence(t *testing.T) {
	forOut, err := run(t, `
		for (var i = 0; i < 3; i = i + 1) print i;
	`)
	require.NoError(t, err)

	whileOut, err := run(t, `
		var i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, whileOut, forOut)
}

// continue still runs a desugared for-loop's increment, so the loop
// variable keeps advancing instead of spinning forever (spec.md §9).
func TestContinueStillAdvancesForLoopIncrement(t *testing.T) {
	out, err := run(t, `
		for (var i = 0; i < 5; i = i + 1) {
			if (i == 2) continue;
			print i;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n3\n4\n", out)
}

// and/or never evaluate their right operand when the left decides the
// result (spec.md §5 short-circuit fidelity).
func TestShortCircuitNeverEvaluatesRightOperand(t *testing.T) {
	out, err := run(t, `
		fun boom() { print "evaluated"; return true; }
		print false and boom();
		print true or boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "false\ntrue\n", out)
}

// Block scope is restored after every exit path, including a runtime error
// that aborts mid-block: the top-level scope must not retain any binding
// declared inside the aborted block.
func TestBlockScopeRestoredAfterRuntimeError(t *testing.T) {
	buf := source.New(`
		var x = "outer";
		fun f() {
			{
				var x = "inner";
				1 / 0;
			}
		}
		f();
	`)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	require.Empty(t, parseErrs)
	require.Empty(t, resolver.Resolve(stmts))

	var out bytes.Buffer
	it := interp.New(&out)
	err := it.Run(stmts)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "zero-division"))

	// Run a top-level read of x on the same interpreter: had the aborted
	// block's scope leaked, it would still be current and x would be "inner".
	buf2 := source.New(`print x;`)
	toks2, lexErrs2 := scanner.New(buf2).ScanAll()
	require.Empty(t, lexErrs2)
	stmts2, parseErrs2 := parser.Parse(buf2, toks2)
	require.Empty(t, parseErrs2)
	require.Empty(t, resolver.Resolve(stmts2))
	require.NoError(t, it.Run(stmts2))
	assert.Equal(t, "outer\n", out.String())
}

func TestNotCallableIsRuntimeError(t *testing.T) {
	_, err := run(t, `var x = 1; x();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-callable")
}

func TestMismatchedArgumentCountIsRuntimeError(t *testing.T) {
	_, err := run(t, `fun f(a, b) { return a + b; } f(1);`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched-args")
}

func TestUndeclaredVariableIsRuntimeError(t *testing.T) {
	_, err := run(t, `print missing;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared-variable")
}

func TestExitRequestUnwindsWithCode(t *testing.T) {
	buf := source.New(`exit(7);`)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	require.Empty(t, parseErrs)
	require.Empty(t, resolver.Resolve(stmts))

	var out bytes.Buffer
	it := interp.New(&out)
	err := it.Run(stmts)
	require.Error(t, err)
	exitErr, ok := err.(*interp.ExitRequest)
	require.True(t, ok, "expected *interp.ExitRequest, got %T", err)
	assert.Equal(t, 7, exitErr.Code)
}
