package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-lang/loxwalk/internal/ast"
	"github.com/waxwing-lang/loxwalk/internal/errs"
	"github.com/waxwing-lang/loxwalk/internal/parser"
	"github.com/waxwing-lang/loxwalk/internal/resolver"
	"github.com/waxwing-lang/loxwalk/internal/scanner"
	"github.com/waxwing-lang/loxwalk/internal/source"
)

func resolve(t *testing.T, src string) ([]ast.Stmt, []*errs.Error) {
	t.Helper()
	buf := source.New(src)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	require.Empty(t, parseErrs)
	return stmts, resolver.Resolve(stmts)
}

func TestRecursiveInitializerIsRejected(t *testing.T) {
	_, errs := resolve(t, `var a = "outer"; { var a = a; }`)
	require.Len(t, errs, 1)
	assert.Equal(t, "recursive-initializer", string(errs[0].Kind))
}

func TestRecursiveInitializerIsRejectedAtTopLevel(t *testing.T) {
	_, errs := resolve(t, `var a = a;`)
	require.Len(t, errs, 1)
	assert.Equal(t, "recursive-initializer", string(errs[0].Kind))
}

func TestDuplicateDeclarationInSameScopeIsRejected(t *testing.T) {
	_, errs := resolve(t, `{ var a = 1; var a = 2; }`)
	require.Len(t, errs, 1)
	assert.Equal(t, "already-declared", string(errs[0].Kind))
}

func TestShadowingInNestedScopeIsFine(t *testing.T) {
	_, errs := resolve(t, `var a = 1; { var a = 2; }`)
	assert.Empty(t, errs)
}

func TestReturnOutsideFunctionIsRejected(t *testing.T) {
	_, errs := resolve(t, `return 1;`)
	require.Len(t, errs, 1)
	assert.Equal(t, "return-outside-function", string(errs[0].Kind))
}

func TestBreakOutsideLoopIsRejected(t *testing.T) {
	_, errs := resolve(t, `break;`)
	require.Len(t, errs, 1)
	assert.Equal(t, "loop-control-outside-loop", string(errs[0].Kind))
}

func TestContinueInsideForIsFine(t *testing.T) {
	_, errs := resolve(t, `for (var i = 0; i < 3; i = i + 1) { continue; }`)
	assert.Empty(t, errs)
}

func TestThisOutsideClassIsRejected(t *testing.T) {
	_, errs := resolve(t, `print this;`)
	require.Len(t, errs, 1)
	assert.Equal(t, "this-outside-class", string(errs[0].Kind))
}

func TestSuperWithoutBaseClassIsRejected(t *testing.T) {
	_, errs := resolve(t, `class A { m() { super.m(); } }`)
	require.Len(t, errs, 1)
	assert.Equal(t, "super-without-base", string(errs[0].Kind))
}

func TestSelfInheritanceIsRejected(t *testing.T) {
	_, errs := resolve(t, `class A < A {}`)
	require.Len(t, errs, 1)
	assert.Equal(t, "self-inheritance", string(errs[0].Kind))
}

func TestTopLevelBaseClassIsVisibleToStaticCheck(t *testing.T) {
	_, errs := resolve(t, `class A { greet() { print "hi"; } } class B < A { greet() { super.greet(); } }`)
	assert.Empty(t, errs)
}

func TestTopLevelBaseNotAClassIsRejectedStatically(t *testing.T) {
	_, errs := resolve(t, `var NotAClass = 1; class B < NotAClass {}`)
	require.Len(t, errs, 1)
	assert.Equal(t, "base-not-a-class", string(errs[0].Kind))
}

func TestClosureCapturesDeclarationTimeDepth(t *testing.T) {
	stmts, errs := resolve(t, `
		var a = "global";
		{ fun show() { print a; } var a = "local"; show(); }
	`)
	require.Empty(t, errs)

	block := stmts[1].(*ast.Block)
	fn := block.Stmts[0].(*ast.Function)
	printStmt := fn.Body[0].(*ast.Print)
	ref := printStmt.Expr.(*ast.Var)
	// `a` inside show() must resolve two hops up, past the function's own
	// call scope and the block scope, to the global `a` declared before the
	// block — not the `var a = "local"` declared after the function within
	// the same block.
	assert.Equal(t, 2, ref.Depth)
}

func TestMethodBodyResolvesBothThisAndParameter(t *testing.T) {
	_, errs := resolve(t, `
		class Greeter {
			greet(name) { print this; print name; }
		}
	`)
	assert.Empty(t, errs)
}

func TestResolverIsIdempotent(t *testing.T) {
	stmts, errs1 := resolve(t, `
		class A { name() { print "A"; } }
		class B < A { name() { super.name(); print "B"; } }
		B().name();
	`)
	require.Empty(t, errs1)

	errs2 := resolver.Resolve(stmts)
	assert.Equal(t, errs1, errs2)
}
