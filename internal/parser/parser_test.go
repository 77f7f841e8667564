package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waxwing-lang/loxwalk/internal/ast"
	"github.com/waxwing-lang/loxwalk/internal/parser"
	"github.com/waxwing-lang/loxwalk/internal/scanner"
	"github.com/waxwing-lang/loxwalk/internal/source"
)

// ignoreLocations drops every source.Location in the tree, since locations
// are exact byte offsets that would make every fixture brittle to rewrite.
var ignoreLocations = cmpopts.IgnoreTypes(source.Location{})

func parse(t *testing.T, src string) ([]ast.Stmt, []error) {
	t.Helper()
	buf := source.New(src)
	toks, lexErrs := scanner.New(buf).ScanAll()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.Parse(buf, toks)
	var errs []error
	for _, e := range parseErrs {
		errs = append(errs, e)
	}
	return stmts, errs
}

func TestParseVarDeclWithInitializer(t *testing.T) {
	stmts, errs := parse(t, `var x = 1 + 2;`)
	require.Empty(t, errs)
	want := []ast.Stmt{
		&ast.VarStmt{
			Name: "x",
			Init: &ast.Binary{
				Left:  &ast.Literal{Value: ast.LiteralValue{Kind: ast.LiteralNumber, Num: 1}},
				Right: &ast.Literal{Value: ast.LiteralValue{Kind: ast.LiteralNumber, Num: 2}},
				Op:    ast.OpAdd,
			},
		},
	}
	assert.Empty(t, cmp.Diff(want, stmts, ignoreLocations))
}

func TestAssignmentReshapesVarIntoAssign(t *testing.T) {
	stmts, errs := parse(t, `x = 5;`)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	exprStmt, ok := stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	assign, ok := exprStmt.Expr.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Name)
}

func TestAssignmentReshapesGetIntoSet(t *testing.T) {
	stmts, errs := parse(t, `a.b = 5;`)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	exprStmt := stmts[0].(*ast.ExprStmt)
	set, ok := exprStmt.Expr.(*ast.Set)
	require.True(t, ok)
	assert.Equal(t, "b", set.Name)
}

func TestInvalidAssignmentTargetIsParseError(t *testing.T) {
	_, errs := parse(t, `1 + 2 = 3;`)
	require.Len(t, errs, 1)
}

func TestTernaryIsRightAssociative(t *testing.T) {
	stmts, errs := parse(t, `print a ? b : c ? d : e;`)
	require.Empty(t, errs)
	print := stmts[0].(*ast.Print)
	outer, ok := print.Expr.(*ast.Ternary)
	require.True(t, ok)
	_, innerIsTernary := outer.Else.(*ast.Ternary)
	assert.True(t, innerIsTernary)
}

func TestPrecedenceLadder(t *testing.T) {
	// (1 + 2 * 3) should bind as 1 + (2 * 3).
	stmts, errs := parse(t, `print 1 + 2 * 3;`)
	require.Empty(t, errs)
	print := stmts[0].(*ast.Print)
	top := print.Expr.(*ast.Binary)
	assert.Equal(t, ast.OpAdd, top.Op)
	right := top.Right.(*ast.Binary)
	assert.Equal(t, ast.OpMul, right.Op)
}

func TestForDesugarsIntoBlockWithWhile(t *testing.T) {
	stmts, errs := parse(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	block, ok := stmts[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Stmts, 2)
	_, initIsVar := block.Stmts[0].(*ast.VarStmt)
	assert.True(t, initIsVar)
	loop, ok := block.Stmts[1].(*ast.While)
	require.True(t, ok)
	assert.NotNil(t, loop.Cond)
	assert.NotNil(t, loop.Increment)
}

func TestForWithMissingClausesDefaultsConditionTrue(t *testing.T) {
	stmts, errs := parse(t, `for (;;) break;`)
	require.Empty(t, errs)
	loop, ok := stmts[0].(*ast.While)
	require.True(t, ok)
	lit, ok := loop.Cond.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LiteralBool, lit.Value.Kind)
	assert.True(t, lit.Value.Bool)
	assert.Nil(t, loop.Increment)
}

func TestClassDeclWithBase(t *testing.T) {
	stmts, errs := parse(t, `
		class A { greet() { print "hi"; } }
		class B < A { greet() { super.greet(); } }
	`)
	require.Empty(t, errs)
	require.Len(t, stmts, 2)
	b := stmts[1].(*ast.Class)
	require.NotNil(t, b.BaseClass)
	assert.Equal(t, "A", b.BaseClass.Name)
	require.Len(t, b.Methods, 1)
	assert.Equal(t, "greet", b.Methods[0].Name)
}

func TestLambdaExpression(t *testing.T) {
	stmts, errs := parse(t, `var f = fun (a, b) { return a + b; };`)
	require.Empty(t, errs)
	decl := stmts[0].(*ast.VarStmt)
	lambda, ok := decl.Init.(*ast.Lambda)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, lambda.Params)
}

func TestCallArgumentLimitIsEnforced(t *testing.T) {
	src := "f("
	for i := 0; i < 256; i++ {
		if i > 0 {
			src += ","
		}
		src += "1"
	}
	src += ");"
	_, errs := parse(t, src)
	require.Len(t, errs, 1)
}

func TestSynchronizeRecoversAfterParseError(t *testing.T) {
	// The first statement is malformed (missing initializer); the parser should
	// still recover and parse the second declaration.
	stmts, errs := parse(t, `var x = ; var y = 2;`)
	require.NotEmpty(t, errs)
	var sawY bool
	for _, s := range stmts {
		if v, ok := s.(*ast.VarStmt); ok && v.Name == "y" {
			sawY = true
		}
	}
	assert.True(t, sawY, "parser should recover and still see the second declaration")
}

func TestGetChainOnCall(t *testing.T) {
	stmts, errs := parse(t, `print a().b;`)
	require.Empty(t, errs)
	print := stmts[0].(*ast.Print)
	get, ok := print.Expr.(*ast.Get)
	require.True(t, ok)
	assert.Equal(t, "b", get.Name)
	_, calleeIsCall := get.Object.(*ast.Call)
	assert.True(t, calleeIsCall)
}
