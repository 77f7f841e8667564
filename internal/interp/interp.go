package interp

import (
	"fmt"
	"io"
	"strconv"

	"github.com/waxwing-lang/loxwalk/internal/ast"
	"github.com/waxwing-lang/loxwalk/internal/errs"
	"github.com/waxwing-lang/loxwalk/internal/invariant"
)

// signalKind identifies which non-local control transfer a construct raised.
// Signals share the evaluator's result channel with errors conceptually
// (spec.md §7), but are modeled here as a distinct return value rather than
// folded into the error type, so the common case (no signal in flight)
// costs nothing and a signal can never be mistaken for a user-visible error.
type signalKind int

const (
	signalReturn signalKind = iota
	signalBreak
	signalContinue
)

func (k signalKind) String() string {
	switch k {
	case signalReturn:
		return "return"
	case signalBreak:
		return "break"
	case signalContinue:
		return "continue"
	default:
		return "unknown"
	}
}

type signal struct {
	kind  signalKind
	value Value
}

// Interpreter walks a resolved AST, evaluating it against an environment
// chain. It is single-threaded and synchronous throughout (spec.md §5): a
// single mutable env field tracks the current scope, restored by defer on
// every exit path out of a block, including a panicking one.
type Interpreter struct {
	globals *Environment
	env     *Environment
	Out     io.Writer
}

// New creates an Interpreter with clock()/exit() bound in its global scope,
// printing Print-statement output to out.
func New(out io.Writer) *Interpreter {
	globals := NewEnvironment(nil)
	it := &Interpreter{globals: globals, env: globals, Out: out}
	it.defineNatives()
	return it
}

// Run executes a top-level program. A control signal reaching this point
// escaped every enclosing construct that should have consumed it, which is a
// fatal interpreter bug (spec.md §7), not a user-facing error.
func (it *Interpreter) Run(stmts []ast.Stmt) error {
	sig, err := it.execStmts(stmts)
	if err != nil {
		return err
	}
	if sig != nil {
		invariant.Unreachable("control signal %q escaped to the top level", sig.kind)
	}
	return nil
}

func (it *Interpreter) execStmts(stmts []ast.Stmt) (*signal, error) {
	for _, s := range stmts {
		sig, err := it.execStmt(s)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			return sig, nil
		}
	}
	return nil, nil
}

// execBlock runs stmts in env, always restoring the interpreter's previous
// scope on the way out. The defer is what makes the restore unconditional:
// spec.md §5 calls the block push/pop discipline a guarantee, not a
// best-effort, and defer is the one construct Go offers that holds even
// across a panicking invariant violation.
func (it *Interpreter) execBlock(stmts []ast.Stmt, env *Environment) (*signal, error) {
	previous := it.env
	it.env = env
	defer func() { it.env = previous }()
	return it.execStmts(stmts)
}

func (it *Interpreter) execStmt(s ast.Stmt) (*signal, error) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		_, err := it.evalExpr(n.Expr)
		return nil, err

	case *ast.Print:
		v, err := it.evalExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		// A printed number uses its shortest exact form (1, 3.14); the
		// six-digit form of Number.String is for string concatenation.
		if num, ok := v.(Number); ok {
			fmt.Fprintln(it.Out, strconv.FormatFloat(float64(num), 'f', -1, 64))
			return nil, nil
		}
		fmt.Fprintln(it.Out, v.String())
		return nil, nil

	case *ast.VarStmt:
		var v Value = Nil{}
		if n.Init != nil {
			val, err := it.evalExpr(n.Init)
			if err != nil {
				return nil, err
			}
			v = val
		}
		it.env.Define(n.Name, v)
		return nil, nil

	case *ast.Block:
		return it.execBlock(n.Stmts, NewEnvironment(it.env))

	case *ast.If:
		cond, err := it.evalExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return it.execStmt(n.Then)
		}
		if n.Else != nil {
			return it.execStmt(n.Else)
		}
		return nil, nil

	case *ast.While:
		return it.execWhile(n)

	case *ast.Function:
		it.env.Define(n.Name, &Function{Name: n.Name, Params: n.Params, Body: n.Body, Closure: it.env})
		return nil, nil

	case *ast.Class:
		return nil, it.execClassDecl(n)

	case *ast.Return:
		var v Value = Nil{}
		if n.Value != nil {
			val, err := it.evalExpr(n.Value)
			if err != nil {
				return nil, err
			}
			v = val
		}
		return &signal{kind: signalReturn, value: v}, nil

	case *ast.Break:
		return &signal{kind: signalBreak}, nil

	case *ast.Continue:
		return &signal{kind: signalContinue}, nil

	default:
		invariant.Unreachable("unhandled statement type %T", s)
		return nil, nil
	}
}

// execWhile runs the only looping construct in the AST. n.Increment is
// non-nil exactly when this While was desugared from a `for`; it always
// runs after the body, including after a `continue`, so a desugared for's
// own loop variable keeps advancing (spec.md §9).
func (it *Interpreter) execWhile(n *ast.While) (*signal, error) {
	for {
		cond, err := it.evalExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		if !Truthy(cond) {
			return nil, nil
		}

		sig, err := it.execStmt(n.Body)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			switch sig.kind {
			case signalReturn:
				return sig, nil
			case signalBreak:
				return nil, nil
			case signalContinue:
				// fall through to the increment below, then keep looping
			}
		}

		if n.Increment != nil {
			if _, err := it.evalExpr(n.Increment); err != nil {
				return nil, err
			}
		}
	}
}

// execClassDecl evaluates a class declaration: resolves the optional base
// class, builds method closures over an environment that carries `super`
// when there is one, and binds the class value in the enclosing scope.
func (it *Interpreter) execClassDecl(n *ast.Class) error {
	var base *Class
	if n.BaseClass != nil {
		v, err := it.lookupVar(n.BaseClass)
		if err != nil {
			return err
		}
		b, ok := v.(*Class)
		if !ok {
			return it.runtimeErrAt(n.BaseClass, errs.KindIllegalInheritance, "base class '"+n.BaseClass.Name+"' is not a class")
		}
		base = b
	}

	methodEnv := it.env
	if base != nil {
		methodEnv = NewEnvironment(it.env)
		methodEnv.Define("super", base)
	}

	methods := make(map[string]*Function, len(n.Methods))
	for _, m := range n.Methods {
		methods[m.Name] = &Function{
			Name:          m.Name,
			Params:        m.Params,
			Body:          m.Body,
			Closure:       methodEnv,
			IsInitializer: m.Name == "init",
		}
	}

	it.env.Define(n.Name, &Class{Name: n.Name, Base: base, Methods: methods})
	return nil
}

func (it *Interpreter) evalExpr(e ast.Expr) (Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return literalValue(n.Value), nil

	case *ast.Grouping:
		return it.evalExpr(n.Expr)

	case *ast.Unary:
		return it.evalUnary(n)

	case *ast.Binary:
		return it.evalBinary(n)

	case *ast.Logical:
		return it.evalLogical(n)

	case *ast.Ternary:
		cond, err := it.evalExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return it.evalExpr(n.Then)
		}
		return it.evalExpr(n.Else)

	case *ast.Call:
		return it.evalCall(n)

	case *ast.Var:
		return it.lookupVar(n)

	case *ast.Assign:
		return it.evalAssign(n)

	case *ast.Lambda:
		return &Function{Name: "<lambda>", Params: n.Params, Body: n.Body, Closure: it.env}, nil

	case *ast.Get:
		return it.evalGet(n)

	case *ast.Set:
		return it.evalSet(n)

	case *ast.This:
		v, ok := it.env.Lookup(n.Depth, "this")
		invariant.Invariant(ok, "'this' unresolved at runtime")
		return v, nil

	case *ast.Super:
		return it.evalSuper(n)

	default:
		invariant.Unreachable("unhandled expression type %T", e)
		return nil, nil
	}
}

func literalValue(v ast.LiteralValue) Value {
	switch v.Kind {
	case ast.LiteralNil:
		return Nil{}
	case ast.LiteralBool:
		return Bool(v.Bool)
	case ast.LiteralNumber:
		return Number(v.Num)
	case ast.LiteralString:
		return String(v.Str)
	default:
		invariant.Unreachable("unhandled literal kind %d", v.Kind)
		return nil
	}
}

func (it *Interpreter) evalUnary(n *ast.Unary) (Value, error) {
	v, err := it.evalExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpNegate:
		num, ok := v.(Number)
		if !ok {
			return nil, it.runtimeErrAt(n, errs.KindIllegalUnary, "operand of '-' must be a number")
		}
		return -num, nil
	case ast.OpNot:
		return Bool(!Truthy(v)), nil
	default:
		invariant.Unreachable("unhandled unary operator %d", n.Op)
		return nil, nil
	}
}

func (it *Interpreter) evalLogical(n *ast.Logical) (Value, error) {
	left, err := it.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpOr:
		if Truthy(left) {
			return left, nil
		}
	case ast.OpAnd:
		if !Truthy(left) {
			return left, nil
		}
	default:
		invariant.Unreachable("unhandled logical operator %d", n.Op)
	}
	return it.evalExpr(n.Right)
}

func (it *Interpreter) evalBinary(n *ast.Binary) (Value, error) {
	left, err := it.evalExpr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := it.evalExpr(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpAdd:
		return it.evalAdd(n, left, right)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return it.evalArith(n, left, right)
	case ast.OpEq:
		return Bool(valuesEqual(left, right)), nil
	case ast.OpNotEq:
		return Bool(!valuesEqual(left, right)), nil
	case ast.OpLess, ast.OpLessEq, ast.OpGreater, ast.OpGreaterEq:
		return it.evalCompare(n, left, right)
	default:
		invariant.Unreachable("unhandled binary operator %d", n.Op)
		return nil, nil
	}
}

// evalAdd implements `+`: numeric addition when both sides are numbers,
// string concatenation (with string coercion) when either side is a string.
func (it *Interpreter) evalAdd(n *ast.Binary, left, right Value) (Value, error) {
	if ls, ok := left.(String); ok {
		return String(string(ls) + right.String()), nil
	}
	if rs, ok := right.(String); ok {
		return String(left.String() + string(rs)), nil
	}
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if lok && rok {
		return ln + rn, nil
	}
	return nil, it.runtimeErrAt(n, errs.KindIllegalBinary, "operands of '+' must both be numbers, or at least one a string")
}

func (it *Interpreter) evalArith(n *ast.Binary, left, right Value) (Value, error) {
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, it.runtimeErrAt(n, errs.KindIllegalBinary, "operands must be numbers")
	}
	switch n.Op {
	case ast.OpSub:
		return ln - rn, nil
	case ast.OpMul:
		return ln * rn, nil
	case ast.OpDiv:
		if rn == 0 {
			return nil, it.runtimeErrAt(n, errs.KindZeroDivision, "division by zero")
		}
		return ln / rn, nil
	case ast.OpMod:
		if rn == 0 {
			return nil, it.runtimeErrAt(n, errs.KindZeroDivision, "modulo by zero")
		}
		return Number(mod(float64(ln), float64(rn))), nil
	default:
		invariant.Unreachable("unhandled arithmetic operator %d", n.Op)
		return nil, nil
	}
}

func mod(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

// evalCompare implements the four ordering operators. Two values compare
// numerically if both coerce to a number (Number, or Bool as 0.0/1.0); two
// strings compare lexically; otherwise they compare by the fixed category
// order Nil < Bool < Number < everything else, which lets a `<` between
// mismatched categories produce a deterministic answer instead of an error.
func (it *Interpreter) evalCompare(n *ast.Binary, left, right Value) (Value, error) {
	if lf, lok := numeric(left); lok {
		if rf, rok := numeric(right); rok {
			return Bool(applyOrder(n.Op, lf, rf)), nil
		}
	}
	if ls, lok := left.(String); lok {
		if rs, rok := right.(String); rok {
			return Bool(applyOrderStr(n.Op, string(ls), string(rs))), nil
		}
	}
	lr, rr := orderRank(left), orderRank(right)
	if lr != rr {
		return Bool(applyOrder(n.Op, float64(lr), float64(rr))), nil
	}
	return nil, it.runtimeErrAt(n, errs.KindIllegalBinary, "values are not ordered")
}

func applyOrder(op ast.BinaryOp, a, b float64) bool {
	switch op {
	case ast.OpLess:
		return a < b
	case ast.OpLessEq:
		return a <= b
	case ast.OpGreater:
		return a > b
	case ast.OpGreaterEq:
		return a >= b
	default:
		invariant.Unreachable("unhandled comparison operator %d", op)
		return false
	}
}

func applyOrderStr(op ast.BinaryOp, a, b string) bool {
	switch op {
	case ast.OpLess:
		return a < b
	case ast.OpLessEq:
		return a <= b
	case ast.OpGreater:
		return a > b
	case ast.OpGreaterEq:
		return a >= b
	default:
		invariant.Unreachable("unhandled comparison operator %d", op)
		return false
	}
}

// valuesEqual implements `==`. Numbers (and bools, coerced) compare by IEEE
// value; strings compare by content; everything else — nil, callables,
// classes, instances — compares by identity, which for Go's comparable
// pointer-shaped types is exactly `==` on the interface value.
func valuesEqual(a, b Value) bool {
	if af, aok := numeric(a); aok {
		if bf, bok := numeric(b); bok {
			return af == bf
		}
	}
	if as, aok := a.(String); aok {
		if bs, bok := b.(String); bok {
			return as == bs
		}
	}
	return a == b
}

func (it *Interpreter) evalCall(n *ast.Call) (Value, error) {
	calleeVal, err := it.evalExpr(n.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := it.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	callee, ok := calleeVal.(Callable)
	if !ok {
		return nil, it.runtimeErrAt(n, errs.KindNotCallable, "value is not callable")
	}
	if len(args) != callee.Arity() {
		return nil, it.runtimeErrAt(n, errs.KindMismatchedArgs,
			fmt.Sprintf("expected %d argument(s) but got %d", callee.Arity(), len(args)))
	}
	return callee.Call(it, args)
}

func (it *Interpreter) lookupVar(n *ast.Var) (Value, error) {
	v, ok := it.env.Lookup(n.Depth, n.Name)
	if !ok {
		msg := errs.Suggest("undeclared variable '"+n.Name+"'", n.Name, it.visibleNames())
		return nil, it.runtimeErrAt(n, errs.KindUndeclaredVariable, msg)
	}
	return v, nil
}

func (it *Interpreter) evalAssign(n *ast.Assign) (Value, error) {
	v, err := it.evalExpr(n.Expr)
	if err != nil {
		return nil, err
	}
	if !it.env.Assign(n.Depth, n.Name, v) {
		msg := errs.Suggest("undeclared variable '"+n.Name+"'", n.Name, it.visibleNames())
		return nil, it.runtimeErrAt(n, errs.KindUndeclaredVariable, msg)
	}
	return v, nil
}

func (it *Interpreter) evalGet(n *ast.Get) (Value, error) {
	objVal, err := it.evalExpr(n.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := objVal.(*Instance)
	if !ok {
		return nil, it.runtimeErrAt(n, errs.KindAccessOnPrimitive, "only instances have properties")
	}
	v, ok := inst.Get(n.Name)
	if !ok {
		msg := errs.Suggest("undefined property '"+n.Name+"'", n.Name, inst.PropertyNames())
		return nil, it.runtimeErrAt(n, errs.KindUndefinedProperty, msg)
	}
	return v, nil
}

func (it *Interpreter) evalSet(n *ast.Set) (Value, error) {
	objVal, err := it.evalExpr(n.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := objVal.(*Instance)
	if !ok {
		return nil, it.runtimeErrAt(n, errs.KindAccessOnPrimitive, "only instances have fields")
	}
	v, err := it.evalExpr(n.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(n.Name, v)
	return v, nil
}

func (it *Interpreter) evalSuper(n *ast.Super) (Value, error) {
	baseVal, ok := it.env.Lookup(n.Depth, "super")
	invariant.Invariant(ok, "'super' unresolved at runtime")
	base, ok := baseVal.(*Class)
	invariant.Invariant(ok, "'super' binding is not a class")

	thisVal, ok := it.env.Lookup(n.Depth-1, "this")
	invariant.Invariant(ok, "'this' unresolved relative to 'super'")
	instance, ok := thisVal.(*Instance)
	invariant.Invariant(ok, "'this' binding is not an instance")

	method := base.FindMethod(n.Method)
	if method == nil {
		msg := errs.Suggest("undefined property '"+n.Method+"'", n.Method, base.methodNames())
		return nil, it.runtimeErrAt(n, errs.KindUndefinedProperty, msg)
	}
	return method.Bind(instance), nil
}

func (it *Interpreter) runtimeErrAt(node ast.Node, kind errs.Kind, message string) *errs.Error {
	return errs.New(errs.Runtime, kind, node.Location(), message)
}

func runtimeFatal(kind errs.Kind, format string, args ...interface{}) *errs.Error {
	return errs.NewUnlocated(errs.Runtime, kind, fmt.Sprintf(format, args...))
}

// visibleNames collects every binding name visible from the current scope,
// innermost first, for "did you mean" suggestions on a failed lookup.
func (it *Interpreter) visibleNames() []string {
	var names []string
	for e := it.env; e != nil; e = e.parent {
		for name := range e.values {
			names = append(names, name)
		}
	}
	return names
}
