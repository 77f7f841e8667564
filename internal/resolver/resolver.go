// Package resolver performs a single static pass over the AST: it computes,
// for every variable reference, how many scope boundaries separate it from
// the scope that declares it, and it rejects programs that violate the
// language's static rules (no recursive initializers, no duplicate
// declarations in one scope, this/super/return/break/continue only where
// legal). Depths are written directly onto the AST nodes the parser built.
package resolver

import (
	"github.com/waxwing-lang/loxwalk/internal/ast"
	"github.com/waxwing-lang/loxwalk/internal/errs"
)

// bindingKind is what a name refers to in a scope, tracked so the resolver
// can tell "declared but not yet initialized" apart from a fully usable
// binding, and tell a plain variable apart from a function or class. All
// three resolve the same way; kindClass is also what the base-class check
// in resolveClass looks for.
type bindingKind int

const (
	kindDeclared bindingKind = iota
	kindVariable
	kindFunction
	kindClass
)

type scope map[string]bindingKind

// Resolver walks an AST exactly once per call, front to back.
type Resolver struct {
	scopes      []scope
	loopDepth   int
	funcDepth   int
	classDepth  int
	inSubclass  bool
	errors      []*errs.Error
}

// New creates a Resolver ready to annotate a freshly parsed AST, seeded with
// a real global scope (mirroring original_source/rlox's resolver, which
// seeds `scopes: vec![HashMap::new()]` rather than leaving the outermost
// scope untracked) so top-level bindings get the same Declared/defined
// lifecycle, and the same recursive-initializer check, as any other scope.
func New() *Resolver {
	return &Resolver{scopes: []scope{{}}}
}

// Resolve annotates every Var/Assign/This/Super node in stmts with its
// resolved depth and returns any static-semantic errors found.
func Resolve(stmts []ast.Stmt) []*errs.Error {
	r := New()
	r.resolveStmts(stmts)
	return r.errors
}

func (r *Resolver) errorAt(node ast.Node, kind errs.Kind, message string) {
	r.errors = append(r.errors, errs.New(errs.Resolution, kind, node.Location(), message))
}

func (r *Resolver) pushScope() { r.scopes = append(r.scopes, scope{}) }
func (r *Resolver) popScope()  { r.scopes = r.scopes[:len(r.scopes)-1] }
func (r *Resolver) top() scope { return r.scopes[len(r.scopes)-1] }

// atGlobalScope reports whether the only scope on the stack is the global
// one seeded in New. It exists solely so declare can allow top-level
// redeclaration (`var a = 1; var a = 2;` at script scope is legal); every
// other check against the scope stack treats the global scope like any
// other.
func (r *Resolver) atGlobalScope() bool { return len(r.scopes) == 1 }

func (r *Resolver) declare(name string, kind bindingKind, node ast.Node) {
	if _, exists := r.top()[name]; exists && !r.atGlobalScope() {
		r.errorAt(node, errs.KindAlreadyDeclared, "'"+name+"' is already declared in this scope")
	}
	r.top()[name] = kind
}

func (r *Resolver) define(name string, kind bindingKind) {
	r.top()[name] = kind
}

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) resolveStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		r.resolveExpr(n.Expr)
	case *ast.Print:
		r.resolveExpr(n.Expr)
	case *ast.VarStmt:
		r.declare(n.Name, kindDeclared, n)
		if n.Init != nil {
			r.resolveExpr(n.Init)
		}
		r.define(n.Name, kindVariable)
	case *ast.Block:
		r.pushScope()
		r.resolveStmts(n.Stmts)
		r.popScope()
	case *ast.If:
		r.resolveExpr(n.Cond)
		r.resolveStmt(n.Then)
		if n.Else != nil {
			r.resolveStmt(n.Else)
		}
	case *ast.While:
		r.resolveExpr(n.Cond)
		r.loopDepth++
		r.resolveStmt(n.Body)
		if n.Increment != nil {
			r.resolveExpr(n.Increment)
		}
		r.loopDepth--
	case *ast.Function:
		r.declare(n.Name, kindDeclared, n)
		r.define(n.Name, kindFunction)
		r.resolveFunction(n, n.Params, n.Body)
	case *ast.Class:
		r.resolveClass(n)
	case *ast.Return:
		if r.funcDepth == 0 {
			r.errorAt(n, errs.KindReturnOutsideFunction, "'return' outside a function")
		}
		if n.Value != nil {
			r.resolveExpr(n.Value)
		}
	case *ast.Break:
		if r.loopDepth == 0 {
			r.errorAt(n, errs.KindLoopControlOutsideLoop, "'break' outside a loop")
		}
	case *ast.Continue:
		if r.loopDepth == 0 {
			r.errorAt(n, errs.KindLoopControlOutsideLoop, "'continue' outside a loop")
		}
	}
}

// resolveFunction resolves a function-shaped body (named function, method,
// or lambda). node supplies a source location for parameter-collision
// errors; it is whichever declaration introduced params and body.
func (r *Resolver) resolveFunction(node ast.Node, params []string, body []ast.Stmt) {
	r.funcDepth++
	r.pushScope()
	for _, p := range params {
		r.declare(p, kindDeclared, node)
		r.define(p, kindVariable)
	}
	r.resolveStmts(body)
	r.popScope()
	r.funcDepth--
}

func (r *Resolver) resolveClass(n *ast.Class) {
	r.declare(n.Name, kindDeclared, n)
	r.define(n.Name, kindClass)
	r.classDepth++

	wasSubclass := r.inSubclass
	pushedSuper := false
	if n.BaseClass != nil {
		if n.BaseClass.Name == n.Name {
			r.errorAt(n.BaseClass, errs.KindSelfInheritance, "a class can't inherit from itself")
		} else if kind, ok := r.lookupKind(n.BaseClass.Name); ok && kind != kindClass {
			r.errorAt(n.BaseClass, errs.KindBaseNotAClass, "'"+n.BaseClass.Name+"' is not a class")
		}
		r.resolveVar(n.BaseClass)
		r.inSubclass = true
		r.pushScope()
		r.top()["super"] = kindVariable
		pushedSuper = true
	}

	r.pushScope()
	r.top()["this"] = kindVariable
	for i := range n.Methods {
		m := &n.Methods[i]
		r.resolveFunction(m, m.Params, m.Body)
	}
	r.popScope()

	if pushedSuper {
		r.popScope()
	}
	r.inSubclass = wasSubclass
	r.classDepth--
}

// lookupKind reports the kind a name is bound to, if any, without computing
// a depth; used only for the base-class-must-be-a-class check, which needs
// the binding's kind, not its location.
func (r *Resolver) lookupKind(name string) (bindingKind, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if kind, ok := r.scopes[i][name]; ok {
			return kind, true
		}
	}
	return 0, false
}

func (r *Resolver) resolveExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Literal:
		// nothing to resolve
	case *ast.Grouping:
		r.resolveExpr(n.Expr)
	case *ast.Unary:
		r.resolveExpr(n.Expr)
	case *ast.Binary:
		r.resolveExpr(n.Left)
		r.resolveExpr(n.Right)
	case *ast.Logical:
		r.resolveExpr(n.Left)
		r.resolveExpr(n.Right)
	case *ast.Ternary:
		r.resolveExpr(n.Cond)
		r.resolveExpr(n.Then)
		r.resolveExpr(n.Else)
	case *ast.Call:
		r.resolveExpr(n.Callee)
		for _, a := range n.Args {
			r.resolveExpr(a)
		}
	case *ast.Var:
		r.resolveVar(n)
	case *ast.Assign:
		r.resolveExpr(n.Expr)
		n.Depth = r.resolveLocal(n.Name)
	case *ast.Lambda:
		r.resolveFunction(n, n.Params, n.Body)
	case *ast.Get:
		r.resolveExpr(n.Object)
	case *ast.Set:
		r.resolveExpr(n.Value)
		r.resolveExpr(n.Object)
	case *ast.This:
		if r.classDepth == 0 {
			r.errorAt(n, errs.KindThisOutsideClass, "'this' used outside a class")
			return
		}
		n.Depth = r.resolveLocal("this")
	case *ast.Super:
		if r.classDepth == 0 {
			r.errorAt(n, errs.KindSuperOutsideClass, "'super' used outside a class")
			return
		}
		if !r.inSubclass {
			r.errorAt(n, errs.KindSuperWithoutBase, "'super' used in a class with no base class")
			return
		}
		n.Depth = r.resolveLocal("super")
	}
}

func (r *Resolver) resolveVar(n *ast.Var) {
	if kind, ok := r.top()[n.Name]; ok && kind == kindDeclared {
		r.errorAt(n, errs.KindRecursiveInitializer, "can't read '"+n.Name+"' in its own initializer")
		return
	}
	n.Depth = r.resolveLocal(n.Name)
}

// resolveLocal scans the scope stack innermost-out and returns the hop
// count to the scope that defines name. A name found nowhere keeps depth 0,
// which the evaluator resolves as a global lookup.
func (r *Resolver) resolveLocal(name string) int {
	top := len(r.scopes) - 1
	for i := top; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			return top - i
		}
	}
	return 0
}
