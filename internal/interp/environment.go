package interp

import "github.com/waxwing-lang/loxwalk/internal/invariant"

// Environment is one scope in the environment chain: a name-to-value map
// with a reference to its parent. The chain is reference-shared, never
// copied, so multiple closures can capture and mutate the same scope.
type Environment struct {
	parent *Environment
	values map[string]Value
}

// NewEnvironment creates a child scope of parent (nil for the root/global
// scope).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{parent: parent, values: make(map[string]Value)}
}

// Define binds name to v in this scope, overwriting any existing binding
// (redeclaration in the global scope, or parameter binding in a fresh call
// frame).
func (e *Environment) Define(name string, v Value) {
	e.values[name] = v
}

// ancestor walks depth scopes up the chain. A depth that overruns the chain
// is an interpreter bug: it would mean the resolver computed a depth that
// doesn't correspond to any real scope, violating the invariant spec.md §3
// calls out explicitly.
func (e *Environment) ancestor(depth int) *Environment {
	env := e
	for i := 0; i < depth; i++ {
		invariant.Invariant(env.parent != nil, "resolved depth %d overruns the environment chain", depth)
		env = env.parent
	}
	return env
}

// Global returns the outermost scope in the chain.
func (e *Environment) Global() *Environment {
	env := e
	for env.parent != nil {
		env = env.parent
	}
	return env
}

// Lookup reads name at depth hops above e. When depth is 0 and the name
// isn't defined in the current scope, it falls back to the global scope,
// which is what lets a top-level function or variable be referenced before
// its own declaration has run (spec.md §4.4, §9).
func (e *Environment) Lookup(depth int, name string) (Value, bool) {
	scope := e.ancestor(depth)
	if v, ok := scope.values[name]; ok {
		return v, true
	}
	if depth == 0 {
		if v, ok := e.Global().values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign writes name at depth hops above e, applying the same depth-0
// global fallback as Lookup. It reports whether a binding was found to
// write into.
func (e *Environment) Assign(depth int, name string, v Value) bool {
	scope := e.ancestor(depth)
	if _, ok := scope.values[name]; ok {
		scope.values[name] = v
		return true
	}
	if depth == 0 {
		global := e.Global()
		if _, ok := global.values[name]; ok {
			global.values[name] = v
			return true
		}
	}
	return false
}
