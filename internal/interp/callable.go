package interp

import (
	"github.com/waxwing-lang/loxwalk/internal/ast"
)

// Callable is any Value that can appear as a Call expression's callee.
type Callable interface {
	Value
	Arity() int
	Call(it *Interpreter, args []Value) (Value, error)
}

// Function is a user-defined closure: a function or method body paired with
// the environment that existed when it was declared.
type Function struct {
	Name          string
	Params        []string
	Body          []ast.Stmt
	Closure       *Environment
	IsInitializer bool
}

func (*Function) valueNode()       {}
func (f *Function) String() string { return "<fn " + f.Name + ">" }

func (f *Function) Arity() int { return len(f.Params) }

// Call runs the function body in a fresh scope extending its closure, with
// parameters bound to the evaluated arguments. A `return` signal becomes the
// result; falling off the end of the body yields Nil. An `init` method
// always yields the instance it was bound to, regardless of what it returns.
func (f *Function) Call(it *Interpreter, args []Value) (Value, error) {
	callEnv := NewEnvironment(f.Closure)
	for i, name := range f.Params {
		callEnv.Define(name, args[i])
	}
	sig, err := it.execBlock(f.Body, callEnv)
	if err != nil {
		return nil, err
	}
	if f.IsInitializer {
		this, _ := f.Closure.Lookup(0, "this")
		return this, nil
	}
	if sig != nil && sig.kind == signalReturn {
		return sig.value, nil
	}
	return Nil{}, nil
}

// Bind produces a new closure identical to f but whose captured environment
// is extended by one scope pre-defining `this` to instance. This is how a
// method detached from its instance (`var m = obj.method; m()`) still sees
// the right instance state.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.Closure)
	env.Define("this", instance)
	return &Function{
		Name:          f.Name,
		Params:        f.Params,
		Body:          f.Body,
		Closure:       env,
		IsInitializer: f.IsInitializer,
	}
}

// NativeFunction is a built-in callable implemented in Go.
type NativeFunction struct {
	Name  string
	Arg   int
	Apply func(it *Interpreter, args []Value) (Value, error)
}

func (*NativeFunction) valueNode()       {}
func (n *NativeFunction) String() string { return "<native fn " + n.Name + ">" }
func (n *NativeFunction) Arity() int     { return n.Arg }

func (n *NativeFunction) Call(it *Interpreter, args []Value) (Value, error) {
	return n.Apply(it, args)
}
