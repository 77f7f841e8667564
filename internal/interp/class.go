package interp

import "github.com/waxwing-lang/loxwalk/internal/invariant"

// Class is a runtime class value: a name, an optional base class, and the
// methods declared directly on it (not including inherited ones, which
// FindMethod walks the Base chain to reach).
type Class struct {
	Name    string
	Base    *Class
	Methods map[string]*Function
}

func (*Class) valueNode()       {}
func (c *Class) String() string { return "<class " + c.Name + ">" }

// FindMethod looks up name on c, then on its base class, and so on.
func (c *Class) FindMethod(name string) *Function {
	if m, ok := c.Methods[name]; ok {
		return m
	}
	if c.Base != nil {
		return c.Base.FindMethod(name)
	}
	return nil
}

// Arity is the arity of the class's own-or-inherited init method, or 0 if it
// has none (the class is then called with no arguments).
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call instantiates c: a fresh Instance, with init (if any) bound and run
// against the supplied arguments.
func (c *Class) Call(it *Interpreter, args []Value) (Value, error) {
	instance := &Instance{Class: c, Fields: map[string]Value{}}
	if init := c.FindMethod("init"); init != nil {
		invariant.Precondition(len(args) == init.Arity(), "init of '%s' called with %d argument(s), arity %d", c.Name, len(args), init.Arity())
		if _, err := init.Bind(instance).Call(it, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// methodNames collects every method name visible on c, including inherited
// ones, for "did you mean" suggestions on a failed property lookup.
func (c *Class) methodNames() []string {
	var names []string
	seen := map[string]bool{}
	for cls := c; cls != nil; cls = cls.Base {
		for name := range cls.Methods {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Instance is a runtime object: a class pointer and a mutable field map.
// Field writes never consult the class; they always land directly on the
// instance, per spec.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func (*Instance) valueNode()       {}
func (i *Instance) String() string { return "<" + i.Class.Name + " instance>" }

// Get resolves a property: an instance field first, then a bound method.
func (i *Instance) Get(name string) (Value, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if m := i.Class.FindMethod(name); m != nil {
		return m.Bind(i), true
	}
	return nil, false
}

// Set writes a field directly, creating it if it doesn't already exist.
func (i *Instance) Set(name string, v Value) {
	i.Fields[name] = v
}

// PropertyNames collects every field and method name visible on i, for "did
// you mean" suggestions on a failed property lookup.
func (i *Instance) PropertyNames() []string {
	names := i.Class.methodNames()
	for name := range i.Fields {
		names = append(names, name)
	}
	return names
}
