// Package ast defines the abstract syntax tree the parser builds and the
// resolver annotates in place. Every node carries a source.Location for
// diagnostics; Var, Assign, This, and Super expressions additionally carry a
// Depth field the resolver fills in (spec.md §3, §4.3).
package ast

import "github.com/waxwing-lang/loxwalk/internal/source"

// Node is implemented by every statement and expression node.
type Node interface {
	Location() source.Location
}

// Stmt is any statement-level AST node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is any expression-level AST node.
type Expr interface {
	Node
	exprNode()
}

// Base embeds the common location field and Location() accessor; every
// concrete node embeds it so adding a field here doesn't touch every node.
// It is exported so callers outside this package (the parser) can build
// node literals directly.
type Base struct {
	Loc source.Location
}

func (b Base) Location() source.Location { return b.Loc }

// At is shorthand for constructing a Base from a location.
func At(loc source.Location) Base { return Base{Loc: loc} }
