// Package errs provides the typed, located errors shared across every pipeline
// stage: Lexical and Parse and Resolution errors are collected per-stage so a
// single run can report more than one; Runtime errors abort evaluation
// immediately. All four share one shape so a driver can format them uniformly.
package errs

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/waxwing-lang/loxwalk/internal/source"
)

// Stage identifies which pipeline phase raised an error, and therefore which
// process exit code it maps to.
type Stage int

const (
	Lexical Stage = iota
	Parse
	Resolution
	Runtime
)

// ExitCode returns the process exit code spec.md §6 assigns to this stage.
func (s Stage) ExitCode() int {
	switch s {
	case Lexical:
		return 101
	case Parse:
		return 102
	case Resolution:
		return 103
	case Runtime:
		return 104
	default:
		return 105
	}
}

func (s Stage) String() string {
	switch s {
	case Lexical:
		return "lexical"
	case Parse:
		return "parse"
	case Resolution:
		return "resolution"
	case Runtime:
		return "runtime"
	default:
		return "fatal"
	}
}

// Kind is a fine-grained error identity within a Stage. The Runtime kinds
// mirror spec.md §7 exactly; Lexical/Parse/Resolution kinds are this
// implementation's breakdown of the static errors spec.md §4.1-4.3 describe.
type Kind string

const (
	// Lexical.
	KindUnterminatedString     Kind = "unterminated-string"
	KindUnbalancedBlockComment Kind = "unbalanced-block-comment"
	KindUnrecognizedCharacter  Kind = "unrecognized-character"

	// Parse.
	KindUnexpectedToken   Kind = "unexpected-token"
	KindInvalidAssignment Kind = "invalid-assignment-target"
	KindTooManyArguments  Kind = "too-many-arguments"
	KindTooManyParameters Kind = "too-many-parameters"

	// Resolution.
	KindRecursiveInitializer   Kind = "recursive-initializer"
	KindAlreadyDeclared        Kind = "already-declared"
	KindReturnOutsideFunction  Kind = "return-outside-function"
	KindLoopControlOutsideLoop Kind = "loop-control-outside-loop"
	KindThisOutsideClass       Kind = "this-outside-class"
	KindSuperOutsideClass      Kind = "super-outside-class"
	KindSuperWithoutBase       Kind = "super-without-base"
	KindSelfInheritance        Kind = "self-inheritance"
	KindBaseNotAClass          Kind = "base-not-a-class"

	// Runtime, matching spec.md §7 verbatim.
	KindIllegalLiteral      Kind = "illegal-literal"
	KindIllegalUnary        Kind = "illegal-unary"
	KindIllegalBinary       Kind = "illegal-binary"
	KindMismatchedArgs      Kind = "mismatched-args"
	KindNotCallable         Kind = "not-callable"
	KindUndeclaredVariable  Kind = "undeclared-variable"
	KindUndefinedProperty   Kind = "undefined-property"
	KindAccessOnPrimitive   Kind = "access-on-primitive"
	KindZeroDivision        Kind = "zero-division"
	KindIllegalInheritance  Kind = "illegal-inheritance"
	KindNoBaseClass         Kind = "no-base-class"
	KindSystemTimeError     Kind = "system-time-error"
	KindFatalError          Kind = "fatal-error"
)

// Error is the single typed-error shape shared by every stage.
type Error struct {
	Stage   Stage
	Kind    Kind
	Message string
	Loc     source.Location
	HasLoc  bool
}

func (e *Error) Error() string {
	if e.HasLoc {
		return fmt.Sprintf("%s error (%s) at line %d: %s", e.Stage, e.Kind, e.Loc.Line, e.Message)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Stage, e.Kind, e.Message)
}

// New builds a located error for the given stage.
func New(stage Stage, kind Kind, loc source.Location, message string) *Error {
	return &Error{Stage: stage, Kind: kind, Message: message, Loc: loc, HasLoc: true}
}

// NewUnlocated builds an error with no meaningful source position, used for
// errors raised outside any single AST node, such as a native function
// rejecting its argument.
func NewUnlocated(stage Stage, kind Kind, message string) *Error {
	return &Error{Stage: stage, Kind: kind, Message: message}
}

// Suggest appends a "did you mean X?" hint to message when candidates
// contains a close match for name, using fuzzy string matching over the
// bindings visible at the point of failure (globals, enclosing scopes,
// instance properties and methods).
func Suggest(message, name string, candidates []string) string {
	best := closestMatch(name, candidates)
	if best == "" {
		return message
	}
	return fmt.Sprintf("%s (did you mean '%s'?)", message, best)
}

func closestMatch(name string, candidates []string) string {
	type scored struct {
		name string
		dist int
	}
	var ranked []scored
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := fuzzy.RankMatch(name, c)
		if d < 0 {
			continue
		}
		ranked = append(ranked, scored{c, d})
	}
	if len(ranked) == 0 {
		return ""
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	return ranked[0].name
}
