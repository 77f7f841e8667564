package invariant_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/waxwing-lang/loxwalk/internal/invariant"
)

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(1 == 1, "math works")
}

func TestPreconditionFail(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for false precondition")
		}
		msg := fmt.Sprintf("%v", r)
		if !strings.Contains(msg, "PRECONDITION VIOLATION") {
			t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
		}
		if !strings.Contains(msg, "scope stack must not be empty") {
			t.Errorf("expected custom message, got: %s", msg)
		}
	}()

	invariant.Precondition(false, "scope stack must not be empty")
}

func TestInvariantFail(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for false invariant")
		}
		if !strings.Contains(fmt.Sprintf("%v", r), "INVARIANT VIOLATION") {
			t.Errorf("unexpected message: %v", r)
		}
	}()

	invariant.Invariant(1 == 2, "scope chain must be restored")
}

func TestNotNilCatchesTypedNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for typed nil pointer")
		}
	}()

	var p *int
	invariant.NotNil(p, "p")
}

func TestUnreachable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	invariant.Unreachable("unknown expression kind %T", 42)
}
