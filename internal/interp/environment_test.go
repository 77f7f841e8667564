package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineAndLookupInSameScope(t *testing.T) {
	env := NewEnvironment(nil)
	env.Define("x", Number(1))
	v, ok := env.Lookup(0, "x")
	require.True(t, ok)
	assert.Equal(t, Value(Number(1)), v)
}

func TestLookupWalksAncestors(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("x", Number(1))
	child := NewEnvironment(global)
	grandchild := NewEnvironment(child)

	v, ok := grandchild.Lookup(2, "x")
	require.True(t, ok)
	assert.Equal(t, Value(Number(1)), v)
}

func TestDepthZeroFallsBackToGlobalWhenUndefinedLocally(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("x", String("global"))
	child := NewEnvironment(global)

	v, ok := child.Lookup(0, "x")
	require.True(t, ok, "want fallback to global")
	assert.Equal(t, Value(String("global")), v)
}

func TestAssignWritesThroughSharedScope(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("x", Number(1))
	child := NewEnvironment(global)

	ok := child.Assign(0, "x", Number(2))
	require.True(t, ok)
	v, _ := global.Lookup(0, "x")
	assert.Equal(t, Value(Number(2)), v)
}

func TestAssignToUndefinedNameFails(t *testing.T) {
	env := NewEnvironment(nil)
	assert.False(t, env.Assign(0, "missing", Number(1)), "assign to undefined name should report false")
}
