package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

func TestEnvironment_BindFresh(t *testing.T) {
	env := NewEnvironment()
	a := env.BindFresh(ast.KindVertex)
	b := env.BindFresh(ast.KindEdge)
	c := env.BindFreshUnregistered()

	assert.Equal(t, "v0", a.Name)
	assert.Equal(t, "v1", b.Name)
	assert.Equal(t, "v2", c.Name)
	assert.Equal(t, []string{"v0"}, env.Bound(ast.KindVertex))
	assert.Equal(t, []string{"v1"}, env.Bound(ast.KindEdge))
	assert.False(t, env.Has(ast.KindNull), "unregistered names stay out of the kind registry")
}

func TestEnvironment_Existing(t *testing.T) {
	env := NewEnvironment()
	r := rand.New(rand.NewSource(1))

	_, err := env.Existing(ast.KindVertex, r)
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
	assert.ErrorIs(t, err, ErrNoVariable)

	env.BindFresh(ast.KindVertex)
	env.BindFresh(ast.KindVertex)
	for i := 0; i < 20; i++ {
		v, err := env.Existing(ast.KindVertex, r)
		require.NoError(t, err)
		assert.Contains(t, []string{"v0", "v1"}, v.Name)
		assert.Equal(t, ast.KindVertex, v.Kind)
	}
}

func TestEnvironment_AnyExisting(t *testing.T) {
	env := NewEnvironment()
	r := rand.New(rand.NewSource(1))

	_, err := env.AnyExisting(r)
	assert.True(t, IsRecoverable(err))

	env.BindFreshUnregistered()
	v, err := env.AnyExisting(r)
	require.NoError(t, err)
	assert.Equal(t, "v0", v.Name)

	_, err = env.Existing(ast.KindNull, r)
	assert.Error(t, err, "loose names are not returned by the strict lookup")
}

func TestEnvironment_MarkRelease(t *testing.T) {
	env := NewEnvironment()
	outer := env.BindFresh(ast.KindVertex)
	env.SetLabel(outer.Name, &schema.Label{Name: "Person"})

	scope := env.Mark()
	inner := env.BindFresh(ast.KindVertex)
	env.BindFresh(ast.KindNumerical)
	env.SetLabel(inner.Name, &schema.Label{Name: "City"})
	env.Release(scope)

	assert.Equal(t, []string{outer.Name}, env.Bound(ast.KindVertex))
	assert.False(t, env.Has(ast.KindNumerical))
	_, ok := env.LabelOf(inner.Name)
	assert.False(t, ok)
	l, ok := env.LabelOf(outer.Name)
	require.True(t, ok)
	assert.Equal(t, "Person", l.Name)

	// the counter keeps running across scopes
	assert.Equal(t, "v3", env.BindFresh(ast.KindString).Name)
}

func TestEnvironment_Restrict(t *testing.T) {
	env := NewEnvironment()
	a := env.BindFresh(ast.KindVertex)
	env.SetLabel(a.Name, &schema.Label{Name: "Person"})
	env.BindFresh(ast.KindEdge)
	alias := env.BindFresh(ast.KindNumerical)

	env.Restrict([]ast.Variable{a, alias})

	assert.Equal(t, []string{a.Name}, env.Bound(ast.KindVertex))
	assert.False(t, env.Has(ast.KindEdge))
	assert.Equal(t, []string{alias.Name}, env.Bound(ast.KindNumerical))
	_, ok := env.LabelOf(a.Name)
	assert.True(t, ok)
	assert.Len(t, env.Names(), 2)
}
