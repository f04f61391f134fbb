package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeOf(t *testing.T) {
	v0 := &Variable{Name: "v0", Kind: KindVertex}

	t.Run("nil root", func(t *testing.T) {
		assert.Equal(t, Shape{}, ShapeOf(nil))
	})

	t.Run("single leaf", func(t *testing.T) {
		assert.Equal(t, Shape{Nodes: 1, Depth: 1}, ShapeOf(intLit(1)))
	})

	t.Run("binary expression", func(t *testing.T) {
		e := &BinOp{Op: OpAdd, LHS: intLit(1), RHS: &BinOp{Op: OpMul, LHS: intLit(2), RHS: intLit(3)}}
		assert.Equal(t, Shape{Nodes: 5, Depth: 3}, ShapeOf(e))
	})

	t.Run("minimal query", func(t *testing.T) {
		// Query > RegularQuery > SingleQuery > SinglePartQuery > ReadingClause >
		// Match > Pattern > PatternPart > PatternElement > NodePattern
		q := matchReturn(v0, "Person", nil, &ProjectionItems{Star: true})
		s := ShapeOf(q)
		assert.Equal(t, 10, s.Depth)
		// 10 on the match path plus Return, ProjectionBody, ProjectionItems.
		assert.Equal(t, 13, s.Nodes)
	})
}

func TestInspect_SkipsChildren(t *testing.T) {
	e := &BinOp{Op: OpAdd, LHS: intLit(1), RHS: intLit(2)}
	var seen []Node
	Inspect(e, func(n Node) bool {
		if n == nil {
			return false
		}
		seen = append(seen, n)
		return false
	})
	assert.Len(t, seen, 1)
}

func TestInspect_VisitsExpressionsInsideClauses(t *testing.T) {
	v0 := &Variable{Name: "v0", Kind: KindVertex}
	where := &Property{Base: vref("v0", KindVertex), Key: "id", ValKind: KindNumerical}
	q := matchReturn(v0, "Person", where, &ProjectionItems{Star: true})

	var props int
	Inspect(q, func(n Node) bool {
		if _, ok := n.(*Property); ok {
			props++
		}
		return true
	})
	assert.Equal(t, 1, props)
}
