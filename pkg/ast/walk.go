package ast

import (
	"fmt"
	"reflect"
)

// Inspect traverses the tree rooted at node in depth-first order. It calls
// f(n) for each node; if f returns true, Inspect visits the children of n and
// then calls f(nil). Nil children are skipped.
func Inspect(node Node, f func(Node) bool) {
	if isNil(node) || !f(node) {
		return
	}
	for _, c := range children(node) {
		Inspect(c, f)
	}
	f(nil)
}

// isNil also catches typed nil pointers stored in interface fields.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

type childList []Node

func (c *childList) add(n Node) {
	if !isNil(n) {
		*c = append(*c, n)
	}
}

func (c *childList) exprs(es []Expr) {
	for _, e := range es {
		c.add(e)
	}
}

func (c *childList) entries(es []MapEntry) {
	for _, e := range es {
		c.add(e.Value)
	}
}

func children(node Node) []Node {
	var c childList
	switch n := node.(type) {
	case *Query:
		if n.Regular != nil {
			c.add(n.Regular)
		}
		if n.Call != nil {
			c.add(n.Call)
		}
	case *RegularQuery:
		c.add(n.Single)
		for _, u := range n.Unions {
			c.add(u)
		}
	case *Union:
		c.add(n.Single)
	case *SingleQuery:
		if n.SinglePart != nil {
			c.add(n.SinglePart)
		}
		if n.MultiPart != nil {
			c.add(n.MultiPart)
		}
	case *SinglePartQuery:
		for _, r := range n.Reading {
			c.add(r)
		}
		for _, u := range n.Updating {
			c.add(u)
		}
		if n.Return != nil {
			c.add(n.Return)
		}
	case *MultiPartQuery:
		for _, p := range n.Parts {
			c.add(p)
		}
		c.add(n.Tail)
	case *QueryPart:
		for _, r := range n.Reading {
			c.add(r)
		}
		for _, u := range n.Updating {
			c.add(u)
		}
		c.add(n.With)
	case *With:
		c.add(n.Body)
		c.add(n.Where)
	case *ReadingClause:
		switch {
		case n.Match != nil:
			c.add(n.Match)
		case n.Unwind != nil:
			c.add(n.Unwind)
		case n.Call != nil:
			c.add(n.Call)
		}
	case *UpdatingClause:
		switch {
		case n.Create != nil:
			c.add(n.Create)
		case n.Merge != nil:
			c.add(n.Merge)
		case n.Delete != nil:
			c.add(n.Delete)
		case n.Set != nil:
			c.add(n.Set)
		case n.Remove != nil:
			c.add(n.Remove)
		}
	case *Return:
		c.add(n.Body)
	case *ProjectionBody:
		c.add(n.Items)
		if n.Order != nil {
			c.add(n.Order)
		}
		c.add(n.Skip)
		c.add(n.Limit)
	case *ProjectionItems:
		for _, it := range n.Items {
			c.add(it.Expr)
		}
	case *Order:
		for _, it := range n.Items {
			c.add(it.Expr)
		}
	case *Match:
		c.add(n.Pattern)
		c.add(n.Where)
	case *Unwind:
		c.add(n.Expr)
	case *InQueryCall:
		c.add(n.Proc)
		if n.Yield != nil {
			c.add(n.Yield)
		}
	case *StandaloneCall:
		if n.Explicit != nil {
			c.add(n.Explicit)
		}
		if n.Implicit != nil {
			c.add(n.Implicit)
		}
		if n.Yield != nil {
			c.add(n.Yield)
		}
	case *Create:
		c.add(n.Pattern)
	case *Merge:
		c.add(n.Part)
		for _, a := range n.Actions {
			c.add(a.Set)
		}
	case *Delete:
		c.exprs(n.Exprs)
	case *Set:
		for _, it := range n.Items {
			if it.Target != nil {
				c.add(it.Target)
			}
			c.add(it.Value)
		}
	case *Remove:
		for _, it := range n.Items {
			if it.Property != nil {
				c.add(it.Property)
			}
		}
	case *ExplicitProcedureInvocation:
		c.exprs(n.Args)
	case *ImplicitProcedureInvocation:
	case *YieldItems:
		c.add(n.Where)
	case *Pattern:
		for _, p := range n.Parts {
			c.add(p)
		}
	case *PatternPart:
		c.add(n.Element)
	case *PatternElement:
		c.add(n.Node)
		for _, ch := range n.Chain {
			c.add(ch.Rel)
			c.add(ch.Node)
		}
	case *NodePattern:
		c.entries(n.Props)
	case *RelationshipPattern:
		c.entries(n.Props)

	case *BinOp:
		c.add(n.LHS)
		c.add(n.RHS)
	case *UnOp:
		c.add(n.Operand)
	case *Cmp:
		c.add(n.Base)
		for _, p := range n.Tail {
			c.add(p.RHS)
		}
	case *Lit:
		c.exprs(n.Items)
		c.entries(n.Entries)
	case *VarRef, *Parameter, *CountStar:
	case *Property:
		c.add(n.Base)
	case *LabelCheck:
		c.add(n.Base)
	case *Case:
		c.add(n.Scrutinee)
		for _, a := range n.Alts {
			c.add(a.When)
			c.add(a.Then)
		}
		c.add(n.Else)
	case *Filter:
		c.add(n.Source)
		c.add(n.Where)
	case *PredicateFunc:
		if n.Filter != nil {
			c.add(n.Filter)
		}
	case *SubQuery:
		c.add(n.Inner)
		c.add(n.Where)
	case *ListComprehension:
		if n.Filter != nil {
			c.add(n.Filter)
		}
		c.add(n.Projection)
	case *PatternComprehension:
		c.add(n.Element)
		c.add(n.Where)
		c.add(n.Projection)
	case *PatternPredicate:
		c.add(n.Element)
	case *Paren:
		c.add(n.Inner)
	case *FuncCall:
		c.exprs(n.Args)
	case *StringOp:
		c.add(n.LHS)
		c.add(n.RHS)
	case *InList:
		c.add(n.LHS)
		c.add(n.RHS)
	case *NullCheck:
		c.add(n.Operand)
	case *Index:
		c.add(n.Base)
		c.add(n.Index)
	case *Slice:
		c.add(n.Base)
		c.add(n.From)
		c.add(n.To)
	default:
		panic(fmt.Sprintf("ast.Inspect: unexpected node type %T", n))
	}
	return c
}
