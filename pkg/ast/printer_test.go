package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vref(name string, k ValueKind) *VarRef { return &VarRef{Var: Variable{Name: name, Kind: k}} }

func intLit(n int64) *Lit { return &Lit{Type: LitInteger, Int: n} }

func matchReturn(v *Variable, label string, where Expr, items *ProjectionItems) *Query {
	return &Query{Regular: &RegularQuery{Single: &SingleQuery{SinglePart: &SinglePartQuery{
		Reading: []*ReadingClause{{Match: &Match{
			Pattern: &Pattern{Parts: []*PatternPart{{Element: &PatternElement{
				Node: &NodePattern{Var: v, Label: label},
			}}}},
			Where: where,
		}}},
		Return: &Return{Body: &ProjectionBody{Items: items}},
	}}}}
}

func TestSerialize_Queries(t *testing.T) {
	v0 := &Variable{Name: "v0", Kind: KindVertex}

	tests := []struct {
		name string
		q    *Query
		want string
	}{
		{
			name: "match return star",
			q:    matchReturn(v0, "Person", nil, &ProjectionItems{Star: true}),
			want: "MATCH (v0:Person) RETURN *;",
		},
		{
			name: "match where return var",
			q: matchReturn(v0, "Person",
				&Cmp{Base: &Property{Base: vref("v0", KindVertex), Key: "id", ValKind: KindNumerical},
					Tail: []CmpPart{{Op: CmpGt, RHS: intLit(3)}}},
				&ProjectionItems{Items: []ProjectionItem{{Expr: vref("v0", KindVertex)}}}),
			want: "MATCH (v0:Person) WHERE v0.id > 3 RETURN v0;",
		},
		{
			name: "quoted label",
			q:    matchReturn(v0, "my label", nil, &ProjectionItems{Star: true}),
			want: "MATCH (v0:`my label`) RETURN *;",
		},
		{
			name: "standalone call yield all",
			q: &Query{Call: &StandaloneCall{
				Implicit: &ImplicitProcedureInvocation{Name: "db.labels"},
				YieldAll: true,
			}},
			want: "CALL db.labels YIELD *;",
		},
		{
			name: "union all",
			q: func() *Query {
				q := matchReturn(v0, "A", nil, &ProjectionItems{Star: true})
				other := matchReturn(v0, "B", nil, &ProjectionItems{Star: true})
				q.Regular.Unions = []*Union{{All: true, Single: other.Regular.Single}}
				return q
			}(),
			want: "MATCH (v0:A) RETURN * UNION ALL MATCH (v0:B) RETURN *;",
		},
		{
			name: "create relationship",
			q: &Query{Regular: &RegularQuery{Single: &SingleQuery{SinglePart: &SinglePartQuery{
				Updating: []*UpdatingClause{{Create: &Create{Pattern: &Pattern{Parts: []*PatternPart{{
					Element: &PatternElement{
						Node: &NodePattern{Var: v0, Label: "Person",
							Props: []MapEntry{{Key: "id", Value: intLit(0)}}},
						Chain: []PatternChain{{
							Rel:  &RelationshipPattern{Direction: DirRight, Types: []string{"KNOWS"}},
							Node: &NodePattern{Label: "Person"},
						}},
					},
				}}}}}},
			}}}},
			want: "CREATE (v0:Person {id: 0})-[:KNOWS]->(:Person);",
		},
		{
			name: "with then return",
			q: &Query{Regular: &RegularQuery{Single: &SingleQuery{MultiPart: &MultiPartQuery{
				Parts: []*QueryPart{{
					Reading: []*ReadingClause{{Unwind: &Unwind{
						Expr: &Lit{Type: LitList, Items: []Expr{intLit(1), intLit(2)}},
						Var:  Variable{Name: "v1", Kind: KindNumerical},
					}}},
					With: &With{Body: &ProjectionBody{
						Distinct: true,
						Items:    &ProjectionItems{Items: []ProjectionItem{{Expr: vref("v1", KindNumerical)}}},
					}},
				}},
				Tail: &SinglePartQuery{Return: &Return{Body: &ProjectionBody{
					Items: &ProjectionItems{Items: []ProjectionItem{{
						Expr:  vref("v1", KindNumerical),
						Alias: &Variable{Name: "v2", Kind: KindNumerical},
					}}},
					Order: &Order{Items: []SortItem{{Expr: vref("v2", KindNumerical), Descending: true}}},
					Limit: intLit(5),
				}}},
			}}}},
			want: "UNWIND [1, 2] AS v1 WITH DISTINCT v1 RETURN v1 AS v2 ORDER BY v2 DESC LIMIT 5;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_Precedence(t *testing.T) {
	a := vref("a", KindNumerical)
	b := vref("b", KindNumerical)
	c := vref("c", KindNumerical)
	p := vref("p", KindBoolean)
	q := vref("q", KindBoolean)

	tests := []struct {
		name string
		e    Expr
		want string
	}{
		{"left assoc sub", &BinOp{Op: OpSub, LHS: &BinOp{Op: OpSub, LHS: a, RHS: b}, RHS: c}, "a - b - c"},
		{"right nested sub", &BinOp{Op: OpSub, LHS: a, RHS: &BinOp{Op: OpSub, LHS: b, RHS: c}}, "a - (b - c)"},
		{"mul over add", &BinOp{Op: OpMul, LHS: &BinOp{Op: OpAdd, LHS: a, RHS: b}, RHS: c}, "(a + b) * c"},
		{"add over mul", &BinOp{Op: OpAdd, LHS: a, RHS: &BinOp{Op: OpMul, LHS: b, RHS: c}}, "a + b * c"},
		{"and over or", &BinOp{Op: OpAnd, LHS: &BinOp{Op: OpOr, LHS: p, RHS: q}, RHS: p}, "(p OR q) AND p"},
		{"not and", &UnOp{Op: OpNot, Operand: &BinOp{Op: OpAnd, LHS: p, RHS: q}}, "NOT (p AND q)"},
		{"not not", &UnOp{Op: OpNot, Operand: &UnOp{Op: OpNot, Operand: p}}, "NOT NOT p"},
		{"double minus", &UnOp{Op: OpMinus, Operand: &UnOp{Op: OpMinus, Operand: a}}, "-(-a)"},
		{"pow of minus", &BinOp{Op: OpPow, LHS: a, RHS: &UnOp{Op: OpMinus, Operand: b}}, "a ^ -b"},
		{
			"cmp chain",
			&Cmp{Base: a, Tail: []CmpPart{{Op: CmpLt, RHS: b}, {Op: CmpLe, RHS: &BinOp{Op: OpAdd, LHS: b, RHS: c}}}},
			"a < b <= b + c",
		},
		{
			"cmp inside cmp",
			&Cmp{Base: &Cmp{Base: a, Tail: []CmpPart{{Op: CmpEq, RHS: b}}}, Tail: []CmpPart{{Op: CmpNe, RHS: p}}},
			"(a = b) <> p",
		},
		{
			"string op",
			&StringOp{Op: StrStartsWith, LHS: vref("s", KindString), RHS: &Lit{Type: LitString, Str: "it's"}},
			`s STARTS WITH 'it\'s'`,
		},
		{"is not null", &NullCheck{Operand: a, Not: true}, "a IS NOT NULL"},
		{"in list", &InList{LHS: a, RHS: &Lit{Type: LitList}}, "a IN []"},
		{"index", &Index{Base: vref("l", KindList), Index: intLit(0)}, "l[0]"},
		{"slice open", &Slice{Base: vref("l", KindList), To: intLit(2)}, "l[..2]"},
		{
			"property of paren",
			&Property{Base: &Paren{Inner: vref("n", KindVertex)}, Key: "name", ValKind: KindString},
			"(n).name",
		},
		{
			"label check",
			&LabelCheck{Base: vref("n", KindVertex), Labels: []string{"Person"}},
			"n:Person",
		},
		{"float keeps point", &Lit{Type: LitFloat, Float: 2}, "2.0"},
		{"map literal", &Lit{Type: LitMap, Entries: []MapEntry{{Key: "k", Value: &Lit{Type: LitNull}}}}, "{k: null}"},
		{"parameter", &Parameter{Name: "p0"}, "$p0"},
		{"count star", &CountStar{}, "count(*)"},
		{
			"case generic",
			&Case{Alts: []CaseAlt{{When: p, Then: intLit(1)}}, Else: intLit(0)},
			"CASE WHEN p THEN 1 ELSE 0 END",
		},
		{
			"list comprehension",
			&ListComprehension{
				Filter:     &Filter{Bound: Variable{Name: "x", Kind: KindNull}, Source: vref("l", KindList), Where: p},
				Projection: vref("x", KindNull),
			},
			"[x IN l WHERE p | x]",
		},
		{
			"predicate function",
			&PredicateFunc{Func: PredAny, Filter: &Filter{Bound: Variable{Name: "x"}, Source: vref("l", KindList)}},
			"any(x IN l)",
		},
		{
			"function call distinct",
			&FuncCall{Name: "count", Distinct: true, Args: []Expr{a}, Result: KindNumerical},
			"count(DISTINCT a)",
		},
		{
			"exists pattern",
			&SubQuery{
				Type: SubQueryExists,
				Inner: &Pattern{Parts: []*PatternPart{{Element: &PatternElement{
					Node: &NodePattern{Label: "A"},
					Chain: []PatternChain{{
						Rel:  &RelationshipPattern{Direction: DirBoth},
						Node: &NodePattern{Label: "B"},
					}},
				}}}},
				Where: p,
			},
			"EXISTS { (:A)-[]-(:B) WHERE p }",
		},
		{
			"pattern predicate left",
			&PatternPredicate{Element: &PatternElement{
				Node: &NodePattern{Label: "A"},
				Chain: []PatternChain{{
					Rel:  &RelationshipPattern{Direction: DirLeft, Types: []string{"R", "S"}},
					Node: &NodePattern{Label: "B"},
				}},
			}},
			"(:A)<-[:R|S]-(:B)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.e)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_RangeLiteral(t *testing.T) {
	one, three := 1, 3
	tests := []struct {
		r    *RangeLiteral
		want string
	}{
		{&RangeLiteral{}, "-[*]->"},
		{&RangeLiteral{Min: &one}, "-[*1..]->"},
		{&RangeLiteral{Max: &three}, "-[*..3]->"},
		{&RangeLiteral{Min: &one, Max: &three}, "-[*1..3]->"},
	}
	for _, tt := range tests {
		got, err := Format(&RelationshipPattern{Direction: DirRight, Range: tt.r})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormat_Malformed(t *testing.T) {
	tests := []struct {
		name string
		n    Node
	}{
		{"empty query", &Query{}},
		{"query with both bodies", &Query{Regular: &RegularQuery{}, Call: &StandaloneCall{}}},
		{"empty projection", &ProjectionItems{}},
		{"single part without return", &SinglePartQuery{}},
		{"cmp without tail", &Cmp{Base: intLit(1)}},
		{"empty reading clause", &ReadingClause{}},
		{"subquery where on query", &SubQuery{Inner: &RegularQuery{}, Where: intLit(1)}},
		{"pattern predicate without chain", &PatternPredicate{Element: &PatternElement{Node: &NodePattern{}}}},
		{"nil operand", &BinOp{Op: OpAdd, LHS: intLit(1)}},
		{"typed nil", (*Query)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.n)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestSerialize_DoesNotMutate(t *testing.T) {
	v0 := &Variable{Name: "v0", Kind: KindVertex}
	q := matchReturn(v0, "Person", nil, &ProjectionItems{Star: true})
	first, err := Serialize(q)
	require.NoError(t, err)
	second, err := Serialize(q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
