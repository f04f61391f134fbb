package generator

import (
	"strconv"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

// exprGen is one expression scope. Opening it charges ScopeCost against the
// session budget; complexity counts the operator-chain extensions it added.
type exprGen struct {
	s          *Session
	complexity int
	limit      int
	// aggregates allows count(*) and aggregate functions, which are legal
	// only in projections.
	aggregates bool
}

// topExpr opens a scope for an expression slot of a clause. It charges what
// the budget still allows, so clauses can always fill their slots.
func (s *Session) topExpr(aggregates bool) *exprGen {
	cost := min(s.opts.ScopeCost, s.budget)
	s.budget -= cost
	s.scopes++
	return &exprGen{s: s, limit: s.opts.ExpressionComplexity, aggregates: aggregates}
}

// canNest reports whether a nested scope can be paid for.
func (s *Session) canNest() bool { return s.budget >= s.opts.ScopeCost }

// nested opens a scope from inside another expression. Callers check
// canNest first; every nested scope spends at least one unit, which bounds
// their number by the starting budget.
func (g *exprGen) nested() *exprGen {
	g.s.budget -= g.s.opts.ScopeCost
	g.s.scopes++
	g.s.nestedScopes++
	return &exprGen{s: g.s, limit: g.s.opts.ExpressionComplexity}
}

// extend decides whether a chain grows by one more element.
func (g *exprGen) extend() bool {
	if g.complexity >= g.limit || !g.s.chance(1, 3) || !g.s.spend(1) {
		return false
	}
	g.complexity++
	return true
}

// expr is the top of the precedence chain. An open request is sometimes
// narrowed to a scalar kind so operator levels get a chance to fire.
func (g *exprGen) expr(want ast.ValueKind) (ast.Expr, error) {
	if want == anyKind && !g.s.exhausted() && g.s.chance(1, 2) {
		want = scalarKinds[g.s.rng.Intn(len(scalarKinds))]
	}
	return g.or(want)
}

// boolChain builds a left-associative chain of op over next.
func (g *exprGen) boolChain(want ast.ValueKind, op ast.BinaryOp, next func(ast.ValueKind) (ast.Expr, error)) (ast.Expr, error) {
	if want != ast.KindBoolean {
		return next(want)
	}
	lhs, err := next(want)
	if err != nil {
		return nil, err
	}
	for g.extend() {
		rhs, err := next(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (g *exprGen) or(want ast.ValueKind) (ast.Expr, error) {
	return g.boolChain(want, ast.OpOr, g.xor)
}

func (g *exprGen) xor(want ast.ValueKind) (ast.Expr, error) {
	return g.boolChain(want, ast.OpXor, g.and)
}

func (g *exprGen) and(want ast.ValueKind) (ast.Expr, error) {
	return g.boolChain(want, ast.OpAnd, g.not)
}

func (g *exprGen) not(want ast.ValueKind) (ast.Expr, error) {
	if want == ast.KindBoolean && g.extend() {
		inner, err := g.not(want)
		if err != nil {
			return nil, err
		}
		return &ast.UnOp{Op: ast.OpNot, Operand: inner}, nil
	}
	return g.cmp(want)
}

var cmpOps = []ast.CmpOp{ast.CmpEq, ast.CmpNe, ast.CmpLt, ast.CmpGt, ast.CmpLe, ast.CmpGe}

func (g *exprGen) cmp(want ast.ValueKind) (ast.Expr, error) {
	if want != ast.KindBoolean || !g.extend() {
		return g.add(want)
	}
	operand := ast.KindNumerical
	if g.s.chance(1, 3) {
		operand = ast.KindString
	}
	base, err := g.add(operand)
	if err != nil {
		return nil, err
	}
	c := &ast.Cmp{Base: base}
	for {
		rhs, err := g.add(operand)
		if err != nil {
			return nil, err
		}
		c.Tail = append(c.Tail, ast.CmpPart{Op: cmpOps[g.s.rng.Intn(len(cmpOps))], RHS: rhs})
		if !g.extend() {
			return c, nil
		}
	}
}

func (g *exprGen) add(want ast.ValueKind) (ast.Expr, error) {
	if !accepts(want, ast.KindNumerical, ast.KindString, ast.KindList) || want == anyKind {
		return g.mul(want)
	}
	lhs, err := g.mul(want)
	if err != nil {
		return nil, err
	}
	for g.extend() {
		op := ast.OpAdd
		if want == ast.KindNumerical && g.s.chance(1, 2) {
			op = ast.OpSub
		}
		rhs, err := g.mul(want)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinOp{Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

var mulOps = []ast.BinaryOp{ast.OpMul, ast.OpDiv, ast.OpMod}

func (g *exprGen) mul(want ast.ValueKind) (ast.Expr, error) {
	if want != ast.KindNumerical {
		return g.pow(want)
	}
	lhs, err := g.pow(want)
	if err != nil {
		return nil, err
	}
	for g.extend() {
		rhs, err := g.pow(want)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinOp{Op: mulOps[g.s.rng.Intn(len(mulOps))], LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (g *exprGen) pow(want ast.ValueKind) (ast.Expr, error) {
	if want != ast.KindNumerical {
		return g.unary(want)
	}
	lhs, err := g.unary(want)
	if err != nil {
		return nil, err
	}
	for g.extend() {
		rhs, err := g.unary(want)
		if err != nil {
			return nil, err
		}
		lhs = &ast.BinOp{Op: ast.OpPow, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (g *exprGen) unary(want ast.ValueKind) (ast.Expr, error) {
	if want == ast.KindNumerical && g.extend() {
		inner, err := g.unary(want)
		if err != nil {
			return nil, err
		}
		op := ast.OpMinus
		if g.s.chance(1, 4) {
			op = ast.OpPlus
		}
		return &ast.UnOp{Op: op, Operand: inner}, nil
	}
	return g.suffix(want)
}

var stringOps = []ast.StringOpKind{ast.StrStartsWith, ast.StrEndsWith, ast.StrContains}

// suffix covers the string, list and null operator level.
func (g *exprGen) suffix(want ast.ValueKind) (ast.Expr, error) {
	switch {
	case want == ast.KindBoolean && g.extend():
		switch g.s.rng.Intn(3) {
		case 0:
			lhs, err := g.propertyOrLabels(ast.KindString)
			if err != nil {
				return nil, err
			}
			rhs, err := g.propertyOrLabels(ast.KindString)
			if err != nil {
				return nil, err
			}
			return &ast.StringOp{Op: stringOps[g.s.rng.Intn(len(stringOps))], LHS: lhs, RHS: rhs}, nil
		case 1:
			lhs, err := g.propertyOrLabels(anyKind)
			if err != nil {
				return nil, err
			}
			rhs, err := g.propertyOrLabels(ast.KindList)
			if err != nil {
				return nil, err
			}
			return &ast.InList{LHS: lhs, RHS: rhs}, nil
		default:
			operand, err := g.propertyOrLabels(anyKind)
			if err != nil {
				return nil, err
			}
			return &ast.NullCheck{Operand: operand, Not: g.s.chance(1, 2)}, nil
		}
	case want == anyKind && g.extend():
		base, err := g.propertyOrLabels(ast.KindList)
		if err != nil {
			return nil, err
		}
		return &ast.Index{Base: base, Index: g.s.intLit(3)}, nil
	case want == ast.KindList && g.extend():
		base, err := g.propertyOrLabels(ast.KindList)
		if err != nil {
			return nil, err
		}
		sl := &ast.Slice{Base: base}
		if g.s.chance(2, 3) {
			sl.From = g.s.intLit(2)
		}
		if g.s.chance(2, 3) {
			sl.To = g.s.intLit(5)
		}
		return sl, nil
	}
	return g.propertyOrLabels(want)
}

// propertyOrLabels attaches a property lookup or a label check, but only to
// a base whose kind is an entity; any other base is returned unchanged.
func (g *exprGen) propertyOrLabels(want ast.ValueKind) (ast.Expr, error) {
	env := g.s.env
	hasVertex, hasEdge := env.Has(ast.KindVertex), env.Has(ast.KindEdge)
	if want == ast.KindBoolean && hasVertex && g.s.chance(1, 6) && g.extend() {
		base, err := g.atom(ast.KindVertex)
		if err != nil {
			return nil, err
		}
		if base.Kind() != ast.KindVertex {
			return base, nil
		}
		l, err := g.s.vertexLabel()
		if err != nil {
			return nil, err
		}
		return &ast.LabelCheck{Base: base, Labels: []string{l.Name}}, nil
	}
	lookupable := want != ast.KindList && want != ast.KindMap &&
		want != ast.KindVertex && want != ast.KindEdge && want != ast.KindPath
	if lookupable && (hasVertex || hasEdge) && g.s.chance(1, 3) && g.extend() {
		baseKind := ast.KindVertex
		if !hasVertex || (hasEdge && g.s.chance(1, 3)) {
			baseKind = ast.KindEdge
		}
		base, err := g.atom(baseKind)
		if err != nil {
			return nil, err
		}
		if !base.Kind().IsEntity() {
			return base, nil
		}
		return g.lookup(base, want)
	}
	return g.atom(want)
}

// lookup builds base.key from a declared property of the base's label whose
// kind matches want. When the label has none, the base itself is used if its
// kind fits, otherwise a plain atom of the wanted kind.
func (g *exprGen) lookup(base ast.Expr, want ast.ValueKind) (ast.Expr, error) {
	label, err := g.labelOf(base)
	if err != nil {
		return nil, err
	}
	var matching []*schema.Property
	for _, p := range label.Properties {
		if accepts(want, p.Type.Kind()) {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		if accepts(want, base.Kind(), ast.KindNull) {
			return base, nil
		}
		return g.atom(want)
	}
	prop := matching[g.s.rng.Intn(len(matching))]
	return &ast.Property{Base: base, Key: prop.Name, ValKind: prop.Type.Kind()}, nil
}

// labelOf picks the label a lookup on base draws its keys from: the label a
// variable was bound with, the relation endpoints of startNode/endNode over a
// labeled edge variable, or a uniform pick.
func (g *exprGen) labelOf(base ast.Expr) (*schema.Label, error) {
	switch b := base.(type) {
	case *ast.VarRef:
		if l, ok := g.s.env.LabelOf(b.Var.Name); ok {
			return l, nil
		}
	case *ast.Paren:
		return g.labelOf(b.Inner)
	case *ast.FuncCall:
		if l := g.endpointLabel(b); l != nil {
			return l, nil
		}
	}
	if base.Kind() == ast.KindEdge {
		return g.s.edgeLabel()
	}
	return g.s.vertexLabel()
}

// endpointLabel resolves startNode(r) or endNode(r) to a vertex label named
// by one of r's relations. Nil when r's label is unknown.
func (g *exprGen) endpointLabel(call *ast.FuncCall) *schema.Label {
	if (call.Name != "startNode" && call.Name != "endNode") || len(call.Args) != 1 {
		return nil
	}
	ref, ok := call.Args[0].(*ast.VarRef)
	if !ok {
		return nil
	}
	edge, ok := g.s.env.LabelOf(ref.Var.Name)
	if !ok || len(edge.Relations) == 0 {
		return nil
	}
	r := edge.Relations[g.s.rng.Intn(len(edge.Relations))]
	name := r.To
	if call.Name == "startNode" {
		name = r.From
	}
	l, _ := g.s.catalog.VertexLabel(name)
	return l
}

// alt is one weighted atom alternative.
type alt struct {
	weight int
	build  func() (ast.Expr, error)
}

func (g *exprGen) choose(alts []alt) (ast.Expr, error) {
	weights := make([]int, len(alts))
	for i, a := range alts {
		weights[i] = a.weight
	}
	i := g.s.weighted(weights...)
	if i < 0 {
		return &ast.Lit{Type: ast.LitNull}, nil
	}
	return alts[i].build()
}

func when(cond bool, w int) int {
	if cond {
		return w
	}
	return 0
}

// atom is the terminal level. With no budget left only literals, parameters,
// variable references and count(*) remain.
func (g *exprGen) atom(want ast.ValueKind) (ast.Expr, error) {
	s := g.s
	nest := s.canNest()
	entity := want == ast.KindVertex || want == ast.KindEdge || want == ast.KindPath
	varWeight := 0
	if want == anyKind {
		varWeight = when(len(s.env.issued) > 0, 6)
	} else {
		varWeight = when(s.env.Has(want), 8)
	}
	fns := g.functionsFor(want)

	return g.choose([]alt{
		{when(!entity, 6), func() (ast.Expr, error) { return s.literal(want), nil }},
		{when(entity, 1), func() (ast.Expr, error) { return &ast.Lit{Type: ast.LitNull}, nil }},
		{when(want == anyKind, 1), g.parameter},
		{varWeight, func() (ast.Expr, error) { return g.variable(want) }},
		{when(g.aggregates && accepts(want, ast.KindNumerical), 1), func() (ast.Expr, error) { return &ast.CountStar{}, nil }},
		{when(nest, 2), func() (ast.Expr, error) { return g.caseExpr(want) }},
		{when(nest && accepts(want, ast.KindList), 2), g.listComprehension},
		{when(nest && accepts(want, ast.KindList), 1), g.patternComprehension},
		{when(nest && accepts(want, ast.KindBoolean), 2), g.predicateFunc},
		{when(nest && accepts(want, ast.KindBoolean), 1), g.patternPredicate},
		{when(nest, 1), func() (ast.Expr, error) { return g.paren(want) }},
		{when(nest && len(fns) > 0, 3), func() (ast.Expr, error) { return g.funcCall(fns) }},
		{when(nest && accepts(want, ast.KindBoolean), 1), func() (ast.Expr, error) { return g.subQuery(ast.SubQueryExists) }},
		{when(nest && accepts(want, ast.KindNumerical), 1), func() (ast.Expr, error) { return g.subQuery(ast.SubQueryCount) }},
	})
}

func (g *exprGen) parameter() (ast.Expr, error) {
	p := &ast.Parameter{Name: "p" + strconv.Itoa(g.s.params)}
	g.s.params++
	return p, nil
}

// variable references a bound variable. Open requests take the loose path
// half of the time: AnyExisting may return a name issued without kind
// registration.
func (g *exprGen) variable(want ast.ValueKind) (ast.Expr, error) {
	env := g.s.env
	if want == anyKind {
		if g.s.chance(1, 2) {
			v, err := env.AnyExisting(g.s.rng)
			if err != nil {
				return nil, err
			}
			return &ast.VarRef{Var: v}, nil
		}
		names := env.Names()
		if len(names) == 0 {
			v, err := env.AnyExisting(g.s.rng)
			if err != nil {
				return nil, err
			}
			return &ast.VarRef{Var: v}, nil
		}
		want = names[g.s.rng.Intn(len(names))].Kind
	}
	v, err := env.Existing(want, g.s.rng)
	if err != nil {
		return nil, err
	}
	return &ast.VarRef{Var: v}, nil
}

func (g *exprGen) caseExpr(want ast.ValueKind) (ast.Expr, error) {
	c := g.nested()
	e := &ast.Case{}
	whenKind := ast.KindBoolean
	if c.s.chance(1, 2) {
		whenKind = scalarKinds[c.s.rng.Intn(len(scalarKinds))]
		scrutinee, err := c.expr(whenKind)
		if err != nil {
			return nil, err
		}
		e.Scrutinee = scrutinee
	}
	thenKind := want
	if thenKind == anyKind {
		thenKind = scalarKinds[c.s.rng.Intn(len(scalarKinds))]
	}
	n := 1 + c.s.repeats()
	for i := 0; i < n; i++ {
		w, err := c.expr(whenKind)
		if err != nil {
			return nil, err
		}
		t, err := c.expr(thenKind)
		if err != nil {
			return nil, err
		}
		e.Alts = append(e.Alts, ast.CaseAlt{When: w, Then: t})
	}
	if c.s.chance(1, 2) {
		el, err := c.expr(thenKind)
		if err != nil {
			return nil, err
		}
		e.Else = el
	}
	return e, nil
}

// list produces a list-valued expression together with the kind of its
// elements, for UNWIND and comprehension sources.
func (g *exprGen) list() (ast.Expr, ast.ValueKind, error) {
	s := g.s
	env := s.env
	switch s.weighted(4, 2, when(env.Has(ast.KindPath), 2), when(env.Has(ast.KindVertex), 2), when(env.Has(ast.KindList), 1)) {
	case 1:
		return &ast.FuncCall{Name: "range", Result: ast.KindList,
			Args: []ast.Expr{s.intLit(2), s.intLit(10)}}, ast.KindNumerical, nil
	case 2:
		p, err := env.Existing(ast.KindPath, s.rng)
		if err != nil {
			return nil, 0, err
		}
		if s.chance(1, 2) {
			return &ast.FuncCall{Name: "nodes", Result: ast.KindList,
				Args: []ast.Expr{&ast.VarRef{Var: p}}}, ast.KindVertex, nil
		}
		return &ast.FuncCall{Name: "relationships", Result: ast.KindList,
			Args: []ast.Expr{&ast.VarRef{Var: p}}}, ast.KindEdge, nil
	case 3:
		v, err := env.Existing(ast.KindVertex, s.rng)
		if err != nil {
			return nil, 0, err
		}
		name := "labels"
		if s.chance(1, 2) {
			name = "keys"
		}
		return &ast.FuncCall{Name: name, Result: ast.KindList,
			Args: []ast.Expr{&ast.VarRef{Var: v}}}, ast.KindString, nil
	case 4:
		v, err := env.Existing(ast.KindList, s.rng)
		if err != nil {
			return nil, 0, err
		}
		return &ast.VarRef{Var: v}, ast.KindNull, nil
	}
	elem := scalarKinds[s.rng.Intn(len(scalarKinds))]
	lit := &ast.Lit{Type: ast.LitList}
	for i, n := 0, 1+s.repeats(); i < n; i++ {
		lit.Items = append(lit.Items, s.scalarLit(elem))
	}
	return lit, elem, nil
}

// filter builds `x IN source [WHERE pred]` and leaves x bound. The caller
// releases the returned scope once everything that may use x is built.
func (g *exprGen) filter(requireWhere bool) (*ast.Filter, Scope, error) {
	scope := g.s.env.Mark()
	src, elem, err := g.list()
	if err != nil {
		return nil, scope, err
	}
	f := &ast.Filter{Source: src, Bound: g.s.env.BindFresh(elem)}
	if requireWhere || g.s.chance(1, 2) {
		w, err := g.expr(ast.KindBoolean)
		if err != nil {
			return nil, scope, err
		}
		f.Where = w
	}
	return f, scope, nil
}

func (g *exprGen) listComprehension() (ast.Expr, error) {
	c := g.nested()
	f, scope, err := c.filter(false)
	defer c.s.env.Release(scope)
	if err != nil {
		return nil, err
	}
	lc := &ast.ListComprehension{Filter: f}
	if c.s.chance(2, 3) {
		p, err := c.expr(anyKind)
		if err != nil {
			return nil, err
		}
		lc.Projection = p
	}
	return lc, nil
}

var predicateKinds = []ast.PredicateKind{ast.PredAll, ast.PredAny, ast.PredNone, ast.PredSingle}

func (g *exprGen) predicateFunc() (ast.Expr, error) {
	c := g.nested()
	f, scope, err := c.filter(true)
	c.s.env.Release(scope)
	if err != nil {
		return nil, err
	}
	return &ast.PredicateFunc{Func: predicateKinds[c.s.rng.Intn(len(predicateKinds))], Filter: f}, nil
}

func (g *exprGen) patternComprehension() (ast.Expr, error) {
	c := g.nested()
	s := c.s
	scope := s.env.Mark()
	defer s.env.Release(scope)

	pc := &ast.PatternComprehension{}
	if s.chance(1, 4) {
		v := s.env.BindFresh(ast.KindPath)
		pc.Var = &v
	}
	el, err := s.patternElement(modeComprehension)
	if err != nil {
		return nil, err
	}
	pc.Element = el
	if s.chance(1, 3) {
		w, err := c.expr(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		pc.Where = w
	}
	proj, err := c.expr(anyKind)
	if err != nil {
		return nil, err
	}
	pc.Projection = proj
	return pc, nil
}

func (g *exprGen) patternPredicate() (ast.Expr, error) {
	g.nested()
	el, err := g.s.patternElement(modePredicate)
	if err != nil {
		return nil, err
	}
	return &ast.PatternPredicate{Element: el}, nil
}

func (g *exprGen) paren(want ast.ValueKind) (ast.Expr, error) {
	inner, err := g.nested().expr(want)
	if err != nil {
		return nil, err
	}
	return &ast.Paren{Inner: inner}, nil
}

// functionsFor lists the functions that can produce want with arguments the
// current scope can satisfy.
func (g *exprGen) functionsFor(want ast.ValueKind) []function {
	var out []function
	for _, f := range functions {
		if f.aggregate && !g.aggregates {
			continue
		}
		if want != anyKind && f.result != want {
			continue
		}
		ok := true
		for _, a := range f.args {
			if (a == ast.KindVertex || a == ast.KindEdge || a == ast.KindPath) && !g.s.env.Has(a) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, f)
		}
	}
	return out
}

func (g *exprGen) funcCall(candidates []function) (ast.Expr, error) {
	f := candidates[g.s.rng.Intn(len(candidates))]
	c := g.nested()
	call := &ast.FuncCall{Name: f.name, Result: storedKind(f.result)}
	call.Distinct = f.aggregate && len(f.args) == 1 && c.s.chance(1, 4)
	for _, k := range f.args {
		arg, err := c.expr(k)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// subQuery builds EXISTS { ... } or COUNT { ... }. Everything bound inside
// goes out of scope afterwards.
func (g *exprGen) subQuery(kind ast.SubQueryKind) (ast.Expr, error) {
	c := g.nested()
	s := c.s
	scope := s.env.Mark()
	defer s.env.Release(scope)

	sq := &ast.SubQuery{Type: kind}
	if kind == ast.SubQueryExists && s.canNest() && s.chance(1, 4) {
		rq, err := s.regularQuery()
		if err != nil {
			return nil, err
		}
		sq.Inner = rq
		return sq, nil
	}
	p, err := s.pattern(modeMatch)
	if err != nil {
		return nil, err
	}
	sq.Inner = p
	if s.chance(1, 2) {
		w, err := c.expr(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		sq.Where = w
	}
	return sq, nil
}
