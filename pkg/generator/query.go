package generator

import (
	"github.com/orneryd/cypherfuzz/pkg/ast"
)

// query expands Query -> RegularQuery | StandaloneCall. With no budget the
// regular form is the only one.
func (s *Session) query() (*ast.Query, error) {
	if !s.exhausted() && s.chance(1, 6) {
		call, err := s.standaloneCall()
		if err != nil {
			return nil, err
		}
		return &ast.Query{Call: call}, nil
	}
	rq, err := s.regularQuery()
	if err != nil {
		return nil, err
	}
	return &ast.Query{Regular: rq}, nil
}

// regularQuery is SingleQuery { UNION [ALL] SingleQuery }. Every branch
// starts from the scope the query started with.
func (s *Session) regularQuery() (*ast.RegularQuery, error) {
	scope := s.env.Mark()
	single, err := s.singleQuery()
	if err != nil {
		return nil, err
	}
	rq := &ast.RegularQuery{Single: single}
	for i, n := 0, s.repeats(); i < n; i++ {
		s.env.Release(scope)
		scope = s.env.Mark()
		sq, err := s.singleQuery()
		if err != nil {
			return nil, err
		}
		rq.Unions = append(rq.Unions, &ast.Union{All: s.chance(1, 2), Single: sq})
	}
	return rq, nil
}

func (s *Session) singleQuery() (*ast.SingleQuery, error) {
	if !s.exhausted() && s.chance(1, 4) {
		mp, err := s.multiPartQuery()
		if err != nil {
			return nil, err
		}
		return &ast.SingleQuery{MultiPart: mp}, nil
	}
	sp, err := s.singlePartQuery()
	if err != nil {
		return nil, err
	}
	return &ast.SingleQuery{SinglePart: sp}, nil
}

// singlePartQuery is either reading clauses ending in RETURN, or optional
// reading clauses, at least one updating clause and an optional RETURN. With
// no budget it is exactly one MATCH and a RETURN.
func (s *Session) singlePartQuery() (*ast.SinglePartQuery, error) {
	q := &ast.SinglePartQuery{}
	if s.exhausted() || s.chance(2, 3) {
		reading, err := s.readingClauses(1)
		if err != nil {
			return nil, err
		}
		q.Reading = reading
		ret, err := s.returnClause()
		if err != nil {
			return nil, err
		}
		q.Return = ret
		return q, nil
	}

	reading, err := s.readingClauses(0)
	if err != nil {
		return nil, err
	}
	q.Reading = reading
	updating, err := s.updatingClauses(1)
	if err != nil {
		return nil, err
	}
	q.Updating = updating
	if s.chance(1, 2) {
		ret, err := s.returnClause()
		if err != nil {
			return nil, err
		}
		q.Return = ret
	}
	return q, nil
}

// multiPartQuery is one or more WITH-terminated parts and a final
// single-part query.
func (s *Session) multiPartQuery() (*ast.MultiPartQuery, error) {
	mp := &ast.MultiPartQuery{}
	for i, n := 0, 1+s.repeats(); i < n; i++ {
		part := &ast.QueryPart{}
		atLeast := 0
		if i == 0 {
			atLeast = 1
		}
		reading, err := s.readingClauses(atLeast)
		if err != nil {
			return nil, err
		}
		part.Reading = reading
		if !s.exhausted() && s.chance(1, 4) {
			updating, err := s.updatingClauses(1)
			if err != nil {
				return nil, err
			}
			part.Updating = updating
		}
		with, err := s.with()
		if err != nil {
			return nil, err
		}
		part.With = with
		mp.Parts = append(mp.Parts, part)
	}
	tail, err := s.singlePartQuery()
	if err != nil {
		return nil, err
	}
	mp.Tail = tail
	return mp, nil
}

func (s *Session) readingClauses(atLeast int) ([]*ast.ReadingClause, error) {
	n := atLeast
	if !s.exhausted() {
		n += s.repeats()
	}
	var out []*ast.ReadingClause
	for i := 0; i < n; i++ {
		rc, err := s.readingClause()
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func (s *Session) readingClause() (*ast.ReadingClause, error) {
	if s.exhausted() {
		m, err := s.match()
		if err != nil {
			return nil, err
		}
		return &ast.ReadingClause{Match: m}, nil
	}
	switch s.weighted(6, 2, 1) {
	case 1:
		u, err := s.unwind()
		if err != nil {
			return nil, err
		}
		return &ast.ReadingClause{Unwind: u}, nil
	case 2:
		c, err := s.inQueryCall()
		if err != nil {
			return nil, err
		}
		return &ast.ReadingClause{Call: c}, nil
	}
	m, err := s.match()
	if err != nil {
		return nil, err
	}
	return &ast.ReadingClause{Match: m}, nil
}

func (s *Session) match() (*ast.Match, error) {
	m := &ast.Match{}
	if !s.exhausted() {
		m.Optional = s.chance(1, 5)
	}
	p, err := s.pattern(modeMatch)
	if err != nil {
		return nil, err
	}
	m.Pattern = p
	if !s.exhausted() && s.chance(1, 2) {
		w, err := s.topExpr(false).expr(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		m.Where = w
	}
	return m, nil
}

// unwind binds its variable only after the list expression is built, so the
// list cannot refer to it.
func (s *Session) unwind() (*ast.Unwind, error) {
	src, elem, err := s.topExpr(false).list()
	if err != nil {
		return nil, err
	}
	return &ast.Unwind{Expr: src, Var: s.env.BindFresh(elem)}, nil
}

func (s *Session) procedureArgs(p procedure) ([]ast.Expr, error) {
	if p.args == nil {
		return nil, nil
	}
	return p.args(s)
}

func (s *Session) yieldItems(p procedure) (*ast.YieldItems, error) {
	fields := p.yields
	n := 1 + s.rng.Intn(len(fields))
	order := s.rng.Perm(len(fields))[:n]
	y := &ast.YieldItems{}
	for _, i := range order {
		f := fields[i]
		y.Items = append(y.Items, ast.YieldItem{Field: f.name, Var: s.env.BindFresh(f.kind)})
	}
	if !s.exhausted() && s.chance(1, 3) {
		w, err := s.topExpr(false).expr(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		y.Where = w
	}
	return y, nil
}

func (s *Session) inQueryCall() (*ast.InQueryCall, error) {
	p := procedures[s.rng.Intn(len(procedures))]
	args, err := s.procedureArgs(p)
	if err != nil {
		return nil, err
	}
	y, err := s.yieldItems(p)
	if err != nil {
		return nil, err
	}
	return &ast.InQueryCall{
		Proc:  &ast.ExplicitProcedureInvocation{Name: p.name, Args: args},
		Yield: y,
	}, nil
}

func (s *Session) standaloneCall() (*ast.StandaloneCall, error) {
	p := procedures[s.rng.Intn(len(procedures))]
	c := &ast.StandaloneCall{}
	if p.args == nil && s.chance(1, 2) {
		c.Implicit = &ast.ImplicitProcedureInvocation{Name: p.name}
	} else {
		args, err := s.procedureArgs(p)
		if err != nil {
			return nil, err
		}
		c.Explicit = &ast.ExplicitProcedureInvocation{Name: p.name, Args: args}
	}
	switch s.weighted(2, 1, 2) {
	case 1:
		c.YieldAll = true
	case 2:
		y, err := s.yieldItems(p)
		if err != nil {
			return nil, err
		}
		c.Yield = y
	}
	return c, nil
}

func (s *Session) returnClause() (*ast.Return, error) {
	body, _, err := s.projectionBody(true)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Body: body}, nil
}

// with projects, narrows the scope to what it projected (unless it is
// WITH *), then builds its WHERE over the new scope.
func (s *Session) with() (*ast.With, error) {
	body, projected, err := s.projectionBody(false)
	if err != nil {
		return nil, err
	}
	if !body.Items.Star {
		s.env.Restrict(projected)
	}
	w := &ast.With{Body: body}
	if !s.exhausted() && s.chance(1, 3) {
		where, err := s.topExpr(false).expr(ast.KindBoolean)
		if err != nil {
			return nil, err
		}
		w.Where = where
	}
	return w, nil
}

// projectionBody builds the items of RETURN or WITH and reports the
// variables visible after it. WITH items that are not plain variables are
// always aliased. With no budget the projection is `*` or one bare variable.
func (s *Session) projectionBody(isReturn bool) (*ast.ProjectionBody, []ast.Variable, error) {
	body := &ast.ProjectionBody{Items: &ast.ProjectionItems{}}
	items := body.Items
	registered := s.env.Names()

	if s.exhausted() {
		switch {
		case len(registered) > 0 && s.chance(1, 2):
			items.Star = true
			return body, registered, nil
		case len(s.env.issued) > 0:
			v, err := s.env.AnyExisting(s.rng)
			if err != nil {
				return nil, nil, err
			}
			items.Items = []ast.ProjectionItem{{Expr: &ast.VarRef{Var: v}}}
			return body, []ast.Variable{v}, nil
		}
		alias := s.env.BindFresh(ast.KindNumerical)
		items.Items = []ast.ProjectionItem{{Expr: s.intLit(9), Alias: &alias}}
		return body, []ast.Variable{alias}, nil
	}

	body.Distinct = s.chance(1, 5)
	n := 1
	if len(registered) > 0 && s.chance(1, 5) {
		items.Star = true
		n = 0
	}
	n += s.repeats()

	exprs := make([]ast.Expr, 0, n)
	for i := 0; i < n; i++ {
		e, err := s.topExpr(true).expr(anyKind)
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, e)
	}

	var projected []ast.Variable
	if items.Star {
		projected = append(projected, registered...)
	}
	// aliases are bound after every item is built: siblings cannot see them
	for _, e := range exprs {
		item := ast.ProjectionItem{Expr: e}
		ref, plain := e.(*ast.VarRef)
		if !plain || s.chance(1, 4) || (isReturn && s.chance(1, 3)) {
			alias := s.env.BindFresh(e.Kind())
			if plain {
				if l, ok := s.env.LabelOf(ref.Var.Name); ok {
					s.env.SetLabel(alias.Name, l)
				}
			}
			item.Alias = &alias
			projected = append(projected, alias)
		} else {
			projected = append(projected, ref.Var)
		}
		items.Items = append(items.Items, item)
	}

	if len(projected) > 0 && s.chance(1, 4) {
		order := &ast.Order{}
		for i, k := 0, 1+s.repeats(); i < k; i++ {
			v := projected[s.rng.Intn(len(projected))]
			order.Items = append(order.Items, ast.SortItem{
				Expr:       &ast.VarRef{Var: v},
				Descending: s.chance(1, 2),
			})
		}
		body.Order = order
	}
	if s.chance(1, 6) {
		body.Skip = s.intLit(10)
	}
	if s.chance(1, 5) {
		body.Limit = s.intLit(25)
	}
	return body, projected, nil
}
