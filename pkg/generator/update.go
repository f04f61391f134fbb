package generator

import (
	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

func (s *Session) updatingClauses(atLeast int) ([]*ast.UpdatingClause, error) {
	n := atLeast
	if !s.exhausted() {
		n += s.repeats()
	}
	var out []*ast.UpdatingClause
	for i := 0; i < n; i++ {
		uc, err := s.updatingClause()
		if err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, nil
}

// updatingClause never picks SET, DELETE or REMOVE when no entity is bound
// for them to act on.
func (s *Session) updatingClause() (*ast.UpdatingClause, error) {
	entities := s.env.Has(ast.KindVertex) || s.env.Has(ast.KindEdge)
	switch s.weighted(4, 2, when(entities, 2), when(entities, 1), when(entities, 1)) {
	case 1:
		m, err := s.merge()
		if err != nil {
			return nil, err
		}
		return &ast.UpdatingClause{Merge: m}, nil
	case 2:
		set, err := s.set()
		if err != nil {
			return nil, err
		}
		return &ast.UpdatingClause{Set: set}, nil
	case 3:
		d, err := s.delete()
		if err != nil {
			return nil, err
		}
		return &ast.UpdatingClause{Delete: d}, nil
	case 4:
		r, err := s.remove()
		if err != nil {
			return nil, err
		}
		return &ast.UpdatingClause{Remove: r}, nil
	}
	p, err := s.pattern(modeWrite)
	if err != nil {
		return nil, err
	}
	return &ast.UpdatingClause{Create: &ast.Create{Pattern: p}}, nil
}

func (s *Session) merge() (*ast.Merge, error) {
	part, err := s.patternPart(modeWrite)
	if err != nil {
		return nil, err
	}
	m := &ast.Merge{Part: part}
	if !s.env.Has(ast.KindVertex) && !s.env.Has(ast.KindEdge) {
		return m, nil
	}
	for i, n := 0, s.repeats(); i < n; i++ {
		set, err := s.set()
		if err != nil {
			return nil, err
		}
		m.Actions = append(m.Actions, ast.MergeAction{OnCreate: s.chance(1, 2), Set: set})
	}
	return m, nil
}

// entity picks a bound vertex or edge variable together with its label. When
// the label is unknown a random label of the right kind stands in.
func (s *Session) entity() (ast.Variable, *schema.Label, error) {
	k := ast.KindVertex
	if !s.env.Has(k) || (s.env.Has(ast.KindEdge) && s.chance(1, 3)) {
		k = ast.KindEdge
	}
	v, err := s.env.Existing(k, s.rng)
	if err != nil {
		return ast.Variable{}, nil, err
	}
	if l, ok := s.env.LabelOf(v.Name); ok {
		return v, l, nil
	}
	var l *schema.Label
	if k == ast.KindEdge {
		l, err = s.edgeLabel()
	} else {
		l, err = s.vertexLabel()
	}
	if err != nil {
		return ast.Variable{}, nil, err
	}
	return v, l, nil
}

func (s *Session) set() (*ast.Set, error) {
	set := &ast.Set{}
	for i, n := 0, 1+s.repeats(); i < n; i++ {
		v, l, err := s.entity()
		if err != nil {
			return nil, err
		}
		item := ast.SetItem{Var: v}
		// a vertex carries exactly one label, so SET v:L only restates it
		_, labeled := s.env.LabelOf(v.Name)
		switch s.weighted(6, 1, 2, when(v.Kind == ast.KindVertex && labeled, 1)) {
		case 1, 2:
			item.Type = ast.SetAssign
			if s.chance(2, 3) {
				item.Type = ast.SetAppend
			}
			item.Value = &ast.Lit{Type: ast.LitMap, Entries: s.propertyMap(l, true)}
		case 3:
			item.Type = ast.SetLabels
			item.Labels = []string{l.Name}
		default:
			p, err := s.property(l)
			if err != nil {
				return nil, err
			}
			item.Type = ast.SetProperty
			item.Target = &ast.Property{Base: &ast.VarRef{Var: v}, Key: p.Name, ValKind: p.Type.Kind()}
			item.Value, err = s.setValue(p)
			if err != nil {
				return nil, err
			}
		}
		set.Items = append(set.Items, item)
	}
	return set, nil
}

// setValue is a random value of the property's type, or with budget to spare
// an expression of the matching kind.
func (s *Session) setValue(p *schema.Property) (ast.Expr, error) {
	k := p.Type.Kind()
	if s.exhausted() || k == ast.KindTime || s.chance(1, 2) {
		return s.valueFor(p), nil
	}
	return s.topExpr(false).expr(k)
}

func (s *Session) delete() (*ast.Delete, error) {
	d := &ast.Delete{Detach: s.chance(2, 3)}
	for i, n := 0, 1+s.repeats(); i < n; i++ {
		v, _, err := s.entity()
		if err != nil {
			return nil, err
		}
		d.Exprs = append(d.Exprs, &ast.VarRef{Var: v})
	}
	return d, nil
}

func (s *Session) remove() (*ast.Remove, error) {
	r := &ast.Remove{}
	for i, n := 0, 1+s.repeats(); i < n; i++ {
		v, l, err := s.entity()
		if err != nil {
			return nil, err
		}
		if v.Kind == ast.KindVertex && s.chance(1, 4) {
			r.Items = append(r.Items, ast.RemoveItem{Var: v, Labels: []string{l.Name}})
			continue
		}
		p, err := s.property(l)
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, ast.RemoveItem{
			Property: &ast.Property{Base: &ast.VarRef{Var: v}, Key: p.Name, ValKind: p.Type.Kind()},
		})
	}
	return r, nil
}
