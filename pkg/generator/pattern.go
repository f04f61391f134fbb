package generator

import (
	"slices"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

// patternMode selects the rules a pattern is built under.
type patternMode uint8

const (
	// modeMatch: named, anonymous or reused nodes, any relationship shape.
	modeMatch patternMode = iota
	// modeWrite: fresh variables only, one type and a direction per
	// relationship, mandatory properties filled in.
	modeWrite
	// modePredicate: anonymous everywhere, at least one relationship.
	modePredicate
	// modeComprehension: fresh or anonymous, at least one relationship.
	modeComprehension
)

func (s *Session) pattern(mode patternMode) (*ast.Pattern, error) {
	n := 1
	if !s.exhausted() {
		n += s.repeats()
	}
	p := &ast.Pattern{}
	for i := 0; i < n; i++ {
		part, err := s.patternPart(mode)
		if err != nil {
			return nil, err
		}
		p.Parts = append(p.Parts, part)
	}
	return p, nil
}

func (s *Session) patternPart(mode patternMode) (*ast.PatternPart, error) {
	part := &ast.PatternPart{}
	if (mode == modeMatch || mode == modeWrite) && !s.exhausted() && s.chance(1, 6) {
		v := s.env.BindFresh(ast.KindPath)
		part.Var = &v
	}
	el, err := s.patternElement(mode)
	if err != nil {
		return nil, err
	}
	part.Element = el
	return part, nil
}

// patternElement builds a node followed by a chain of relationship steps.
// Predicate and comprehension patterns always get at least one step.
func (s *Session) patternElement(mode patternMode) (*ast.PatternElement, error) {
	label, err := s.vertexLabel()
	if err != nil {
		return nil, err
	}
	node, err := s.nodePattern(mode, label)
	if err != nil {
		return nil, err
	}
	el := &ast.PatternElement{Node: node}

	steps := 0
	if mode == modePredicate || mode == modeComprehension {
		steps = 1
	}
	if !s.exhausted() {
		steps += s.repeats()
	}
	prev := label
	for i := 0; i < steps; i++ {
		rel, edge, err := s.relationshipPattern(mode)
		if err != nil {
			return nil, err
		}
		next, err := s.nextLabel(prev, edge, rel.Direction)
		if err != nil {
			return nil, err
		}
		np, err := s.nodePattern(mode, next)
		if err != nil {
			return nil, err
		}
		el.Chain = append(el.Chain, ast.PatternChain{Rel: rel, Node: np})
		prev = next
	}
	return el, nil
}

// nextLabel steers the far endpoint of a step by the relation pairs of its
// edge label. Without a single typed edge, or without a matching pair, the
// label is drawn uniformly.
func (s *Session) nextLabel(prev, edge *schema.Label, dir ast.Direction) (*schema.Label, error) {
	if edge != nil {
		var names []string
		switch dir {
		case ast.DirRight:
			names = edge.Endpoints(prev.Name)
		case ast.DirLeft:
			names = edge.Sources(prev.Name)
		default:
			names = append(edge.Endpoints(prev.Name), edge.Sources(prev.Name)...)
		}
		if len(names) > 0 {
			if l, ok := s.catalog.VertexLabel(names[s.rng.Intn(len(names))]); ok {
				return l, nil
			}
		}
	}
	return s.vertexLabel()
}

// nodePattern always carries exactly one vertex label. A named node is bound
// before its property map is built.
func (s *Session) nodePattern(mode patternMode, label *schema.Label) (*ast.NodePattern, error) {
	np := &ast.NodePattern{Label: label.Name}

	switch mode {
	case modeMatch:
		switch {
		case s.exhausted():
			v := s.bindEntity(ast.KindVertex, label)
			np.Var = &v
			return np, nil
		case s.env.Has(ast.KindVertex) && s.chance(1, 6):
			v, err := s.env.Existing(ast.KindVertex, s.rng)
			if err != nil {
				return nil, err
			}
			if l, ok := s.env.LabelOf(v.Name); ok {
				np.Label = l.Name
				label = l
			}
			np.Var = &v
		case s.chance(1, 6):
		default:
			v := s.bindEntity(ast.KindVertex, label)
			np.Var = &v
		}
		if !s.exhausted() && s.chance(1, 4) {
			np.Props = s.propertyMap(label, false)
		}
	case modeWrite:
		if s.chance(3, 4) {
			v := s.bindEntity(ast.KindVertex, label)
			np.Var = &v
		}
		np.Props = s.propertyMap(label, true)
	case modeComprehension:
		if s.chance(1, 2) {
			v := s.bindEntity(ast.KindVertex, label)
			np.Var = &v
		}
	}
	return np, nil
}

func (s *Session) bindEntity(k ast.ValueKind, l *schema.Label) ast.Variable {
	v := s.env.BindFresh(k)
	s.env.SetLabel(v.Name, l)
	return v
}

// propertyMap builds {key: value} entries for label. Write maps always carry
// the primary key and every non-nullable property; read maps pick a few
// properties at random and compare against the default literal.
func (s *Session) propertyMap(l *schema.Label, write bool) []ast.MapEntry {
	var entries []ast.MapEntry
	if write {
		for _, p := range l.Properties {
			if p.PrimaryKey || !p.Nullable {
				entries = append(entries, ast.MapEntry{Key: p.Name, Value: s.valueFor(p)})
			}
		}
	}
	if len(l.Properties) == 0 {
		return entries
	}
	n := s.repeats()
	if !write {
		n++
	}
	for i := 0; i < n; i++ {
		p, err := s.catalog.RandomProperty(l, s.rng)
		if err != nil {
			break
		}
		if slices.ContainsFunc(entries, func(e ast.MapEntry) bool { return e.Key == p.Name }) {
			continue
		}
		var v ast.Expr
		if write {
			v = s.valueFor(p)
		} else {
			v = p.Type.DefaultLiteral()
		}
		entries = append(entries, ast.MapEntry{Key: p.Name, Value: v})
	}
	return entries
}

var allDirections = []ast.Direction{ast.DirRight, ast.DirLeft, ast.DirBoth}

// relationshipPattern returns the pattern and, when it carries exactly one
// type, that edge label.
func (s *Session) relationshipPattern(mode patternMode) (*ast.RelationshipPattern, *schema.Label, error) {
	rp := &ast.RelationshipPattern{Direction: allDirections[s.rng.Intn(len(allDirections))]}

	if mode == modeWrite {
		edge, err := s.edgeLabel()
		if err != nil {
			return nil, nil, err
		}
		rp.Direction = allDirections[s.rng.Intn(2)]
		rp.Types = []string{edge.Name}
		if s.chance(1, 2) {
			v := s.bindEntity(ast.KindEdge, edge)
			rp.Var = &v
		}
		rp.Props = s.propertyMap(edge, true)
		return rp, edge, nil
	}

	var edges []*schema.Label
	for i, n := 0, s.weighted(3, 4, 1); i < n; i++ {
		edge, err := s.edgeLabel()
		if err != nil {
			// untyped relationships are fine when reading
			break
		}
		if !slices.Contains(edges, edge) {
			edges = append(edges, edge)
		}
	}
	for _, e := range edges {
		rp.Types = append(rp.Types, e.Name)
	}
	var single *schema.Label
	if len(edges) == 1 {
		single = edges[0]
	}

	if mode == modeMatch && !s.exhausted() && s.chance(1, 8) {
		rp.Range = s.rangeLiteral()
	}
	if (mode == modeMatch && s.chance(1, 2)) || (mode == modeComprehension && s.chance(1, 3)) {
		kind := ast.KindEdge
		if rp.Range != nil {
			kind = ast.KindList
		}
		v := s.env.BindFresh(kind)
		if kind == ast.KindEdge {
			s.env.SetLabel(v.Name, single)
		}
		rp.Var = &v
	}
	if mode == modeMatch && single != nil && s.chance(1, 4) {
		rp.Props = s.propertyMap(single, false)
	}
	return rp, single, nil
}

func (s *Session) rangeLiteral() *ast.RangeLiteral {
	r := &ast.RangeLiteral{}
	switch s.rng.Intn(4) {
	case 0:
	case 1:
		lo := s.rng.Intn(3)
		r.Min = &lo
	case 2:
		hi := 1 + s.rng.Intn(3)
		r.Max = &hi
	default:
		lo := s.rng.Intn(2)
		hi := lo + 1 + s.rng.Intn(2)
		r.Min, r.Max = &lo, &hi
	}
	return r
}
