package generator

import (
	"fmt"
	"maps"
	"math/rand"
	"slices"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

// Environment tracks the variables a session has bound. Names come from a
// monotonic counter (v0, v1, ...) and are registered by kind so later
// productions can reference them. One Environment belongs to one attempt.
type Environment struct {
	next   int
	byKind map[ast.ValueKind][]string
	issued []ast.Variable
	labels map[string]*schema.Label
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		byKind: make(map[ast.ValueKind][]string),
		labels: make(map[string]*schema.Label),
	}
}

func (e *Environment) fresh(k ast.ValueKind) ast.Variable {
	v := ast.Variable{Name: fmt.Sprintf("v%d", e.next), Kind: k}
	e.next++
	e.issued = append(e.issued, v)
	return v
}

// BindFresh allocates a new name and registers it under k.
func (e *Environment) BindFresh(k ast.ValueKind) ast.Variable {
	v := e.fresh(k)
	e.byKind[k] = append(e.byKind[k], v.Name)
	return v
}

// BindFreshUnregistered allocates a new name that Existing never returns.
func (e *Environment) BindFreshUnregistered() ast.Variable {
	return e.fresh(ast.KindNull)
}

// Register adds an already issued variable back under its kind, as WITH does
// for the variables it carries over.
func (e *Environment) Register(v ast.Variable) {
	if !slices.Contains(e.byKind[v.Kind], v.Name) {
		e.byKind[v.Kind] = append(e.byKind[v.Kind], v.Name)
	}
	if !slices.ContainsFunc(e.issued, func(iv ast.Variable) bool { return iv.Name == v.Name }) {
		e.issued = append(e.issued, v)
	}
}

// SetLabel remembers the schema label a vertex or edge variable was bound
// with, so property lookups on it can pick declared properties.
func (e *Environment) SetLabel(name string, l *schema.Label) {
	if l != nil {
		e.labels[name] = l
	}
}

// LabelOf returns the label recorded with SetLabel.
func (e *Environment) LabelOf(name string) (*schema.Label, bool) {
	l, ok := e.labels[name]
	return l, ok
}

// Has reports whether at least one variable is registered under k.
func (e *Environment) Has(k ast.ValueKind) bool { return len(e.byKind[k]) > 0 }

// Bound lists the names registered under k in binding order.
func (e *Environment) Bound(k ast.ValueKind) []string {
	return slices.Clone(e.byKind[k])
}

// Names lists every registered variable.
func (e *Environment) Names() []ast.Variable {
	var out []ast.Variable
	for _, k := range ast.AllKinds() {
		for _, n := range e.byKind[k] {
			out = append(out, ast.Variable{Name: n, Kind: k})
		}
	}
	return out
}

// Existing samples a variable registered under k. An empty registry is a
// recoverable failure.
func (e *Environment) Existing(k ast.ValueKind, r *rand.Rand) (ast.Variable, error) {
	names := e.byKind[k]
	if len(names) == 0 {
		return ast.Variable{}, recoverable(ErrNoVariable, k.String())
	}
	return ast.Variable{Name: names[r.Intn(len(names))], Kind: k}, nil
}

// AnyExisting samples from every name issued in the current scope, whether or
// not it was registered. The returned kind is the one it was issued with.
// This is the loose lookup: callers use it only at sites where an untyped
// reference is acceptable.
func (e *Environment) AnyExisting(r *rand.Rand) (ast.Variable, error) {
	if len(e.issued) == 0 {
		return ast.Variable{}, recoverable(ErrNoVariable, "any")
	}
	return e.issued[r.Intn(len(e.issued))], nil
}

// Restrict keeps only vars registered, as a WITH projection does. The name
// counter keeps running so fresh names never collide with dropped ones.
func (e *Environment) Restrict(vars []ast.Variable) {
	labels := e.labels
	e.byKind = make(map[ast.ValueKind][]string)
	e.issued = nil
	e.labels = make(map[string]*schema.Label)
	for _, v := range vars {
		e.Register(v)
		if l, ok := labels[v.Name]; ok {
			e.labels[v.Name] = l
		}
	}
}

// Scope is a saved view of the registrations, see Mark.
type Scope struct {
	byKind map[ast.ValueKind][]string
	issued []ast.Variable
	labels map[string]*schema.Label
}

// Mark saves the current registrations. Release(Mark()) drops everything
// bound after the mark, which is how comprehension and sub-query temporaries
// go out of scope.
func (e *Environment) Mark() Scope {
	s := Scope{
		byKind: make(map[ast.ValueKind][]string, len(e.byKind)),
		issued: slices.Clone(e.issued),
		labels: maps.Clone(e.labels),
	}
	for k, names := range e.byKind {
		s.byKind[k] = slices.Clone(names)
	}
	return s
}

// Release restores the registrations saved by Mark.
func (e *Environment) Release(s Scope) {
	e.byKind = s.byKind
	e.issued = s.issued
	e.labels = s.labels
}
