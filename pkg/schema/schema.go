// Package schema describes the graph a fuzzing run targets: vertex and edge
// labels with their typed properties.
//
// A GraphSchema is loaded once from a JSON or YAML file, validated, and then
// wrapped in a Catalog that hands out uniformly random labels and properties
// to the query generator. Nothing mutates a schema after loading, so one
// Catalog may be shared by any number of generator sessions.
package schema

import (
	"fmt"

	"github.com/orneryd/cypherfuzz/pkg/ast"
)

// PropertyType is the declared storage type of a property.
type PropertyType string

const (
	TypeBool     PropertyType = "BOOL"
	TypeInt8     PropertyType = "INT8"
	TypeInt16    PropertyType = "INT16"
	TypeInt32    PropertyType = "INT32"
	TypeInt64    PropertyType = "INT64"
	TypeFloat    PropertyType = "FLOAT"
	TypeDouble   PropertyType = "DOUBLE"
	TypeString   PropertyType = "STRING"
	TypeDate     PropertyType = "DATE"
	TypeDateTime PropertyType = "DATETIME"
	TypeBlob     PropertyType = "BLOB"
)

// Valid reports whether t is one of the known property types.
func (t PropertyType) Valid() bool {
	switch t {
	case TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeFloat, TypeDouble,
		TypeString, TypeDate, TypeDateTime, TypeBlob:
		return true
	}
	return false
}

// Kind maps the storage type to the value kind expressions over it carry.
func (t PropertyType) Kind() ast.ValueKind {
	switch t {
	case TypeBool:
		return ast.KindBoolean
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeFloat, TypeDouble:
		return ast.KindNumerical
	case TypeDate, TypeDateTime:
		return ast.KindTime
	}
	return ast.KindString
}

// DefaultLiteral returns a fresh expression holding a value of type t. It is
// used wherever a pattern or SET needs a value the target will accept.
func (t PropertyType) DefaultLiteral() ast.Expr {
	switch t {
	case TypeBool:
		return &ast.Lit{Type: ast.LitBoolean, Bool: true}
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return &ast.Lit{Type: ast.LitInteger, Int: 0}
	case TypeFloat, TypeDouble:
		return &ast.Lit{Type: ast.LitFloat, Float: 0}
	case TypeDate:
		return &ast.FuncCall{Name: "date", Result: ast.KindTime,
			Args: []ast.Expr{&ast.Lit{Type: ast.LitString, Str: "1970-01-01"}}}
	case TypeDateTime:
		return &ast.FuncCall{Name: "datetime", Result: ast.KindTime,
			Args: []ast.Expr{&ast.Lit{Type: ast.LitString, Str: "1970-01-01T00:00:00"}}}
	case TypeBlob:
		return &ast.Lit{Type: ast.LitString, Str: ""}
	}
	return &ast.Lit{Type: ast.LitString, Str: "a"}
}

// Property is one typed property of a label.
type Property struct {
	Name       string
	ID         int
	Type       PropertyType
	PrimaryKey bool
	Nullable   bool
}

// LabelKind distinguishes vertex labels from edge labels.
type LabelKind uint8

const (
	VertexLabel LabelKind = iota
	EdgeLabel
)

func (k LabelKind) String() string {
	if k == EdgeLabel {
		return "edge"
	}
	return "vertex"
}

// Relation is one allowed (source, destination) vertex-label pair of an edge.
type Relation struct {
	From string
	To   string
}

// Label is a vertex or edge label. Directed and Relations apply to edges only.
type Label struct {
	Name       string
	ID         int
	Kind       LabelKind
	Directed   bool
	Relations  []Relation
	Properties []*Property
}

// Property returns the property with the given name.
func (l *Label) Property(name string) (*Property, bool) {
	for _, p := range l.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Endpoints lists the vertex labels reachable from a vertex labeled from over
// this edge label. Undirected edges are followed both ways.
func (l *Label) Endpoints(from string) []string {
	var out []string
	for _, r := range l.Relations {
		if r.From == from {
			out = append(out, r.To)
		} else if !l.Directed && r.To == from {
			out = append(out, r.From)
		}
	}
	return out
}

// Sources lists the vertex labels that can reach a vertex labeled to over
// this edge label.
func (l *Label) Sources(to string) []string {
	var out []string
	for _, r := range l.Relations {
		if r.To == to {
			out = append(out, r.From)
		} else if !l.Directed && r.From == to {
			out = append(out, r.To)
		}
	}
	return out
}

// GraphSchema is the full description of one graph.
type GraphSchema struct {
	Name         string
	VertexLabels []*Label
	EdgeLabels   []*Label
}

// Validate checks internal consistency: known property types, unique label
// and property names, and relations that name existing vertex labels.
func (g *GraphSchema) Validate() error {
	seen := make(map[string]LabelKind)
	for _, labels := range [][]*Label{g.VertexLabels, g.EdgeLabels} {
		for _, l := range labels {
			if l.Name == "" {
				return fmt.Errorf("%s label without a name", l.Kind)
			}
			if prev, dup := seen[l.Name]; dup {
				return fmt.Errorf("label %q declared twice (%s and %s)", l.Name, prev, l.Kind)
			}
			seen[l.Name] = l.Kind
			props := make(map[string]bool, len(l.Properties))
			for _, p := range l.Properties {
				if !p.Type.Valid() {
					return fmt.Errorf("label %q property %q: unknown type %q", l.Name, p.Name, p.Type)
				}
				if props[p.Name] {
					return fmt.Errorf("label %q: property %q declared twice", l.Name, p.Name)
				}
				props[p.Name] = true
			}
		}
	}
	for _, e := range g.EdgeLabels {
		for _, r := range e.Relations {
			for _, end := range []string{r.From, r.To} {
				if k, ok := seen[end]; !ok || k != VertexLabel {
					return fmt.Errorf("edge %q: relation endpoint %q is not a vertex label", e.Name, end)
				}
			}
		}
	}
	return nil
}
