package schema

import (
	"errors"
	"math/rand"
)

var (
	// ErrNoVertexLabels is a configuration error: no query can be built
	// without at least one vertex label.
	ErrNoVertexLabels = errors.New("schema has no vertex labels")

	// ErrNoEdgeLabels is returned when a production needs an edge label and
	// the schema declares none. Generators treat it as recoverable.
	ErrNoEdgeLabels = errors.New("schema has no edge labels")

	// ErrNoProperties is returned when a production needs a property of a
	// label that declares none. Generators treat it as recoverable.
	ErrNoProperties = errors.New("label has no properties")
)

// Catalog is the read-only view of a GraphSchema the generator draws from.
// All picks are uniform over the requested collection.
type Catalog struct {
	graph       *GraphSchema
	vertexNames map[string]*Label
	edgeNames   map[string]*Label
	vertices    []*Label
	edges       []*Label
}

// NewCatalog wraps g. It fails with ErrNoVertexLabels when g declares no
// vertex label, since every query starts from a node pattern.
func NewCatalog(g *GraphSchema) (*Catalog, error) {
	if g == nil || len(g.VertexLabels) == 0 {
		return nil, ErrNoVertexLabels
	}
	c := &Catalog{
		graph:       g,
		vertexNames: make(map[string]*Label, len(g.VertexLabels)),
		edgeNames:   make(map[string]*Label, len(g.EdgeLabels)),
		vertices:    g.VertexLabels,
		edges:       g.EdgeLabels,
	}
	for _, l := range g.VertexLabels {
		c.vertexNames[l.Name] = l
	}
	for _, l := range g.EdgeLabels {
		c.edgeNames[l.Name] = l
	}
	return c, nil
}

// Graph returns the wrapped schema.
func (c *Catalog) Graph() *GraphSchema { return c.graph }

// RandomVertexLabel picks a vertex label. NewCatalog guarantees there is one.
func (c *Catalog) RandomVertexLabel(r *rand.Rand) (*Label, error) {
	return c.vertices[r.Intn(len(c.vertices))], nil
}

// RandomEdgeLabel picks an edge label, or fails with ErrNoEdgeLabels.
func (c *Catalog) RandomEdgeLabel(r *rand.Rand) (*Label, error) {
	if len(c.edges) == 0 {
		return nil, ErrNoEdgeLabels
	}
	return c.edges[r.Intn(len(c.edges))], nil
}

// RandomProperty picks one of l's declared properties, or fails with
// ErrNoProperties.
func (c *Catalog) RandomProperty(l *Label, r *rand.Rand) (*Property, error) {
	if l == nil || len(l.Properties) == 0 {
		return nil, ErrNoProperties
	}
	return l.Properties[r.Intn(len(l.Properties))], nil
}

// VertexLabel looks up a vertex label by name.
func (c *Catalog) VertexLabel(name string) (*Label, bool) {
	l, ok := c.vertexNames[name]
	return l, ok
}

// EdgeLabel looks up an edge label by name.
func (c *Catalog) EdgeLabel(name string) (*Label, bool) {
	l, ok := c.edgeNames[name]
	return l, ok
}

// HasVertexLabel reports whether name is a vertex label of the schema.
func (c *Catalog) HasVertexLabel(name string) bool {
	_, ok := c.VertexLabel(name)
	return ok
}
