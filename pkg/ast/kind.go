// Package ast holds the syntax tree produced by the query generator.
//
// The tree mirrors the openCypher grammar one struct per non-terminal. Every
// clause-level node implements Node; every expression implements Expr, which
// additionally reports the ValueKind it evaluates to. Nodes exclusively own
// their children: no sharing, no back references.
//
// A completed tree is turned back into query text with Serialize, and can be
// traversed with Inspect or measured with ShapeOf.
package ast

// ValueKind is the semantic category of a variable or expression.
//
// The generator uses kinds to prune productions that would be illegal, most
// notably property lookups on values that are not graph entities.
type ValueKind uint8

const (
	KindVertex ValueKind = iota
	KindEdge
	KindPath
	KindBoolean
	KindNumerical
	KindString
	KindList
	KindMap
	KindPipe
	KindNull
	KindTime
	KindFunction
	KindQuery
)

var kindNames = [...]string{
	KindVertex:    "Vertex",
	KindEdge:      "Edge",
	KindPath:      "Path",
	KindBoolean:   "Boolean",
	KindNumerical: "Numerical",
	KindString:    "String",
	KindList:      "List",
	KindMap:       "Map",
	KindPipe:      "Pipe",
	KindNull:      "Null",
	KindTime:      "Time",
	KindFunction:  "Function",
	KindQuery:     "Query",
}

// String returns the kind name.
func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// IsEntity reports whether values of this kind carry properties.
func (k ValueKind) IsEntity() bool {
	return k == KindVertex || k == KindEdge
}

// AllKinds lists every ValueKind in declaration order.
func AllKinds() []ValueKind {
	kinds := make([]ValueKind, 0, len(kindNames))
	for k := range kindNames {
		kinds = append(kinds, ValueKind(k))
	}
	return kinds
}

// Variable is a named binding introduced by a pattern, WITH/UNWIND target,
// YIELD item or comprehension temporary.
type Variable struct {
	Name string
	Kind ValueKind
}
