package generator

import (
	"github.com/orneryd/cypherfuzz/pkg/ast"
)

// function describes a callable scalar or aggregate function.
type function struct {
	name      string
	args      []ast.ValueKind
	result    ast.ValueKind
	aggregate bool
}

// functions is the built-in function table. Kinds are the ones the target
// documents; anyKind arguments accept whatever the generator produces.
var functions = []function{
	{name: "count", args: []ast.ValueKind{anyKind}, result: ast.KindNumerical, aggregate: true},
	{name: "sum", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical, aggregate: true},
	{name: "avg", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical, aggregate: true},
	{name: "min", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical, aggregate: true},
	{name: "max", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical, aggregate: true},
	{name: "collect", args: []ast.ValueKind{anyKind}, result: ast.KindList, aggregate: true},

	{name: "id", args: []ast.ValueKind{ast.KindVertex}, result: ast.KindNumerical},
	{name: "labels", args: []ast.ValueKind{ast.KindVertex}, result: ast.KindList},
	{name: "keys", args: []ast.ValueKind{ast.KindVertex}, result: ast.KindList},
	{name: "properties", args: []ast.ValueKind{ast.KindVertex}, result: ast.KindMap},
	{name: "type", args: []ast.ValueKind{ast.KindEdge}, result: ast.KindString},
	{name: "startNode", args: []ast.ValueKind{ast.KindEdge}, result: ast.KindVertex},
	{name: "endNode", args: []ast.ValueKind{ast.KindEdge}, result: ast.KindVertex},
	{name: "nodes", args: []ast.ValueKind{ast.KindPath}, result: ast.KindList},
	{name: "relationships", args: []ast.ValueKind{ast.KindPath}, result: ast.KindList},
	{name: "length", args: []ast.ValueKind{ast.KindPath}, result: ast.KindNumerical},

	{name: "size", args: []ast.ValueKind{ast.KindList}, result: ast.KindNumerical},
	{name: "head", args: []ast.ValueKind{ast.KindList}, result: anyKind},
	{name: "last", args: []ast.ValueKind{ast.KindList}, result: anyKind},
	{name: "tail", args: []ast.ValueKind{ast.KindList}, result: ast.KindList},
	{name: "reverse", args: []ast.ValueKind{ast.KindList}, result: ast.KindList},
	{name: "range", args: []ast.ValueKind{ast.KindNumerical, ast.KindNumerical}, result: ast.KindList},

	{name: "toUpper", args: []ast.ValueKind{ast.KindString}, result: ast.KindString},
	{name: "toLower", args: []ast.ValueKind{ast.KindString}, result: ast.KindString},
	{name: "trim", args: []ast.ValueKind{ast.KindString}, result: ast.KindString},
	{name: "substring", args: []ast.ValueKind{ast.KindString, ast.KindNumerical}, result: ast.KindString},
	{name: "replace", args: []ast.ValueKind{ast.KindString, ast.KindString, ast.KindString}, result: ast.KindString},
	{name: "split", args: []ast.ValueKind{ast.KindString, ast.KindString}, result: ast.KindList},
	{name: "toString", args: []ast.ValueKind{anyKind}, result: ast.KindString},
	{name: "toInteger", args: []ast.ValueKind{ast.KindString}, result: ast.KindNumerical},
	{name: "toFloat", args: []ast.ValueKind{ast.KindString}, result: ast.KindNumerical},

	{name: "abs", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "ceil", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "floor", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "round", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "sign", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "sqrt", args: []ast.ValueKind{ast.KindNumerical}, result: ast.KindNumerical},
	{name: "rand", result: ast.KindNumerical},
	{name: "pi", result: ast.KindNumerical},
	{name: "timestamp", result: ast.KindNumerical},

	{name: "coalesce", args: []ast.ValueKind{anyKind, anyKind}, result: anyKind},
	{name: "date", args: []ast.ValueKind{ast.KindString}, result: ast.KindTime},
	{name: "datetime", result: ast.KindTime},
}

// yieldField is one output column of a procedure.
type yieldField struct {
	name string
	kind ast.ValueKind
}

// procedure is an allow-listed procedure. args builds the argument list; nil
// means the procedure takes none.
type procedure struct {
	name   string
	yields []yieldField
	args   func(s *Session) ([]ast.Expr, error)
}

var procedures = []procedure{
	{name: "db.labels", yields: []yieldField{{"label", ast.KindString}}},
	{name: "db.relationshipTypes", yields: []yieldField{{"relationshipType", ast.KindString}}},
	{name: "db.propertyKeys", yields: []yieldField{{"propertyKey", ast.KindString}}},
	{name: "dbms.procedures", yields: []yieldField{{"name", ast.KindString}, {"signature", ast.KindString}}},
	{name: "db.vertexLabels", yields: []yieldField{{"label", ast.KindString}}},
	{name: "db.edgeLabels", yields: []yieldField{{"label", ast.KindString}}},
	{name: "db.indexes", yields: []yieldField{
		{"label", ast.KindString}, {"field", ast.KindString}, {"unique", ast.KindBoolean},
	}},
	{
		name:   "db.getLabelSchema",
		yields: []yieldField{{"name", ast.KindString}, {"type", ast.KindString}, {"optional", ast.KindBoolean}},
		args:   labelSchemaArgs,
	},
}

func labelSchemaArgs(s *Session) ([]ast.Expr, error) {
	l, err := s.vertexLabel()
	if err != nil {
		return nil, err
	}
	return []ast.Expr{
		&ast.Lit{Type: ast.LitString, Str: "vertex"},
		&ast.Lit{Type: ast.LitString, Str: l.Name},
	}, nil
}
