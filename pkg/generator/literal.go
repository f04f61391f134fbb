package generator

import (
	"fmt"
	"strings"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

// anyKind asks for an expression of whatever kind the generator picks. It is
// never stored on a tree node.
const anyKind = ast.ValueKind(255)

// scalarKinds are the kinds a literal can take directly.
var scalarKinds = []ast.ValueKind{ast.KindNumerical, ast.KindString, ast.KindBoolean}

func accepts(want ast.ValueKind, kinds ...ast.ValueKind) bool {
	if want == anyKind {
		return true
	}
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// storedKind maps anyKind to Null for nodes that must report a real kind.
func storedKind(k ast.ValueKind) ast.ValueKind {
	if k == anyKind {
		return ast.KindNull
	}
	return k
}

const stringAlphabet = "abcdefghijklmnopqrstuvwxyz_ '\\"

func (s *Session) randomString() string {
	n := s.rng.Intn(7)
	var b strings.Builder
	for i := 0; i < n; i++ {
		// quote and backslash are rare on purpose, they exercise escaping
		if s.chance(1, 20) {
			b.WriteByte(stringAlphabet[len(stringAlphabet)-1-s.rng.Intn(3)])
			continue
		}
		b.WriteByte(stringAlphabet[s.rng.Intn(26)])
	}
	return b.String()
}

func (s *Session) intLit(max int) *ast.Lit {
	return &ast.Lit{Type: ast.LitInteger, Int: int64(s.rng.Intn(max + 1))}
}

// scalarLit returns a literal of kind k, or null for kinds without a literal
// form.
func (s *Session) scalarLit(k ast.ValueKind) *ast.Lit {
	switch k {
	case ast.KindNumerical:
		if s.chance(1, 4) {
			return &ast.Lit{Type: ast.LitFloat, Float: float64(s.rng.Intn(10000)) / 100}
		}
		return s.intLit(100)
	case ast.KindString:
		return &ast.Lit{Type: ast.LitString, Str: s.randomString()}
	case ast.KindBoolean:
		return &ast.Lit{Type: ast.LitBoolean, Bool: s.chance(1, 2)}
	}
	return &ast.Lit{Type: ast.LitNull}
}

// literal builds a literal for want. Lists and maps grow by repeats.
func (s *Session) literal(want ast.ValueKind) *ast.Lit {
	if want == anyKind {
		switch s.weighted(6, 1, 1, 1) {
		case 0:
			want = scalarKinds[s.rng.Intn(len(scalarKinds))]
		case 1:
			want = ast.KindList
		case 2:
			want = ast.KindMap
		default:
			return &ast.Lit{Type: ast.LitNull}
		}
	}
	switch want {
	case ast.KindList:
		elem := scalarKinds[s.rng.Intn(len(scalarKinds))]
		n := s.repeats()
		lit := &ast.Lit{Type: ast.LitList}
		for i := 0; i < n; i++ {
			lit.Items = append(lit.Items, s.scalarLit(elem))
		}
		return lit
	case ast.KindMap:
		n := s.repeats()
		lit := &ast.Lit{Type: ast.LitMap}
		for i := 0; i < n; i++ {
			k := scalarKinds[s.rng.Intn(len(scalarKinds))]
			lit.Entries = append(lit.Entries, ast.MapEntry{Key: fmt.Sprintf("k%d", i), Value: s.scalarLit(k)})
		}
		return lit
	}
	return s.scalarLit(want)
}

// valueFor returns a random value of the property's declared type. Write
// patterns use it so primary keys differ between created entities.
func (s *Session) valueFor(p *schema.Property) ast.Expr {
	switch p.Type {
	case schema.TypeBool:
		return &ast.Lit{Type: ast.LitBoolean, Bool: s.chance(1, 2)}
	case schema.TypeInt8:
		return s.intLit(127)
	case schema.TypeInt16, schema.TypeInt32, schema.TypeInt64:
		return s.intLit(1_000_000)
	case schema.TypeFloat, schema.TypeDouble:
		return &ast.Lit{Type: ast.LitFloat, Float: float64(s.rng.Intn(1_000_000)) / 100}
	case schema.TypeString:
		return &ast.Lit{Type: ast.LitString, Str: fmt.Sprintf("s%d", s.rng.Intn(1_000_000))}
	case schema.TypeDate:
		return &ast.FuncCall{Name: "date", Result: ast.KindTime, Args: []ast.Expr{
			&ast.Lit{Type: ast.LitString, Str: s.randomDate()},
		}}
	case schema.TypeDateTime:
		return &ast.FuncCall{Name: "datetime", Result: ast.KindTime, Args: []ast.Expr{
			&ast.Lit{Type: ast.LitString, Str: s.randomDate() + "T00:00:00"},
		}}
	}
	return p.Type.DefaultLiteral()
}

func (s *Session) randomDate() string {
	return fmt.Sprintf("%04d-%02d-%02d", 1970+s.rng.Intn(60), 1+s.rng.Intn(12), 1+s.rng.Intn(28))
}
