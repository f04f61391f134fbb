package generator

import (
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

const testSchema = `{
  "name": "social",
  "vertex_labels": [
    {"name": "Person", "properties": [
      {"name": "id", "type": "INT64", "primary_key": true},
      {"name": "name", "type": "STRING", "nullable": true},
      {"name": "active", "type": "BOOL", "nullable": true}]},
    {"name": "City", "properties": [
      {"name": "cid", "type": "INT32", "primary_key": true},
      {"name": "founded", "type": "DATE", "nullable": true}]}
  ],
  "edge_labels": [
    {"name": "KNOWS", "relations": [["Person", "Person"]],
     "properties": [{"name": "weight", "type": "DOUBLE", "nullable": true}]},
    {"name": "LIVES_IN", "directed": true, "relations": [["Person", "City"]],
     "properties": [{"name": "since", "type": "DATETIME"}]}
  ]
}`

const personOnlySchema = `{
  "vertex_labels": [
    {"name": "Person", "properties": [{"name": "id", "type": "INT64", "primary_key": true}]}
  ]
}`

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func mustCatalog(t *testing.T, doc string) *schema.Catalog {
	t.Helper()
	g, err := schema.Parse([]byte(doc), schema.FormatJSON)
	require.NoError(t, err)
	c, err := schema.NewCatalog(g)
	require.NoError(t, err)
	return c
}

func newTestSession(c Catalog, limit int, seed int64) *Session {
	opts := DefaultOptions()
	opts.ComplexityLimit = limit
	opts.Rand = rand.New(rand.NewSource(seed))
	opts.Logger = quietLogger()
	return NewSession(c, opts)
}

// generateMany runs seeds x limits and hands every result to check.
func generateMany(t *testing.T, c Catalog, check func(t *testing.T, res *Result)) {
	t.Helper()
	for _, limit := range []int{0, 1, 3, 8, 16, 24, 40} {
		for seed := int64(1); seed <= 40; seed++ {
			res, err := newTestSession(c, limit, seed).Generate()
			require.NoError(t, err, "limit=%d seed=%d", limit, seed)
			check(t, res)
		}
	}
}

func TestGenerate_Terminates(t *testing.T) {
	c := mustCatalog(t, testSchema)
	for _, limit := range []int{0, 1, 2, 5, 10, 24, 50, 100} {
		for seed := int64(1); seed <= 25; seed++ {
			res, err := newTestSession(c, limit, seed).Generate()
			require.NoError(t, err, "limit=%d seed=%d", limit, seed)
			assert.LessOrEqual(t, res.NestedScopes, limit,
				"every nested expression scope spends budget")
			assert.NotEmpty(t, res.Text)
		}
	}
}

func TestGenerate_ZeroBudgetPersonScenario(t *testing.T) {
	c := mustCatalog(t, personOnlySchema)
	for seed := int64(1); seed <= 50; seed++ {
		res, err := newTestSession(c, 0, seed).Generate()
		require.NoError(t, err)

		q := res.AST
		require.NotNil(t, q.Regular)
		require.Nil(t, q.Call)
		assert.Empty(t, q.Regular.Unions)
		sp := q.Regular.Single.SinglePart
		require.NotNil(t, sp)
		require.Len(t, sp.Reading, 1)
		assert.Empty(t, sp.Updating)

		m := sp.Reading[0].Match
		require.NotNil(t, m)
		assert.False(t, m.Optional)
		assert.Nil(t, m.Where)
		require.Len(t, m.Pattern.Parts, 1)
		el := m.Pattern.Parts[0].Element
		assert.Empty(t, el.Chain)
		assert.Equal(t, "Person", el.Node.Label)
		require.NotNil(t, el.Node.Var)

		body := sp.Return.Body
		assert.Nil(t, body.Order)
		assert.Nil(t, body.Skip)
		assert.Nil(t, body.Limit)
		if body.Items.Star {
			assert.Empty(t, body.Items.Items)
		} else {
			require.Len(t, body.Items.Items, 1)
			_, bare := body.Items.Items[0].Expr.(*ast.VarRef)
			assert.True(t, bare, "projection must be a bare variable")
			assert.Nil(t, body.Items.Items[0].Alias)
		}
		assert.Contains(t, []string{
			"MATCH (v0:Person) RETURN *;",
			"MATCH (v0:Person) RETURN v0;",
		}, res.Text)
	}
}

func TestGenerate_SingleLabelVertices(t *testing.T) {
	c := mustCatalog(t, testSchema)
	generateMany(t, c, func(t *testing.T, res *Result) {
		ast.Inspect(res.AST, func(n ast.Node) bool {
			if np, ok := n.(*ast.NodePattern); ok {
				assert.True(t, c.HasVertexLabel(np.Label), "label %q in %s", np.Label, res.Text)
			}
			return true
		})
	})
}

func TestGenerate_PropertyAccessOnEntitiesOnly(t *testing.T) {
	c := mustCatalog(t, testSchema)
	generateMany(t, c, func(t *testing.T, res *Result) {
		ast.Inspect(res.AST, func(n ast.Node) bool {
			switch e := n.(type) {
			case *ast.Property:
				assert.True(t, e.Base.Kind().IsEntity(), "property on %s in %s", e.Base.Kind(), res.Text)
			case *ast.LabelCheck:
				assert.Equal(t, ast.KindVertex, e.Base.Kind(), "label check in %s", res.Text)
			}
			return true
		})
	})
}

// binders collects every name a tree binds.
func binders(root ast.Node) map[string]bool {
	names := make(map[string]bool)
	add := func(v *ast.Variable) {
		if v != nil {
			names[v.Name] = true
		}
	}
	ast.Inspect(root, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.NodePattern:
			add(x.Var)
		case *ast.RelationshipPattern:
			add(x.Var)
		case *ast.PatternPart:
			add(x.Var)
		case *ast.Unwind:
			add(&x.Var)
		case *ast.ProjectionItems:
			for _, it := range x.Items {
				add(it.Alias)
			}
		case *ast.YieldItems:
			for i := range x.Items {
				add(&x.Items[i].Var)
			}
		case *ast.Filter:
			add(&x.Bound)
		case *ast.PatternComprehension:
			add(x.Var)
		}
		return true
	})
	return names
}

func TestGenerate_ReferencesAreBound(t *testing.T) {
	c := mustCatalog(t, testSchema)
	generateMany(t, c, func(t *testing.T, res *Result) {
		bound := binders(res.AST)
		ast.Inspect(res.AST, func(n ast.Node) bool {
			if ref, ok := n.(*ast.VarRef); ok {
				assert.True(t, bound[ref.Var.Name], "%s unbound in %s", ref.Var.Name, res.Text)
			}
			return true
		})
	})
}

func TestGenerate_WritePatterns(t *testing.T) {
	c := mustCatalog(t, testSchema)
	checkRels := func(t *testing.T, n ast.Node, text string) {
		ast.Inspect(n, func(n ast.Node) bool {
			if rp, ok := n.(*ast.RelationshipPattern); ok {
				assert.Len(t, rp.Types, 1, text)
				assert.NotEqual(t, ast.DirBoth, rp.Direction, text)
				assert.Nil(t, rp.Range, text)
			}
			return true
		})
	}
	generateMany(t, c, func(t *testing.T, res *Result) {
		ast.Inspect(res.AST, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.Create:
				checkRels(t, x.Pattern, res.Text)
			case *ast.Merge:
				checkRels(t, x.Part, res.Text)
			}
			return true
		})
	})
}

var leadingKeywords = []string{
	"MATCH ", "OPTIONAL MATCH ", "UNWIND ", "CALL ", "CREATE ", "MERGE ",
	"SET ", "DELETE ", "DETACH DELETE ", "REMOVE ",
}

func TestGenerate_SerializedForm(t *testing.T) {
	c := mustCatalog(t, testSchema)
	generateMany(t, c, func(t *testing.T, res *Result) {
		require.True(t, strings.HasSuffix(res.Text, ";"), res.Text)
		ok := false
		for _, kw := range leadingKeywords {
			if strings.HasPrefix(res.Text, kw) {
				ok = true
				break
			}
		}
		assert.True(t, ok, "unexpected leading keyword: %s", res.Text)

		again, err := ast.Serialize(res.AST)
		require.NoError(t, err)
		assert.Equal(t, res.Text, again)
		assert.Equal(t, ast.ShapeOf(res.AST), res.Shape)
	})
}

func TestGenerate_Deterministic(t *testing.T) {
	c := mustCatalog(t, testSchema)
	for seed := int64(1); seed <= 10; seed++ {
		a, err := newTestSession(c, 24, seed).Generate()
		require.NoError(t, err)
		b, err := newTestSession(c, 24, seed).Generate()
		require.NoError(t, err)
		assert.Equal(t, a.Text, b.Text)
	}
}

// stubCatalog fails every vertex label pick with err, or panics.
type stubCatalog struct {
	err   error
	panic bool
	calls int
}

func (c *stubCatalog) RandomVertexLabel(*rand.Rand) (*schema.Label, error) {
	c.calls++
	if c.panic {
		panic("catalog exploded")
	}
	return nil, c.err
}

func (c *stubCatalog) RandomEdgeLabel(*rand.Rand) (*schema.Label, error) {
	return nil, schema.ErrNoEdgeLabels
}

func (c *stubCatalog) RandomProperty(*schema.Label, *rand.Rand) (*schema.Property, error) {
	return nil, schema.ErrNoProperties
}

func (c *stubCatalog) VertexLabel(string) (*schema.Label, bool) { return nil, false }

func TestGenerate_RetryBound(t *testing.T) {
	for _, n := range []int{1, 3, 7, 16} {
		stub := &stubCatalog{err: errors.New("label unavailable")}
		s := newTestSession(stub, 0, 1)
		s.opts.RetryLimit = n

		res, err := s.Generate()
		require.Nil(t, res)
		require.Error(t, err)

		var d *Diagnostic
		require.ErrorAs(t, err, &d)
		assert.Equal(t, LevelError, d.Level)
		assert.ErrorIs(t, err, ErrRetryLimit)
		assert.Equal(t, n, d.Attempts)
		assert.Equal(t, n, stub.calls, "one failed lookup per attempt")
	}
}

func TestGenerate_NoVertexLabelsIsFatal(t *testing.T) {
	stub := &stubCatalog{err: schema.ErrNoVertexLabels}
	_, err := newTestSession(stub, 0, 1).Generate()

	var d *Diagnostic
	require.ErrorAs(t, err, &d)
	assert.Equal(t, LevelError, d.Level)
	assert.Equal(t, 1, d.Attempts)
	assert.ErrorIs(t, err, schema.ErrNoVertexLabels)
}

func TestGenerate_PanicIsBug(t *testing.T) {
	stub := &stubCatalog{panic: true}
	_, err := newTestSession(stub, 0, 1).Generate()
	require.Error(t, err)
	assert.True(t, IsBug(err))
	assert.False(t, IsRecoverable(err))
}

func TestWriteRelationshipWithoutEdgeLabels(t *testing.T) {
	c := mustCatalog(t, personOnlySchema)
	s := newTestSession(c, 10, 1)
	s.reset()

	_, _, err := s.relationshipPattern(modeWrite)
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
	assert.ErrorIs(t, err, schema.ErrNoEdgeLabels)

	// reading patterns simply stay untyped
	rp, edge, err := s.relationshipPattern(modeMatch)
	require.NoError(t, err)
	assert.Nil(t, edge)
	assert.Empty(t, rp.Types)
}

func TestGenerateConvenience(t *testing.T) {
	c := mustCatalog(t, personOnlySchema)
	res, err := Generate(c, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.True(t, strings.HasPrefix(res.Text, "MATCH (v0:Person) RETURN "))
}
