// Package generator builds random, schema-consistent openCypher queries.
//
// A Session expands the grammar top-down from the Query production, making
// every choice with its own seeded random source. A complexity budget bounds
// how many optional or recursive expansions one attempt may take: nested
// expression scopes and each extra element of a repeatable production spend
// from it, and once it reaches zero only terminal alternatives remain, so
// generation always terminates.
//
// Variables are bound into an Environment before anything that may refer to
// them is generated. When a production needs a variable of a kind that is not
// in scope, the attempt fails with a recoverable Diagnostic and the session
// starts over with a fresh environment, up to Options.RetryLimit attempts.
//
// Typical use:
//
//	cat, _ := schema.NewCatalog(g)
//	s := generator.NewSession(cat, generator.DefaultOptions())
//	res, err := s.Generate()
//	if err != nil { ... }
//	fmt.Println(res.Text)
package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orneryd/cypherfuzz/pkg/ast"
	"github.com/orneryd/cypherfuzz/pkg/schema"
)

// Catalog is the slice of schema.Catalog the generator draws from.
type Catalog interface {
	RandomVertexLabel(r *rand.Rand) (*schema.Label, error)
	RandomEdgeLabel(r *rand.Rand) (*schema.Label, error)
	RandomProperty(l *schema.Label, r *rand.Rand) (*schema.Property, error)
	VertexLabel(name string) (*schema.Label, bool)
}

// Options tune one Session.
type Options struct {
	// ComplexityLimit is the budget every attempt starts with.
	ComplexityLimit int
	// ExpressionComplexity caps the operator-chain extensions added inside
	// one expression scope.
	ExpressionComplexity int
	// ScopeCost is charged per expression scope.
	ScopeCost int
	// RetryLimit is the number of attempts before giving up.
	RetryLimit int
	// Seed seeds the random source when Rand is nil; 0 means time-seeded.
	Seed int64
	// Rand overrides the random source.
	Rand *rand.Rand
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Entry
}

// DefaultOptions returns the options used by the CLI when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		ComplexityLimit:      24,
		ExpressionComplexity: 4,
		ScopeCost:            1,
		RetryLimit:           16,
	}
}

// Result is one generated query.
type Result struct {
	AST  *ast.Query
	Text string
	// Attempts counts attempts including the successful one.
	Attempts int
	Shape    ast.Shape
	// Scopes counts the expression scopes opened by the successful attempt;
	// NestedScopes only those opened from inside another expression.
	Scopes       int
	NestedScopes int
}

// Session generates queries one at a time against a shared, read-only
// catalog. A Session is not safe for concurrent use; give each goroutine its
// own.
type Session struct {
	catalog Catalog
	opts    Options
	rng     *rand.Rand
	log     *logrus.Entry

	// per-attempt state, reset by reset
	budget       int
	env          *Environment
	scopes       int
	nestedScopes int
	params       int
}

// NewSession prepares a session. Zero-valued numeric options fall back to
// DefaultOptions, except ComplexityLimit where zero is meaningful.
func NewSession(c Catalog, opts Options) *Session {
	def := DefaultOptions()
	if opts.ComplexityLimit < 0 {
		opts.ComplexityLimit = 0
	}
	if opts.ExpressionComplexity <= 0 {
		opts.ExpressionComplexity = def.ExpressionComplexity
	}
	if opts.ScopeCost <= 0 {
		opts.ScopeCost = def.ScopeCost
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = def.RetryLimit
	}
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "generator")
	}
	return &Session{catalog: c, opts: opts, rng: rng, log: log}
}

// Generate builds one query with the given budget and retry bound. It is a
// convenience wrapper around a throwaway time-seeded Session.
func Generate(c Catalog, complexityLimit, retryLimit int) (*Result, error) {
	opts := DefaultOptions()
	opts.ComplexityLimit = complexityLimit
	opts.RetryLimit = retryLimit
	return NewSession(c, opts).Generate()
}

// Generate runs attempts until one succeeds or RetryLimit is reached. The
// returned error is always a *Diagnostic.
func (s *Session) Generate() (*Result, error) {
	var last error
	for attempt := 1; attempt <= s.opts.RetryLimit; attempt++ {
		q, err := s.attempt()
		if err == nil {
			text, serr := ast.Serialize(q)
			if serr != nil {
				d := bug(serr, "serializing generated tree")
				d.Attempts = attempt
				s.log.WithError(d).Error("generated tree does not serialize")
				return nil, d
			}
			return &Result{
				AST:          q,
				Text:         text,
				Attempts:     attempt,
				Shape:        ast.ShapeOf(q),
				Scopes:       s.scopes,
				NestedScopes: s.nestedScopes,
			}, nil
		}
		if !IsRecoverable(err) {
			var d *Diagnostic
			if !errors.As(err, &d) {
				d = fatal(err, "")
			}
			d.Attempts = attempt
			s.log.WithError(d).Error("query generation failed")
			return nil, d
		}
		last = err
		s.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"reason":  err.Error(),
		}).Debug("retrying query generation")
	}
	d := fatal(ErrRetryLimit, fmt.Sprintf("%d attempts, last: %v", s.opts.RetryLimit, last))
	d.Attempts = s.opts.RetryLimit
	s.log.WithError(d).Warn("giving up on query")
	return nil, d
}

// attempt builds one tree from scratch. Panics are confined to the attempt.
func (s *Session) attempt() (q *ast.Query, err error) {
	s.reset()
	defer func() {
		if r := recover(); r != nil {
			q = nil
			err = bug(fmt.Errorf("panic during generation: %v", r), string(debug.Stack()))
		}
	}()
	return s.query()
}

func (s *Session) reset() {
	s.budget = s.opts.ComplexityLimit
	s.env = NewEnvironment()
	s.scopes = 0
	s.nestedScopes = 0
	s.params = 0
}

// Env exposes the environment of the last attempt.
func (s *Session) Env() *Environment { return s.env }

// spend takes n from the budget if that much is left.
func (s *Session) spend(n int) bool {
	if s.budget < n {
		return false
	}
	s.budget -= n
	return true
}

func (s *Session) exhausted() bool { return s.budget <= 0 }

// repeats rolls a small die and spends one unit per extra element actually
// granted. Zero is the most likely outcome.
func (s *Session) repeats() int {
	n := repeatDie[s.rng.Intn(len(repeatDie))]
	for i := 0; i < n; i++ {
		if !s.spend(1) {
			return i
		}
	}
	return n
}

var repeatDie = [...]int{0, 0, 0, 1, 1, 2}

// chance is true with probability num/den.
func (s *Session) chance(num, den int) bool { return s.rng.Intn(den) < num }

// weighted returns an index into weights drawn proportionally; zero weights
// are never picked. It returns -1 when every weight is zero.
func (s *Session) weighted(weights ...int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return -1
	}
	n := s.rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return -1
}

// catalogErr classifies catalog failures: a schema without vertex labels is
// fatal, anything else only dooms the current attempt.
func catalogErr(err error, detail string) error {
	if errors.Is(err, schema.ErrNoVertexLabels) {
		return fatal(err, detail)
	}
	return recoverable(err, detail)
}

func (s *Session) vertexLabel() (*schema.Label, error) {
	l, err := s.catalog.RandomVertexLabel(s.rng)
	if err != nil {
		return nil, catalogErr(err, "vertex label")
	}
	return l, nil
}

func (s *Session) edgeLabel() (*schema.Label, error) {
	l, err := s.catalog.RandomEdgeLabel(s.rng)
	if err != nil {
		return nil, catalogErr(err, "edge label")
	}
	return l, nil
}

func (s *Session) property(l *schema.Label) (*schema.Property, error) {
	p, err := s.catalog.RandomProperty(l, s.rng)
	if err != nil {
		return nil, catalogErr(err, "property of "+l.Name)
	}
	return p, nil
}
