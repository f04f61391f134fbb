// Package stats collects per-query statistics: the shape of every generated
// tree and what the target made of the query.
package stats

// Result classifies what happened to one generated query.
type Result string

const (
	ResultOK               Result = "ok"
	ResultError            Result = "error"
	ResultDuplicate        Result = "duplicate"
	ResultGenerationFailed Result = "generation_failed"
)

// Observation is everything known about one query once it has been handled.
type Observation struct {
	Result    Result
	NodeCount int
	Depth     int
	Attempts  int
	Errors    int
}

// Sink receives statistics. Implementations must be safe for concurrent use.
type Sink interface {
	// RecordTreeShape records the shape of a tree that was generated but
	// not executed.
	RecordTreeShape(nodeCount, depth int)
	RecordOutcome(o Observation)
}

// Multi fans out to every sink in order.
type Multi []Sink

func (m Multi) RecordTreeShape(nodeCount, depth int) {
	for _, s := range m {
		s.RecordTreeShape(nodeCount, depth)
	}
}

func (m Multi) RecordOutcome(o Observation) {
	for _, s := range m {
		s.RecordOutcome(o)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) RecordTreeShape(int, int) {}
func (Discard) RecordOutcome(Observation) {}
