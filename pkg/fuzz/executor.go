package fuzz

import (
	"context"
	"strings"
)

// Outcome is what a target reported for one query. Errors are the server's
// complaints about the query; they are findings, not failures of the run.
type Outcome struct {
	Errors []string
	Rows   int
}

// OK reports whether the target accepted the query.
func (o Outcome) OK() bool { return len(o.Errors) == 0 }

// Executor runs a query against a target. A returned error means the target
// could not be reached and ends the run.
type Executor interface {
	Execute(ctx context.Context, query string) (Outcome, error)
	Close() error
}

// DryRun accepts every query without sending it anywhere.
type DryRun struct{}

func (DryRun) Execute(ctx context.Context, query string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(query) == "" {
		return Outcome{Errors: []string{"empty query"}}, nil
	}
	return Outcome{}, nil
}

func (DryRun) Close() error { return nil }
