// Package store keeps queries that a target rejected so they can be replayed
// and triaged after a run.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// ErrUnknownBackend is returned by Open for a backend it does not know.
var ErrUnknownBackend = errors.New("unknown findings backend")

// Finding is one query together with the errors the target reported for it.
type Finding struct {
	ID        string    `msgpack:"id"`
	RunID     string    `msgpack:"run_id"`
	Seed      int64     `msgpack:"seed"`
	Query     string    `msgpack:"query"`
	Errors    []string  `msgpack:"errors"`
	NodeCount int       `msgpack:"node_count"`
	Depth     int       `msgpack:"depth"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// Recorder persists findings. Implementations are safe for concurrent use.
type Recorder interface {
	// Record fills in ID and CreatedAt when they are empty and stores f.
	Record(ctx context.Context, f *Finding) error
	// List returns up to limit findings, oldest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Finding, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open returns the recorder for backend. An empty path keeps the findings in
// memory.
func Open(backend, path string) (Recorder, error) {
	switch strings.ToLower(backend) {
	case BackendBadger:
		return OpenBadger(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendNone, "":
		return Discard{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func prepare(f *Finding) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	f.CreatedAt = f.CreatedAt.UTC()
}

// oldestFirst sorts by creation time, then by ID for equal timestamps.
func oldestFirst(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if !fs[i].CreatedAt.Equal(fs[j].CreatedAt) {
			return fs[i].CreatedAt.Before(fs[j].CreatedAt)
		}
		return fs[i].ID < fs[j].ID
	})
}

// Discard drops every finding.
type Discard struct{}

func (Discard) Record(_ context.Context, f *Finding) error {
	prepare(f)
	return nil
}

func (Discard) List(context.Context, int) ([]Finding, error) { return nil, nil }
func (Discard) Count(context.Context) (int, error) { return 0, nil }
func (Discard) Close() error { return nil }
