package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func() Recorder {
	return map[string]func() Recorder{
		"badger/memory": func() Recorder {
			r, err := OpenBadger("")
			require.NoError(t, err)
			return r
		},
		"sqlite/memory": func() Recorder {
			r, err := OpenSQLite("")
			require.NoError(t, err)
			return r
		},
		"sqlite/file": func() Recorder {
			r, err := OpenSQLite(filepath.Join(t.TempDir(), "findings.db"))
			require.NoError(t, err)
			return r
		},
	}
}

func TestRecorder_RecordListCount(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := open()
			defer r.Close()
			ctx := context.Background()

			late := &Finding{RunID: "run-1", Seed: 7, Query: "RETURN 1;", Errors: []string{"boom"}, NodeCount: 12, Depth: 9, CreatedAt: base.Add(time.Minute)}
			early := &Finding{RunID: "run-1", Seed: 3, Query: "MATCH (v0:Person) RETURN *;", Errors: []string{"a", "b"}, NodeCount: 13, Depth: 10, CreatedAt: base}
			require.NoError(t, r.Record(ctx, late))
			require.NoError(t, r.Record(ctx, early))
			assert.NotEmpty(t, late.ID)
			assert.NotEqual(t, late.ID, early.ID)

			n, err := r.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			all, err := r.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, *early, all[0])
			assert.Equal(t, *late, all[1])

			first, err := r.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, first, 1)
			assert.Equal(t, early.ID, first[0].ID)
		})
	}
}

func TestRecorder_FillsCreatedAt(t *testing.T) {
	r, err := OpenSQLite("")
	require.NoError(t, err)
	defer r.Close()

	f := &Finding{Query: "RETURN 1;", Errors: []string{"x"}}
	require.NoError(t, r.Record(context.Background(), f))
	assert.WithinDuration(t, time.Now(), f.CreatedAt, time.Minute)
	assert.Equal(t, time.UTC, f.CreatedAt.Location())
}

func TestSQLite_DuplicateID(t *testing.T) {
	r, err := OpenSQLite("")
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Record(ctx, &Finding{ID: "same", Query: "RETURN 1;"}))
	assert.Error(t, r.Record(ctx, &Finding{ID: "same", Query: "RETURN 2;"}))
}

func TestBadger_Reopen(t *testing.T) {
	dir := t.TempDir()
	r, err := OpenBadger(dir)
	require.NoError(t, err)
	require.NoError(t, r.Record(context.Background(), &Finding{Query: "RETURN 1;", Errors: []string{"x"}}))
	require.NoError(t, r.Close())

	r, err = OpenBadger(dir)
	require.NoError(t, err)
	defer r.Close()
	n, err := r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"badger", false},
		{"SQLite", false},
		{"none", false},
		{"", false},
		{"postgres", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			r, err := Open(tt.backend, "")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownBackend)
				return
			}
			require.NoError(t, err)
			defer r.Close()
			f := &Finding{Query: "RETURN 1;"}
			require.NoError(t, r.Record(context.Background(), f))
			assert.NotEmpty(t, f.ID)
		})
	}
}
