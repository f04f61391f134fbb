package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

var findingPrefix = []byte("finding:")

func findingKey(id string) []byte {
	return append(append([]byte(nil), findingPrefix...), id...)
}

// BadgerRecorder stores findings as msgpack values under finding:<id>.
type BadgerRecorder struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir runs
// badger in memory.
func OpenBadger(dir string) (*BadgerRecorder, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	// findings are small and written rarely
	opts = opts.
		WithLogger(nil).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20).
		WithNumMemtables(1).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(4 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerRecorder{db: db}, nil
}

func (b *BadgerRecorder) Record(ctx context.Context, f *Finding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(f)
	val, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode finding %s: %w", f.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(findingKey(f.ID), val)
	})
}

func (b *BadgerRecorder) List(ctx context.Context, limit int) ([]Finding, error) {
	var out []Finding
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = findingPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(findingPrefix); it.ValidForPrefix(findingPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var f Finding
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &f)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			f.CreatedAt = f.CreatedAt.UTC()
			out = append(out, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	oldestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *BadgerRecorder) Count(ctx context.Context) (int, error) {
	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = findingPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(findingPrefix); it.ValidForPrefix(findingPrefix); it.Next() {
			n++
		}
		return ctx.Err()
	})
	return n, err
}

func (b *BadgerRecorder) Close() error {
	return b.db.Close()
}
