// Package memkvs is a pure in-memory implementation of kvs.Store, kept
// sorted by encoded key bytes. It exists so every package above internal/kvs
// can be unit-tested without a real database file, the way the rest of the
// module's tests run against a single fast in-process backend.
package memkvs

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/object-layer/document-store/internal/kvs"
)

type row struct {
	key   []byte    // encoded
	raw   kvs.Key   // decoded, returned to callers
	value []byte
}

// Store is a single ordered keyspace shared by every Store value derived
// from it via Transaction. All access is serialized by mu: the spec's
// cooperative, single-writer concurrency model (§5) doesn't need anything
// fancier for a reference/test backend.
type Store struct {
	mu    *sync.Mutex
	rows  *[]row
	depth *int
	// snapshot holds the pre-transaction row set at depth 0 so a failed
	// transaction can roll back.
	snapshot *[]row
}

var _ kvs.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	rows := make([]row, 0)
	depth := 0
	return &Store{mu: &sync.Mutex{}, rows: &rows, depth: &depth, snapshot: &[]row{}}
}

func (s *Store) find(encKey []byte) (int, bool) {
	rows := *s.rows
	i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(rows[i].key, encKey) >= 0 })
	if i < len(rows) && bytes.Equal(rows[i].key, encKey) {
		return i, true
	}
	return i, false
}

func (s *Store) Get(_ context.Context, key kvs.Key, opts kvs.GetOptions) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(kvs.EncodeKey(key))
	if !ok {
		if opts.ErrorIfMissing {
			return nil, false, kvs.ErrNotFound
		}
		return nil, false, nil
	}
	v := make([]byte, len((*s.rows)[i].value))
	copy(v, (*s.rows)[i].value)
	return v, true, nil
}

func (s *Store) Put(_ context.Context, key kvs.Key, value []byte, opts kvs.PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := kvs.EncodeKey(key)
	i, ok := s.find(enc)
	if ok {
		if opts.ErrorIfExists {
			return kvs.ErrExists
		}
		(*s.rows)[i].value = append([]byte(nil), value...)
		return nil
	}
	if !opts.CreateIfMissing {
		return kvs.ErrNotFound
	}
	nr := row{key: enc, raw: key.Clone(), value: append([]byte(nil), value...)}
	rows := *s.rows
	rows = append(rows, row{})
	copy(rows[i+1:], rows[i:])
	rows[i] = nr
	*s.rows = rows
	return nil
}

func (s *Store) Delete(_ context.Context, key kvs.Key, opts kvs.DeleteOptions) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(kvs.EncodeKey(key))
	if !ok {
		if opts.ErrorIfMissing {
			return false, kvs.ErrNotFound
		}
		return false, nil
	}
	rows := *s.rows
	*s.rows = append(rows[:i], rows[i+1:]...)
	return true, nil
}

func (s *Store) GetMany(ctx context.Context, keys []kvs.Key, opts kvs.GetOptions) ([]kvs.KeyValue, error) {
	out := make([]kvs.KeyValue, 0, len(keys))
	for _, k := range keys {
		v, found, err := s.Get(ctx, k, opts)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, kvs.KeyValue{Key: k, Value: v})
		}
	}
	return out, nil
}

func (s *Store) Find(_ context.Context, opts kvs.FindOptions) ([]kvs.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)

	var matched []row
	for _, rr := range *s.rows {
		if r.Contains(rr.key) {
			matched = append(matched, rr)
		}
	}
	if opts.Reverse {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	out := make([]kvs.KeyValue, len(matched))
	for i, rr := range matched {
		kv := kvs.KeyValue{Key: rr.raw}
		if opts.ReturnValues {
			kv.Value = append([]byte(nil), rr.value...)
		}
		out[i] = kv
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, opts kvs.RangeOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)
	var n int64
	for _, rr := range *s.rows {
		if r.Contains(rr.key) {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindAndDelete(_ context.Context, opts kvs.RangeOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)
	kept := (*s.rows)[:0:0]
	var n int64
	for _, rr := range *s.rows {
		if r.Contains(rr.key) {
			n++
			continue
		}
		kept = append(kept, rr)
	}
	*s.rows = kept
	return n, nil
}

// Transaction runs fn with a view of s. A failed fn rolls every write back;
// a nested Transaction call (depth > 0) reuses the active view instead of
// taking a new snapshot, matching the "nested calls reuse the active
// transaction" rule in spec §4.5/§6.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx kvs.Store) error) error {
	s.mu.Lock()
	if *s.depth > 0 {
		*s.depth++
		s.mu.Unlock()
		err := fn(ctx, s)
		s.mu.Lock()
		*s.depth--
		s.mu.Unlock()
		return err
	}
	snapshot := make([]row, len(*s.rows))
	copy(snapshot, *s.rows)
	*s.snapshot = snapshot
	*s.depth = 1
	s.mu.Unlock()

	err := fn(ctx, s)

	s.mu.Lock()
	*s.depth = 0
	if err != nil {
		*s.rows = *s.snapshot
	}
	s.mu.Unlock()
	return err
}

func (s *Store) Close() error { return nil }
