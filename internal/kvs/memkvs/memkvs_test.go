package memkvs

import (
	"context"
	"errors"
	"testing"

	"github.com/object-layer/document-store/internal/kvs"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	key := kvs.Key{"store", "users", "alice"}
	if err := s.Put(ctx, key, []byte("doc1"), kvs.PutOptions{CreateIfMissing: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, found, err := s.Get(ctx, key, kvs.GetOptions{})
	if err != nil || !found || string(v) != "doc1" {
		t.Fatalf("Get = %q, %v, %v", v, found, err)
	}

	if err := s.Put(ctx, key, []byte("x"), kvs.PutOptions{ErrorIfExists: true}); !errors.Is(err, kvs.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	deleted, err := s.Delete(ctx, key, kvs.DeleteOptions{})
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}

	_, found, _ = s.Get(ctx, key, kvs.GetOptions{})
	if found {
		t.Fatal("expected key to be gone")
	}

	if _, _, err := s.Get(ctx, key, kvs.GetOptions{ErrorIfMissing: true}); !errors.Is(err, kvs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutCreateIfMissingFalse(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Put(ctx, kvs.Key{"s", "c", "d"}, []byte("v"), kvs.PutOptions{CreateIfMissing: false})
	if !errors.Is(err, kvs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seed(t *testing.T, s *Store, docs map[string]string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range docs {
		if err := s.Put(ctx, kvs.Key{"s", "c", k}, []byte(v), kvs.PutOptions{CreateIfMissing: true}); err != nil {
			t.Fatalf("seed Put(%s): %v", k, err)
		}
	}
}

func TestFindOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, map[string]string{"a": "1", "b": "2", "c": "3"})

	rows, err := s.Find(ctx, kvs.FindOptions{Prefix: kvs.Key{"s", "c"}, ReturnValues: true})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"a", "b", "c"} {
		if rows[i].Key[len(rows[i].Key)-1] != want {
			t.Errorf("row %d key = %v, want %q", i, rows[i].Key, want)
		}
	}

	rev, err := s.Find(ctx, kvs.FindOptions{Prefix: kvs.Key{"s", "c"}, Reverse: true, Limit: 2})
	if err != nil {
		t.Fatalf("Find reverse: %v", err)
	}
	if len(rev) != 2 || rev[0].Key[len(rev[0].Key)-1] != "c" || rev[1].Key[len(rev[1].Key)-1] != "b" {
		t.Errorf("unexpected reverse+limit result: %+v", rev)
	}
}

func TestFindStartAfterCursor(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, map[string]string{"a": "1", "b": "2", "c": "3"})

	rows, err := s.Find(ctx, kvs.FindOptions{
		Prefix:     kvs.Key{"s", "c"},
		StartAfter: kvs.Key{"s", "c", "a"},
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 2 || rows[0].Key[len(rows[0].Key)-1] != "b" {
		t.Errorf("unexpected result after StartAfter: %+v", rows)
	}
}

func TestCountAndFindAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, map[string]string{"a": "1", "b": "2", "c": "3"})

	n, err := s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	deleted, err := s.FindAndDelete(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}, Start: kvs.Key{"s", "c", "b"}})
	if err != nil || deleted != 2 {
		t.Fatalf("FindAndDelete = %d, %v", deleted, err)
	}

	n, _ = s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if n != 1 {
		t.Fatalf("Count after delete = %d, want 1", n)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, map[string]string{"a": "1"})

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		if putErr := tx.Put(ctx, kvs.Key{"s", "c", "b"}, []byte("2"), kvs.PutOptions{CreateIfMissing: true}); putErr != nil {
			return putErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, _ := s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if n != 1 {
		t.Fatalf("expected rollback, got %d rows", n)
	}
}

func TestTransactionNestedReusesActive(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		return tx.Transaction(ctx, func(ctx context.Context, inner kvs.Store) error {
			return inner.Put(ctx, kvs.Key{"s", "c", "a"}, []byte("1"), kvs.PutOptions{CreateIfMissing: true})
		})
	})
	if err != nil {
		t.Fatalf("nested Transaction: %v", err)
	}

	n, _ := s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if n != 1 {
		t.Fatalf("expected committed nested write, got %d rows", n)
	}
}
