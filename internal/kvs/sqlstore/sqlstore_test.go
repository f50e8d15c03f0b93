package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/object-layer/document-store/internal/kvs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "store.db")
	s, err := OpenSQLite(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

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

	if _, err := s.Get(ctx, key, kvs.GetOptions{ErrorIfMissing: true}); !errors.Is(err, kvs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreFindRangeAndCount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, kvs.Key{"s", "c", k}, []byte(k), kvs.PutOptions{CreateIfMissing: true}); err != nil {
			t.Fatalf("seed Put(%s): %v", k, err)
		}
	}

	rows, err := s.Find(ctx, kvs.FindOptions{Prefix: kvs.Key{"s", "c"}, ReturnValues: true})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	n, err := s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}, StartAfter: kvs.Key{"s", "c", "a"}})
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}

	deleted, err := s.FindAndDelete(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if err != nil || deleted != 3 {
		t.Fatalf("FindAndDelete = %d, %v", deleted, err)
	}
}

func TestStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		if err := tx.Put(ctx, kvs.Key{"s", "c", "a"}, []byte("1"), kvs.PutOptions{CreateIfMissing: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, err := s.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{"s", "c"}})
	if err != nil || n != 0 {
		t.Fatalf("expected rollback, got %d rows (err %v)", n, err)
	}
}

func TestDialectsProduceCreateTableSQL(t *testing.T) {
	for _, d := range []Dialect{SQLite(), MySQL(), Dolt()} {
		ddl := d.CreateTableSQL("t")
		if ddl == "" {
			t.Errorf("%s: empty CREATE TABLE statement", d.DriverName())
		}
	}
}
