// Package docstore is a document store layered over a transactional,
// ordered key-value store (spec §1): it owns key-space encoding, index
// maintenance, query planning and schema migration, the way beads'
// ConvexStorageAdapter is a facade over a Persistence implementation, except
// generalized to an arbitrary declared collection/index shape instead of
// one fixed domain schema.
package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/model"
	"github.com/object-layer/document-store/internal/planner"
	"github.com/object-layer/document-store/internal/schema"
)

// Re-exported planner types: a FindOptions/FindResult/GetOptions/
// DeleteOptions/CountOptions/Properties built for the planner package is
// exactly what callers of the facade need too.
type (
	FindOptions   = planner.FindOptions
	FindResult    = planner.FindResult
	GetOptions    = planner.GetOptions
	DeleteOptions = planner.DeleteOptions
	CountOptions  = planner.CountOptions
	Properties    = planner.Properties
)

// PutOptions controls Put. The zero value is a plain upsert.
type PutOptions struct {
	// ErrorIfExists makes Put fail instead of overwriting an existing document.
	ErrorIfExists bool
	// ErrorIfMissing makes Put fail instead of creating a new document.
	ErrorIfMissing bool
}

// DocResult is one row from GetMany.
type DocResult struct {
	Key   any
	Value Document
}

// initState is shared by a root Store and every transaction-scoped Store
// derived from it, implementing the "hasBeenInitialized plus isInitializing
// re-entry guard, at most one initialization in flight per store instance"
// rule from spec §5.
type initState struct {
	mu          sync.Mutex
	initialized bool
	initializing bool
	done        chan struct{}
	err         error
}

// Store is a document store bound to one named key space within a
// kvs.Store. Construct one with Open; derive a transaction-scoped Store
// with Transaction.
type Store struct {
	name          string
	kv            kvs.Store
	codec         keycodec.Codec
	collections   map[string]Collection
	executor      *planner.Executor
	engine        *schema.Engine
	logger        Logger
	state         *initState
	isTransaction bool
}

// Open returns a Store named name, backed by kv, with its collections
// declared via WithCollections. Opening does not itself touch kv; schema
// reconciliation happens lazily, on first operation (spec §4.5's
// "initializeDocumentStore runs implicitly before the first read or write").
func Open(name string, kv kvs.Store, opts ...Option) *Store {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	codec := keycodec.New(name)
	collections := make(map[string]Collection, len(cfg.collections))
	for _, c := range cfg.collections {
		collections[c.Name] = c
	}
	return &Store{
		name:        name,
		kv:          kv,
		codec:       codec,
		collections: collections,
		executor:    planner.New(codec, cfg.logger),
		engine:      schema.New(codec, name, cfg.collections, cfg.logger),
		logger:      cfg.logger,
		state:       &initState{},
	}
}

// EnsureInitialized runs schema reconciliation if it hasn't already run for
// this Store (and isn't already running on another goroutine, in which case
// this call waits for it). It is called implicitly by every operation;
// callers normally never need it directly.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	st := s.state
	st.mu.Lock()
	if st.initialized {
		st.mu.Unlock()
		return nil
	}
	if st.initializing {
		ch := st.done
		st.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		st.mu.Lock()
		err := st.err
		st.mu.Unlock()
		return err
	}
	if s.isTransaction {
		st.mu.Unlock()
		return newError(KindTransactionMisuse, "EnsureInitialized", fmt.Errorf("store must be initialized outside of any transaction"))
	}
	st.initializing = true
	st.done = make(chan struct{})
	st.mu.Unlock()

	err := classifyErr("Initialize", s.engine.Initialize(ctx, s.kv, false))

	st.mu.Lock()
	st.initializing = false
	if err == nil {
		st.initialized = true
	}
	st.err = err
	close(st.done)
	st.mu.Unlock()
	return err
}

// Transaction runs fn with a Store scoped to a single kvs transaction. A
// Transaction called from within an already-running Transaction reuses the
// active one rather than nesting (spec §4.5/§6).
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	if err := s.EnsureInitialized(ctx); err != nil {
		return err
	}
	return s.kv.Transaction(ctx, func(ctx context.Context, txKV kvs.Store) error {
		child := &Store{
			name:          s.name,
			kv:            txKV,
			codec:         s.codec,
			collections:   s.collections,
			executor:      s.executor,
			engine:        s.engine,
			logger:        s.logger,
			state:         s.state,
			isTransaction: true,
		}
		return fn(ctx, child)
	})
}

// Close releases the underlying kvs.Store. Do not call it on a
// transaction-scoped Store.
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) collection(op, name string) (Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return Collection{}, newError(KindConfigError, op, fmt.Errorf("collection %q is not declared", name))
	}
	if c.HasBeenRemoved {
		return Collection{}, newError(KindConfigError, op, fmt.Errorf("collection %q has been removed", name))
	}
	return c, nil
}

func validateKey(op string, key any) error {
	if !model.ValidDocKey(key) {
		return newError(KindInvalidKey, op, fmt.Errorf("%v is not a valid document key (want a non-empty string or a finite number)", key))
	}
	return nil
}

// Get reads one document by key. With opts.ErrorIfMissing unset, a missing
// document yields (nil, nil) rather than an error.
func (s *Store) Get(ctx context.Context, collection string, key any, opts GetOptions) (Document, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	c, err := s.collection("Get", collection)
	if err != nil {
		return nil, err
	}
	if err := validateKey("Get", key); err != nil {
		return nil, err
	}
	doc, err := s.executor.Get(ctx, s.kv, c, key, opts)
	return doc, classifyErr("Get", err)
}

// GetMany reads several documents by key; absent keys are simply omitted
// from the result (never an error, regardless of GetOptions).
func (s *Store) GetMany(ctx context.Context, collection string, keys []any) ([]DocResult, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	c, err := s.collection("GetMany", collection)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := validateKey("GetMany", k); err != nil {
			return nil, err
		}
	}
	rows, err := s.executor.GetMany(ctx, s.kv, c, keys, GetOptions{})
	if err != nil {
		return nil, classifyErr("GetMany", err)
	}
	out := make([]DocResult, len(rows))
	for i, r := range rows {
		out[i] = DocResult{Key: r.Key, Value: r.Value}
	}
	return out, nil
}

// Put creates or overwrites a document, bringing every declared index on
// collection up to date with it. It opens its own transaction unless called
// from within one already.
func (s *Store) Put(ctx context.Context, collection string, key any, doc Document, opts PutOptions) error {
	if err := s.EnsureInitialized(ctx); err != nil {
		return err
	}
	c, err := s.collection("Put", collection)
	if err != nil {
		return err
	}
	if err := validateKey("Put", key); err != nil {
		return err
	}
	if doc == nil {
		return newError(KindInvalidDocument, "Put", fmt.Errorf("document must not be nil"))
	}

	return s.Transaction(ctx, func(ctx context.Context, tx *Store) error {
		oldDoc, err := tx.executor.Get(ctx, tx.kv, c, key, GetOptions{})
		if err != nil {
			return classifyErr("Put", err)
		}
		err = tx.executor.Put(ctx, tx.kv, c, key, oldDoc, doc, planner.PutOptions{
			CreateIfMissing: !opts.ErrorIfMissing,
			ErrorIfExists:   opts.ErrorIfExists,
		})
		return classifyErr("Put", err)
	})
}

// Delete removes a document and its index entries. It reports whether a
// document was actually removed.
func (s *Store) Delete(ctx context.Context, collection string, key any, opts DeleteOptions) (bool, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return false, err
	}
	c, err := s.collection("Delete", collection)
	if err != nil {
		return false, err
	}
	if err := validateKey("Delete", key); err != nil {
		return false, err
	}

	var deleted bool
	err = s.Transaction(ctx, func(ctx context.Context, tx *Store) error {
		oldDoc, gErr := tx.executor.Get(ctx, tx.kv, c, key, GetOptions{})
		if gErr != nil {
			return classifyErr("Delete", gErr)
		}
		d, dErr := tx.executor.Delete(ctx, tx.kv, c, key, oldDoc, opts)
		if dErr != nil {
			return classifyErr("Delete", dErr)
		}
		deleted = d
		return nil
	})
	return deleted, err
}

// Find runs a query against collection's declared indexes (or, if opts.Query
// and opts.Order are both empty, a plain document-key range scan).
func (s *Store) Find(ctx context.Context, collection string, opts FindOptions) ([]FindResult, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	c, err := s.collection("Find", collection)
	if err != nil {
		return nil, err
	}
	rows, err := s.executor.Find(ctx, s.kv, c, opts)
	return rows, classifyErr("Find", err)
}

// Count is like Find but returns only the matching row count.
func (s *Store) Count(ctx context.Context, collection string, opts CountOptions) (int64, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return 0, err
	}
	c, err := s.collection("Count", collection)
	if err != nil {
		return 0, err
	}
	n, err := s.executor.Count(ctx, s.kv, c, opts)
	return n, classifyErr("Count", err)
}

// ForEach streams every row a query matches to fn, batching the underlying
// scan so a large result set is never materialized at once.
func (s *Store) ForEach(ctx context.Context, collection string, opts FindOptions, fn func(FindResult) error) error {
	if err := s.EnsureInitialized(ctx); err != nil {
		return err
	}
	c, err := s.collection("ForEach", collection)
	if err != nil {
		return err
	}
	return classifyErr("ForEach", s.executor.ForEach(ctx, s.kv, c, opts, fn))
}

// FindAndDelete deletes every document a query matches, along with their
// index entries, and returns how many were removed.
func (s *Store) FindAndDelete(ctx context.Context, collection string, opts FindOptions) (int64, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return 0, err
	}
	c, err := s.collection("FindAndDelete", collection)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.Transaction(ctx, func(ctx context.Context, tx *Store) error {
		var txErr error
		n, txErr = tx.executor.FindAndDelete(ctx, tx.kv, c, opts)
		return txErr
	})
	return n, classifyErr("FindAndDelete", err)
}

// Statistics summarizes the store's size and shape.
type Statistics = schema.Statistics

// GetStatistics reports the store's size and shape.
func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return Statistics{}, err
	}
	stats, err := s.engine.GetStatistics(ctx, s.kv)
	return stats, classifyErr("GetStatistics", err)
}

// RemovedCollections lists collections currently tombstoned as removed, for
// the purge workflow to age against a locally-kept removal ledger.
func (s *Store) RemovedCollections(ctx context.Context) ([]string, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	names, err := s.engine.ListRemovedCollections(ctx, s.kv)
	return names, classifyErr("RemovedCollections", err)
}

// RemoveCollectionsMarkedAsRemoved permanently purges the record of every
// collection no longer declared (spec §4.5's hasBeenRemoved tombstones).
// Documents and index entries for those collections are already gone by
// the time a collection is marked removed; this only drops the tombstone.
func (s *Store) RemoveCollectionsMarkedAsRemoved(ctx context.Context) (int, error) {
	if err := s.EnsureInitialized(ctx); err != nil {
		return 0, err
	}
	n, err := s.engine.RemoveCollectionsMarkedAsRemoved(ctx, s.kv)
	return n, classifyErr("RemoveCollectionsMarkedAsRemoved", err)
}
