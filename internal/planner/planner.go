package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/model"
)

// ErrIndexNotFound is returned when a query's property set and order don't
// match any declared index.
var ErrIndexNotFound = fmt.Errorf("planner: no index satisfies this query and order")

func decodeDoc(b []byte) (model.Document, error) {
	if b == nil {
		return nil, nil
	}
	var doc model.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

func encodeDoc(doc model.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return b, nil
}

// Get reads one document by key.
func (e *Executor) Get(ctx context.Context, tx kvs.Store, collection model.Collection, key any, opts GetOptions) (model.Document, error) {
	b, found, err := tx.Get(ctx, e.Codec.DocKey(collection.Name, key), kvs.GetOptions{ErrorIfMissing: opts.ErrorIfMissing})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return decodeDoc(b)
}

// GetMany reads several documents by key, in the order requested. Absent
// documents (when opts.ErrorIfMissing is false) are simply omitted.
func (e *Executor) GetMany(ctx context.Context, tx kvs.Store, collection model.Collection, keys []any, opts GetOptions) ([]FindResult, error) {
	kvKeys := make([]kvs.Key, len(keys))
	for i, k := range keys {
		kvKeys[i] = e.Codec.DocKey(collection.Name, k)
	}
	rows, err := tx.GetMany(ctx, kvKeys, kvs.GetOptions{ErrorIfMissing: opts.ErrorIfMissing})
	if err != nil {
		return nil, err
	}
	out := make([]FindResult, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDoc(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, FindResult{Key: row.Key[len(row.Key)-1], Value: doc, raw: row.Key})
	}
	return out, nil
}

// Put writes a document, then updates every index affected by the change
// from oldDoc (nil if the document didn't previously exist) to the new
// value, all within tx.
func (e *Executor) Put(ctx context.Context, tx kvs.Store, collection model.Collection, key any, oldDoc, newDoc model.Document, opts PutOptions) error {
	b, err := encodeDoc(newDoc)
	if err != nil {
		return err
	}
	if err := tx.Put(ctx, e.Codec.DocKey(collection.Name, key), b, kvs.PutOptions{
		CreateIfMissing: opts.CreateIfMissing,
		ErrorIfExists:   opts.ErrorIfExists,
	}); err != nil {
		return err
	}
	return e.Maintainer.Apply(ctx, tx, collection, key, oldDoc, newDoc)
}

// Delete removes a document and its index entries.
func (e *Executor) Delete(ctx context.Context, tx kvs.Store, collection model.Collection, key any, oldDoc model.Document, opts DeleteOptions) (bool, error) {
	deleted, err := tx.Delete(ctx, e.Codec.DocKey(collection.Name, key), kvs.DeleteOptions{ErrorIfMissing: opts.ErrorIfMissing})
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if err := e.Maintainer.Apply(ctx, tx, collection, key, oldDoc, nil); err != nil {
		return false, err
	}
	return true, nil
}

// resolved describes where Find/Count/ForEach/FindAndDelete will scan:
// either a bare collection prefix (index == nil) or a specific index's query
// prefix.
type resolved struct {
	prefix kvs.Key
	index  *model.Index
}

func (e *Executor) resolve(collection model.Collection, query map[string]any, order []string) (resolved, error) {
	if len(query) == 0 && len(order) == 0 {
		return resolved{prefix: e.Codec.CollectionPrefix(collection.Name)}, nil
	}
	queryKeys := make([]string, 0, len(query))
	for k := range query {
		queryKeys = append(queryKeys, k)
	}
	ix, ok := collection.FindIndexForQueryAndOrder(queryKeys, order)
	if !ok {
		return resolved{}, ErrIndexNotFound
	}
	values := make([]any, len(query))
	for i, k := range ix.Keys()[:len(query)] {
		values[i] = query[k]
	}
	prefix := e.Codec.IndexPrefixForQuery(collection.Name, ix.Name(), values)
	return resolved{prefix: prefix, index: &ix}, nil
}

func tailKey(prefix kvs.Key, tail []any) kvs.Key {
	if tail == nil {
		return nil
	}
	return keycodec.AppendTail(prefix, tail)
}

// Find runs a query and returns every matching row (up to opts.Limit).
func (e *Executor) Find(ctx context.Context, tx kvs.Store, collection model.Collection, opts FindOptions) ([]FindResult, error) {
	r, err := e.resolve(collection, opts.Query, opts.Order)
	if err != nil {
		return nil, err
	}
	if r.index == nil {
		return e.findDocRange(ctx, tx, r.prefix, opts)
	}
	return e.findByIndex(ctx, tx, collection, r, opts)
}

func (e *Executor) kvsFindOptions(prefix kvs.Key, opts FindOptions, returnValues bool) kvs.FindOptions {
	fo := kvs.FindOptions{
		Prefix:       prefix,
		Start:        tailKey(prefix, opts.Start),
		StartAfter:   tailKey(prefix, opts.StartAfter),
		End:          tailKey(prefix, opts.End),
		EndBefore:    tailKey(prefix, opts.EndBefore),
		Reverse:      opts.Reverse,
		Limit:        opts.Limit,
		ReturnValues: returnValues,
	}
	if opts.resumeAfter != nil {
		fo.Start = nil
		fo.StartAfter = opts.resumeAfter
	}
	return fo
}

func (e *Executor) findDocRange(ctx context.Context, tx kvs.Store, prefix kvs.Key, opts FindOptions) ([]FindResult, error) {
	keysOnly := opts.Properties.Fields != nil && len(opts.Properties.Fields) == 0 && !opts.Properties.All
	rows, err := tx.Find(ctx, e.kvsFindOptions(prefix, opts, !keysOnly))
	if err != nil {
		return nil, err
	}
	out := make([]FindResult, 0, len(rows))
	for _, row := range rows {
		var doc model.Document
		if !keysOnly {
			doc, err = decodeDoc(row.Value)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, FindResult{Key: row.Key[len(row.Key)-1], Value: doc, raw: row.Key})
	}
	return out, nil
}

func (e *Executor) findByIndex(ctx context.Context, tx kvs.Store, collection model.Collection, r resolved, opts FindOptions) ([]FindResult, error) {
	ix := *r.index
	unspecified := opts.Properties.Fields == nil && !opts.Properties.All
	fullFetch := opts.Properties.All || unspecified
	if !fullFetch && !ix.SatisfiesFields(opts.Properties.Fields) {
		e.Logger.Printf("planner: index %q does not cover requested properties %v, falling back to a full document fetch", ix.Name(), opts.Properties.Fields)
		fullFetch = true
	}

	rows, err := tx.Find(ctx, e.kvsFindOptions(r.prefix, opts, !fullFetch))
	if err != nil {
		return nil, err
	}

	out := make([]FindResult, len(rows))
	for i, row := range rows {
		result := FindResult{Key: row.Key[len(row.Key)-1], raw: row.Key}
		if !fullFetch {
			var proj map[string]any
			if err := json.Unmarshal(row.Value, &proj); err != nil {
				return nil, fmt.Errorf("decoding projection payload: %w", err)
			}
			if len(opts.Properties.Fields) > 0 {
				result.Value = make(map[string]any, len(opts.Properties.Fields))
				for _, f := range opts.Properties.Fields {
					if v, ok := proj[f]; ok {
						result.Value[f] = v
					}
				}
			}
		}
		out[i] = result
	}
	if !fullFetch {
		return out, nil
	}

	keys := make([]any, len(out))
	for i, r := range out {
		keys[i] = r.Key
	}
	docs, err := e.GetMany(ctx, tx, collection, keys, GetOptions{})
	if err != nil {
		return nil, err
	}
	byKey := make(map[any]model.Document, len(docs))
	for _, d := range docs {
		byKey[d.Key] = d.Value
	}
	for i := range out {
		out[i].Value = byKey[out[i].Key]
	}
	return out, nil
}

// Count returns the number of rows a query matches without fetching values.
func (e *Executor) Count(ctx context.Context, tx kvs.Store, collection model.Collection, opts CountOptions) (int64, error) {
	r, err := e.resolve(collection, opts.Query, opts.Order)
	if err != nil {
		return 0, err
	}
	return tx.Count(ctx, kvs.RangeOptions{
		Prefix:     r.prefix,
		Start:      tailKey(r.prefix, opts.Start),
		StartAfter: tailKey(r.prefix, opts.StartAfter),
		End:        tailKey(r.prefix, opts.End),
		EndBefore:  tailKey(r.prefix, opts.EndBefore),
	})
}

// FindAndDelete deletes every row a query matches, including their index
// entries, and returns how many documents were removed.
func (e *Executor) FindAndDelete(ctx context.Context, tx kvs.Store, collection model.Collection, opts FindOptions) (int64, error) {
	rows, err := e.Find(ctx, tx, collection, opts)
	if err != nil {
		return 0, err
	}
	fromProjection := opts.Properties.Fields != nil && !opts.Properties.All
	var n int64
	for _, row := range rows {
		doc := row.Value
		if doc == nil || fromProjection {
			// Projection-only rows don't carry enough of the document to
			// diff indexes correctly; re-fetch before deleting.
			doc, err = e.Get(ctx, tx, collection, row.Key, GetOptions{})
			if err != nil {
				return n, err
			}
		}
		deleted, err := e.Delete(ctx, tx, collection, row.Key, doc, DeleteOptions{})
		if err != nil {
			return n, err
		}
		if deleted {
			n++
		}
	}
	return n, nil
}

// ForEach streams every matching row to fn, batching underlying Find calls
// of e.BatchSize rows so a large scan never materializes the whole result
// set at once. Iteration stops, returning fn's error, the first time fn
// returns a non-nil error.
func (e *Executor) ForEach(ctx context.Context, tx kvs.Store, collection model.Collection, opts FindOptions, fn func(FindResult) error) error {
	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = 250
	}
	batchOpts := opts
	batchOpts.Limit = batchSize

	for {
		rows, err := e.Find(ctx, tx, collection, batchOpts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		if len(rows) < batchSize {
			return nil
		}
		batchOpts.resumeAfter = rows[len(rows)-1].raw
	}
}
