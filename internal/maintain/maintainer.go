// Package maintain implements the IndexMaintainer (spec §4.3): given a
// document's old and new state, it computes and applies the index-entry
// writes and deletes that keep a collection's indexes consistent, the way
// beads' adapter.go recomputes index rows inside applyUpdates whenever a
// document log entry is appended.
package maintain

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/model"
)

// Maintainer computes and applies index writes for one store.
type Maintainer struct {
	Codec keycodec.Codec
}

// New returns a Maintainer keying entries under codec's store.
func New(codec keycodec.Codec) *Maintainer {
	return &Maintainer{Codec: codec}
}

// ExtractProperty evaluates one index property against doc. A nil doc (the
// document doesn't exist in this state) always yields model.Undefined. A
// present document missing the property's path also yields model.Undefined,
// distinct from a present JSON null.
func ExtractProperty(prop model.IndexProperty, doc model.Document) (any, error) {
	if doc == nil {
		return model.Undefined, nil
	}
	if prop.Kind == model.PropertyComputed {
		v, err := prop.Fn(doc)
		if err != nil {
			return nil, fmt.Errorf("computing index property %q: %w", prop.Path, err)
		}
		return v, nil
	}
	flat := model.Flatten(doc)
	v, ok := model.ExtractPath(flat, prop.Path)
	if !ok {
		return model.Undefined, nil
	}
	return v, nil
}

// ValuesFor extracts every property of ix against doc, in index order.
func ValuesFor(ix model.Index, doc model.Document) ([]any, error) {
	values := make([]any, len(ix.Properties))
	for i, p := range ix.Properties {
		v, err := ExtractProperty(p, doc)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ContainsUndefined reports whether any element of values is model.Undefined.
func ContainsUndefined(values []any) bool {
	for _, v := range values {
		if model.IsUndefined(v) {
			return true
		}
	}
	return false
}

// ValuesEqual reports whether two extracted value tuples are identical.
func ValuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ExtractProjection builds the projection payload stored alongside an index
// entry: doc's flattened values at ix.Projection's paths, omitting any field
// that is absent or present-but-null. It returns (nil, false) when ix
// declares no projection at all, or when every projected field turned out
// absent/null (spec §4.3: "omit keys with null/undefined values; whole
// projection is absent if every projected value is absent").
func ExtractProjection(ix model.Index, doc model.Document) (map[string]any, bool) {
	if !ix.HasProjection() {
		return nil, false
	}
	if doc == nil {
		return nil, false
	}
	flat := model.Flatten(doc)
	out := make(map[string]any, len(ix.Projection))
	for _, field := range ix.Projection {
		if v, ok := model.ExtractPath(flat, field); ok && v != nil {
			out[field] = v
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Operation is one index-entry write or delete computed by Diff.
type Operation struct {
	Delete bool
	Key    kvs.Key
	Value  []byte // JSON-encoded projection payload, or JSON "null" when there is no projection payload
}

// Diff computes the index-entry operations needed to move collection's
// indexes from reflecting oldDoc to reflecting newDoc (spec §4.3's
// per-write diff algorithm). oldDoc is nil for a new document; newDoc is nil
// for a deleted one.
func (m *Maintainer) Diff(collection model.Collection, docKey any, oldDoc, newDoc model.Document) ([]Operation, error) {
	var ops []Operation
	for _, ix := range collection.Indexes {
		oldValues, err := ValuesFor(ix, oldDoc)
		if err != nil {
			return nil, err
		}
		newValues, err := ValuesFor(ix, newDoc)
		if err != nil {
			return nil, err
		}

		oldProj, oldHasProj := ExtractProjection(ix, oldDoc)
		newProj, newHasProj := ExtractProjection(ix, newDoc)

		valuesDiffer := !ValuesEqual(oldValues, newValues)
		projectionDiffers := oldHasProj != newHasProj || !reflect.DeepEqual(oldProj, newProj)

		if valuesDiffer && !ContainsUndefined(oldValues) {
			ops = append(ops, Operation{
				Delete: true,
				Key:    m.Codec.IndexKey(collection.Name, ix.Name(), oldValues, docKey),
			})
		}
		if (valuesDiffer || projectionDiffers) && !ContainsUndefined(newValues) {
			var payload []byte
			if newHasProj {
				b, err := json.Marshal(newProj)
				if err != nil {
					return nil, fmt.Errorf("encoding projection for index %q: %w", ix.Name(), err)
				}
				payload = b
			} else {
				payload = []byte("null")
			}
			ops = append(ops, Operation{
				Key:   m.Codec.IndexKey(collection.Name, ix.Name(), newValues, docKey),
				Value: payload,
			})
		}
	}
	return ops, nil
}

// Apply computes and issues the operations for one document write/delete
// within tx.
func (m *Maintainer) Apply(ctx context.Context, tx kvs.Store, collection model.Collection, docKey any, oldDoc, newDoc model.Document) error {
	ops, err := m.Diff(collection, docKey, oldDoc, newDoc)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Delete {
			if _, err := tx.Delete(ctx, op.Key, kvs.DeleteOptions{}); err != nil {
				return fmt.Errorf("deleting stale index entry: %w", err)
			}
			continue
		}
		if err := tx.Put(ctx, op.Key, op.Value, kvs.PutOptions{CreateIfMissing: true}); err != nil {
			return fmt.Errorf("writing index entry: %w", err)
		}
	}
	return nil
}
