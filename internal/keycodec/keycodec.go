// Package keycodec builds the composite tuple keys the document store
// writes into the underlying kvs.Store (spec §4.1): a document's own key,
// its index entries' keys, and the schema record's key, all namespaced under
// a single store name the way beads' internal/storage/convex/indexes.go
// builds "\x00"-terminated per-field key segments under one adapter.
package keycodec

import "github.com/object-layer/document-store/internal/kvs"

// indexSuffix separates a collection's document keyspace from its index
// keyspaces, matching spec §3's "collectionName:indexName" naming.
const indexSuffix = ":"

// Codec builds keys within one named store.
type Codec struct {
	Store string
}

// New returns a Codec for the given store name.
func New(store string) Codec {
	return Codec{Store: store}
}

// SchemaKey is the single-element key the SchemaRecord lives under.
func (c Codec) SchemaKey() kvs.Key {
	return kvs.Key{c.Store}
}

// CollectionPrefix is the key prefix covering every document in collection.
func (c Codec) CollectionPrefix(collection string) kvs.Key {
	return kvs.Key{c.Store, collection}
}

// DocKey is the key a document is stored under.
func (c Codec) DocKey(collection string, key any) kvs.Key {
	return kvs.Key{c.Store, collection, key}
}

// indexName is the keyspace segment for one of a collection's indexes.
func indexName(collection, index string) string {
	return collection + indexSuffix + index
}

// IndexPrefix is the key prefix covering every entry of one index.
func (c Codec) IndexPrefix(collection, index string) kvs.Key {
	return kvs.Key{c.Store, indexName(collection, index)}
}

// IndexKey is the key one index entry is stored under: the index's prefix,
// followed by the indexed property values, followed by the document key
// that disambiguates entries sharing the same values.
func (c Codec) IndexKey(collection, index string, values []any, docKey any) kvs.Key {
	key := make(kvs.Key, 0, 2+len(values)+1)
	key = append(key, c.Store, indexName(collection, index))
	key = append(key, values...)
	key = append(key, docKey)
	return key
}

// IndexPrefixForQuery is the key prefix matching every index entry whose
// leading property values equal queryValues — the starting point for a
// range scan satisfying an equality query on those properties.
func (c Codec) IndexPrefixForQuery(collection, index string, queryValues []any) kvs.Key {
	key := make(kvs.Key, 0, 2+len(queryValues))
	key = append(key, c.Store, indexName(collection, index))
	key = append(key, queryValues...)
	return key
}

// OrderKey builds the tail every index entry carries after its query-bound
// leading values: the order-property values, followed by the document key.
// Concatenated after an IndexPrefixForQuery key it reconstructs a specific
// entry's full key, used to build Start/StartAfter/End/EndBefore bounds.
func OrderKey(orderValues []any, docKey any) []any {
	tail := make([]any, 0, len(orderValues)+1)
	tail = append(tail, orderValues...)
	tail = append(tail, docKey)
	return tail
}

// AppendTail returns prefix extended with tail — the absolute key a
// Start/StartAfter/End/EndBefore bound resolves to.
func AppendTail(prefix kvs.Key, tail []any) kvs.Key {
	key := make(kvs.Key, 0, len(prefix)+len(tail))
	key = append(key, prefix...)
	key = append(key, tail...)
	return key
}
