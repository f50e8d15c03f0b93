package docstore

import "github.com/object-layer/document-store/internal/model"

// Document is a JSON-like value: object fields decode to
// map[string]any, arrays to []any, numbers to float64 (spec §3).
type Document = model.Document

// Collection, Index and IndexProperty describe a store's declared shape
// (spec §3). Build them with PathIndex/ComputedIndex rather than
// constructing model.Index directly.
type Collection = model.Collection
type Index = model.Index
type IndexProperty = model.IndexProperty

// PathIndex declares an index whose key tuple is the given dotted document
// paths, in order.
func PathIndex(paths ...string) Index {
	props := make([]IndexProperty, len(paths))
	for i, p := range paths {
		props[i] = IndexProperty{Kind: model.PropertyPath, Path: p}
	}
	return Index{Properties: props}
}

// ComputedProperty declares an index property derived by fn rather than
// read directly off the document. name must be non-empty and stable across
// process restarts — it is part of the index's identity and key-space name,
// and is the Go analogue of a named (non-anonymous) index function; an
// empty name is rejected with KindConfigError when the store initializes.
// Computed indexes are Go-API-only (SPEC_FULL.md §4.8): they have no
// config-file representation.
func ComputedProperty(name string, fn func(doc Document) (any, error)) IndexProperty {
	return IndexProperty{Kind: model.PropertyComputed, Path: name, Fn: fn}
}

// ComputedIndex declares an index from one or more properties, at least one
// of which is typically a ComputedProperty.
func ComputedIndex(properties ...IndexProperty) Index {
	return Index{Properties: properties}
}

// NewCollection declares a collection and its indexes.
func NewCollection(name string, indexes ...Index) Collection {
	return Collection{Name: name, Indexes: indexes}
}

// Logger is satisfied by *log.Logger; pass one via WithLogger to have the
// store log query fallbacks to a full document fetch and schema migrations.
type Logger interface {
	Printf(format string, args ...any)
}

type config struct {
	collections []Collection
	logger      Logger
}

// Option configures Open.
type Option func(*config)

// WithCollections declares the store's collections. Declare every
// collection/index the store should have; SchemaEngine reconciles whatever
// is already persisted to match when the store initializes, on its first
// operation after Open.
func WithCollections(collections ...Collection) Option {
	return func(c *config) { c.collections = append(c.collections, collections...) }
}

// WithLogger sets the logger used for diagnostic messages.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logger = l }
}
