package model

import "strings"

// PropertyKind distinguishes a plain dotted-path index property from one
// computed by a Go function (spec §3's "simple or computed" property).
type PropertyKind int

const (
	PropertyPath PropertyKind = iota
	PropertyComputed
)

// ComputedFunc derives an indexed value from a document. Only constructible
// through the Go API (docstore.ComputedProperty/ComputedIndex) — it has no config-file
// representation (see SPEC_FULL.md §4.8).
type ComputedFunc func(doc Document) (any, error)

// IndexProperty is one component of an index's key tuple.
type IndexProperty struct {
	Kind PropertyKind
	Path string // dotted path; used when Kind == PropertyPath, also used as the stable name for a computed property
	Fn   ComputedFunc
}

// Index is one declared index on a Collection: an ordered list of
// properties forming its key tuple, plus an optional set of projected
// fields returned instead of the full document when a query is satisfied
// entirely from the index.
type Index struct {
	Properties []IndexProperty
	Projection []string
	Version    int
}

// Keys returns the property names, in declared order — the shape the index
// tuple takes in the key space.
func (ix Index) Keys() []string {
	keys := make([]string, len(ix.Properties))
	for i, p := range ix.Properties {
		keys[i] = p.Path
	}
	return keys
}

// Name is the index's stable identifier within its collection, used as the
// ":index" segment of its key-space prefix.
func (ix Index) Name() string {
	return strings.Join(ix.Keys(), "+")
}

// WithProjection attaches a projection to ix: the document fields stored
// alongside each index entry so some queries can be satisfied without
// fetching the full document.
func (ix Index) WithProjection(fields ...string) Index {
	ix.Projection = fields
	return ix
}

// WithVersion marks ix with an explicit version. Bumping it after a
// behavioral change to a computed property forces SchemaEngine to rebuild
// the index on next initialization, even though its key tuple hasn't
// changed (spec §4.5).
func (ix Index) WithVersion(v int) Index {
	ix.Version = v
	return ix
}

// HasProjection reports whether the index stores a projection payload
// rather than a bare marker.
func (ix Index) HasProjection() bool {
	return len(ix.Projection) > 0
}

// SatisfiesFields reports whether every field in fields is covered by the
// index's projection (a subset check; the empty slice is trivially
// satisfied by any index, including one with no projection at all).
func (ix Index) SatisfiesFields(fields []string) bool {
	if len(fields) == 0 {
		return true
	}
	have := make(map[string]bool, len(ix.Projection))
	for _, f := range ix.Projection {
		have[f] = true
	}
	for _, f := range fields {
		if !have[f] {
			return false
		}
	}
	return true
}

// Collection is a declared collection: a name and the indexes maintained
// on it.
type Collection struct {
	Name           string
	Indexes        []Index
	HasBeenRemoved bool
}

// FindIndexForQueryAndOrder returns the index whose property keys are
// exactly queryKeys (in any order) followed by order (in order), the
// selection rule in spec §4.4. It returns the first declared index
// matching, so ties break by declaration order.
func (c Collection) FindIndexForQueryAndOrder(queryKeys []string, order []string) (Index, bool) {
	want := make(map[string]bool, len(queryKeys))
	for _, k := range queryKeys {
		want[k] = true
	}
	for _, ix := range c.Indexes {
		keys := ix.Keys()
		if len(keys) < len(queryKeys) {
			continue
		}
		prefix := keys[:len(queryKeys)]
		if !sameSet(prefix, want) {
			continue
		}
		rest := keys[len(queryKeys):]
		if !equalSlices(rest, order) {
			continue
		}
		return ix, true
	}
	return Index{}, false
}

func sameSet(keys []string, want map[string]bool) bool {
	if len(keys) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !want[k] || seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
