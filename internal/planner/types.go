// Package planner implements the Planner/Executor (spec §4.4): it turns a
// get/put/delete/find/count request plus a Collection's declared indexes
// into concrete kvs.Store operations, choosing an index when the query and
// requested order admit one and falling back to a plain document-key range
// scan otherwise.
package planner

import (
	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/maintain"
)

// Logger is satisfied by *log.Logger, so the teacher's logging idiom
// (construct one *log.Logger per component, pass it down) carries over
// unchanged.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Properties selects which fields Find/ForEach/Get return.
//
//   - zero value (All == false, Fields == nil): unspecified, treated as a
//     request for full documents.
//   - All == true: always fetch the full document ('*').
//   - Fields non-nil (including the empty slice): return only these fields
//     when an index projection covers them; fall back to a full document
//     fetch (logging the fallback) when it doesn't.
type Properties struct {
	All    bool
	Fields []string
}

// GetOptions controls Get.
type GetOptions struct {
	ErrorIfMissing bool
}

// PutOptions controls Put.
type PutOptions struct {
	CreateIfMissing bool
	ErrorIfExists   bool
}

// DeleteOptions controls Delete.
type DeleteOptions struct {
	ErrorIfMissing bool
}

// FindOptions controls Find, ForEach and FindAndDelete.
//
// Query maps indexed property names to the value they must equal. Order
// names the properties results are sorted by, after the query properties.
// Start/StartAfter/End/EndBefore are tails appended after the resolved
// prefix (index or bare collection): when Order is set they are
// order-property values (optionally followed by a document key to
// disambiguate ties); when there is no index at all they are just a
// document key.
type FindOptions struct {
	Query      map[string]any
	Order      []string
	Reverse    bool
	Start      []any
	StartAfter []any
	End        []any
	EndBefore  []any
	Limit      int
	Properties Properties

	// resumeAfter, when set, overrides StartAfter with an absolute raw key
	// from a previous batch's last result. Used internally by ForEach.
	resumeAfter kvs.Key
}

// FindResult is one row from Find.
type FindResult struct {
	Key   any
	Value map[string]any // nil when Properties requested keys only
	raw   kvs.Key
}

// Cursor exposes the raw underlying key, usable as an opaque cursor for
// manual pagination (ForEach uses it internally the same way).
func (r FindResult) Cursor() kvs.Key { return r.raw }

// CountOptions controls Count; it is Find's bounds without
// Limit/Properties, which Count does not need.
type CountOptions struct {
	Query      map[string]any
	Order      []string
	Start      []any
	StartAfter []any
	End        []any
	EndBefore  []any
}

// Executor plans and runs operations against one store's collections.
type Executor struct {
	Codec      keycodec.Codec
	Maintainer *maintain.Maintainer
	Logger     Logger
	// BatchSize is how many rows ForEach fetches per underlying Find call.
	BatchSize int
}

// New returns an Executor. log may be nil, in which case Executor logs
// nothing.
func New(codec keycodec.Codec, log Logger) *Executor {
	if log == nil {
		log = nopLogger{}
	}
	return &Executor{
		Codec:      codec,
		Maintainer: maintain.New(codec),
		Logger:     log,
		BatchSize:  250,
	}
}
