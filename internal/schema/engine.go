package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/maintain"
	"github.com/object-layer/document-store/internal/model"
)

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Engine reconciles a store's declared collections against its persisted
// SchemaRecord.
type Engine struct {
	Codec      keycodec.Codec
	Name       string
	Declared   []model.Collection
	Logger     Logger
	maintainer *maintain.Maintainer
}

// New returns an Engine for the named store with the given declared
// collections.
func New(codec keycodec.Codec, name string, declared []model.Collection, log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		Codec:      codec,
		Name:       name,
		Declared:   declared,
		Logger:     log,
		maintainer: maintain.New(codec),
	}
}

// Initialize ensures the store's schema record exists and matches its
// declared collections, creating the record on first use and migrating it
// otherwise. insideTransaction must be true when kv is already a
// transaction-scoped Store (the facade enforces this can't happen — schema
// initialization never runs nested inside a caller's transaction).
func (e *Engine) Initialize(ctx context.Context, kv kvs.Store, insideTransaction bool) error {
	if insideTransaction {
		return fmt.Errorf("schema: cannot initialize a store from within an existing transaction")
	}
	if err := validateDeclared(e.Declared); err != nil {
		return err
	}

	_, found, err := readRecord(ctx, kv, e.Codec)
	if err != nil {
		return err
	}
	if !found {
		return e.create(ctx, kv)
	}
	return e.migrate(ctx, kv)
}

// validateDeclared rejects malformed declared indexes before they're wired
// into the key space. A computed property's name is a Go closure's only
// identity in the key space, so an empty one is the Go analogue of an
// anonymous index function, which spec §6 requires rejecting.
func validateDeclared(declared []model.Collection) error {
	for _, c := range declared {
		for _, ix := range c.Indexes {
			for _, p := range ix.Properties {
				if p.Kind == model.PropertyComputed && p.Path == "" {
					return fmt.Errorf("%w: collection %q declares a computed property with no name", errInvalidIndex, c.Name)
				}
			}
		}
	}
	return nil
}

func (e *Engine) create(ctx context.Context, kv kvs.Store) error {
	r := &Record{Name: e.Name, Version: CurrentVersion}
	for _, c := range e.Declared {
		cr := CollectionRecord{Name: c.Name}
		for _, ix := range c.Indexes {
			cr.Indexes = append(cr.Indexes, toIndexRecord(ix))
		}
		r.Collections = append(r.Collections, cr)
	}
	err := kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		return writeRecord(ctx, tx, e.Codec, r)
	})
	if err != nil {
		return fmt.Errorf("schema: creating initial record: %w", err)
	}
	e.Logger.Printf("schema: created store %q with %d collection(s)", e.Name, len(e.Declared))
	return nil
}

func (e *Engine) migrate(ctx context.Context, kv kvs.Store) error {
	if err := acquireLock(ctx, kv, e.Codec); err != nil {
		return err
	}
	defer func() {
		if relErr := releaseLock(ctx, kv, e.Codec); relErr != nil {
			e.Logger.Printf("schema: releasing lock: %v", relErr)
		}
	}()

	r, found, err := readRecord(ctx, kv, e.Codec)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("schema: record disappeared after acquiring lock")
	}

	if r.Version > CurrentVersion {
		return fmt.Errorf("schema: record version %d is newer than this engine's %d: %w", r.Version, CurrentVersion, errCannotDowngrade)
	}
	if r.Version < minSupportedVersion {
		return fmt.Errorf("schema: record version %d predates %d, which this engine cannot auto-upgrade: %w", r.Version, minSupportedVersion, errLegacySchema)
	}

	changed, err := e.reconcile(ctx, kv, r)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	r.Version = CurrentVersion
	return kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		return writeRecord(ctx, tx, e.Codec, r)
	})
}

// reconcile applies spec §4.5's collection/index diff: add/update/remove,
// rebuilding affected index entries with a full collection scan. It
// performs each index's scan+rebuild or drop within its own transaction, the
// simpler of the two strategies the spec allows (see DESIGN.md for why the
// resumable-flags alternative was not built).
func (e *Engine) reconcile(ctx context.Context, kv kvs.Store, r *Record) (bool, error) {
	changed := false
	declaredByName := make(map[string]model.Collection, len(e.Declared))
	for _, c := range e.Declared {
		declaredByName[c.Name] = c
	}

	for _, c := range e.Declared {
		cr := r.findCollection(c.Name)
		if cr == nil {
			r.Collections = append(r.Collections, CollectionRecord{Name: c.Name})
			cr = &r.Collections[len(r.Collections)-1]
			changed = true
			e.Logger.Printf("schema: adding collection %q", c.Name)
		} else if cr.HasBeenRemoved {
			return changed, fmt.Errorf("schema: collection %q was removed and cannot be re-added (%w)", c.Name, errReAddNotSupported)
		}

		for _, ix := range c.Indexes {
			existing := cr.findIndex(ix.Keys())
			switch {
			case existing == nil:
				if err := e.rebuildIndex(ctx, kv, c, ix); err != nil {
					return changed, err
				}
				cr.Indexes = append(cr.Indexes, toIndexRecord(ix))
				changed = true
				e.Logger.Printf("schema: added index %q on collection %q", ix.Name(), c.Name)
			case existing.Version != ix.Version || !equalStrings(existing.Projection, ix.Projection):
				if err := e.dropIndexEntries(ctx, kv, c.Name, ix.Name()); err != nil {
					return changed, err
				}
				if err := e.rebuildIndex(ctx, kv, c, ix); err != nil {
					return changed, err
				}
				*existing = toIndexRecord(ix)
				changed = true
				e.Logger.Printf("schema: rebuilt index %q on collection %q", ix.Name(), c.Name)
			}
		}

		declaredKeys := make(map[string]bool, len(c.Indexes))
		for _, ix := range c.Indexes {
			declaredKeys[ix.Name()] = true
		}
		kept := cr.Indexes[:0]
		for _, existing := range cr.Indexes {
			name := indexRecordName(existing)
			if declaredKeys[name] {
				kept = append(kept, existing)
				continue
			}
			if err := e.dropIndexEntries(ctx, kv, c.Name, name); err != nil {
				return changed, err
			}
			changed = true
			e.Logger.Printf("schema: removed index %q on collection %q", name, c.Name)
		}
		cr.Indexes = kept
	}

	for i := range r.Collections {
		cr := &r.Collections[i]
		if cr.HasBeenRemoved {
			continue
		}
		if _, stillDeclared := declaredByName[cr.Name]; !stillDeclared {
			for _, ir := range cr.Indexes {
				if err := e.dropIndexEntries(ctx, kv, cr.Name, indexRecordName(ir)); err != nil {
					return changed, err
				}
			}
			if err := e.dropCollectionDocuments(ctx, kv, cr.Name); err != nil {
				return changed, err
			}
			cr.HasBeenRemoved = true
			cr.Indexes = nil
			changed = true
			e.Logger.Printf("schema: marked collection %q as removed", cr.Name)
		}
	}

	return changed, nil
}

func indexRecordName(ir IndexRecord) string {
	name := ""
	for i, k := range ir.Keys {
		if i > 0 {
			name += "+"
		}
		name += k
	}
	return name
}

// rebuildIndex scans every document in c and writes ix's entries for each.
func (e *Engine) rebuildIndex(ctx context.Context, kv kvs.Store, c model.Collection, ix model.Index) error {
	single := model.Collection{Name: c.Name, Indexes: []model.Index{ix}}
	return kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		rows, err := tx.Find(ctx, kvs.FindOptions{Prefix: e.Codec.CollectionPrefix(c.Name), ReturnValues: true})
		if err != nil {
			return fmt.Errorf("schema: scanning %q to rebuild index: %w", c.Name, err)
		}
		for _, row := range rows {
			var doc model.Document
			if err := json.Unmarshal(row.Value, &doc); err != nil {
				return fmt.Errorf("schema: decoding document while rebuilding index: %w", err)
			}
			docKey := row.Key[len(row.Key)-1]
			if err := e.maintainer.Apply(ctx, tx, single, docKey, nil, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// dropIndexEntries deletes every entry of one index.
func (e *Engine) dropIndexEntries(ctx context.Context, kv kvs.Store, collection, indexName string) error {
	return kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		_, err := tx.FindAndDelete(ctx, kvs.RangeOptions{Prefix: e.Codec.IndexPrefix(collection, indexName)})
		if err != nil {
			return fmt.Errorf("schema: dropping index %q entries: %w", indexName, err)
		}
		return nil
	})
}

// dropCollectionDocuments deletes every document under a removed
// collection; reconcile drops the collection's index entries separately.
func (e *Engine) dropCollectionDocuments(ctx context.Context, kv kvs.Store, collection string) error {
	return kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		_, err := tx.FindAndDelete(ctx, kvs.RangeOptions{Prefix: e.Codec.CollectionPrefix(collection)})
		if err != nil {
			return fmt.Errorf("schema: dropping collection %q documents: %w", collection, err)
		}
		return nil
	})
}

// Statistics summarizes a store for the CLI's `docstore stats` command.
type Statistics struct {
	PairsCount              int64
	CollectionsCount        int
	RemovedCollectionsCount int
	IndexesCount            int
}

// GetStatistics reports the store's size and shape.
func (e *Engine) GetStatistics(ctx context.Context, kv kvs.Store) (Statistics, error) {
	r, found, err := readRecord(ctx, kv, e.Codec)
	if err != nil {
		return Statistics{}, err
	}
	if !found {
		return Statistics{}, fmt.Errorf("schema: store %q is not initialized", e.Name)
	}
	pairs, err := kv.Count(ctx, kvs.RangeOptions{Prefix: kvs.Key{e.Codec.Store}})
	if err != nil {
		return Statistics{}, fmt.Errorf("schema: counting pairs: %w", err)
	}
	var stats Statistics
	stats.PairsCount = pairs
	for _, c := range r.Collections {
		if c.HasBeenRemoved {
			stats.RemovedCollectionsCount++
			continue
		}
		stats.CollectionsCount++
		stats.IndexesCount += len(c.Indexes)
	}
	return stats, nil
}

// ListRemovedCollections returns the names of every collection currently
// tombstoned (HasBeenRemoved), for the purge workflow to age against a
// locally-kept removal ledger (schema records carry no removal timestamp).
func (e *Engine) ListRemovedCollections(ctx context.Context, kv kvs.Store) ([]string, error) {
	r, found, err := readRecord(ctx, kv, e.Codec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("schema: store %q is not initialized", e.Name)
	}
	var names []string
	for _, c := range r.Collections {
		if c.HasBeenRemoved {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// RemoveCollectionsMarkedAsRemoved permanently purges every collection whose
// HasBeenRemoved flag is set, dropping its record entirely.
func (e *Engine) RemoveCollectionsMarkedAsRemoved(ctx context.Context, kv kvs.Store) (int, error) {
	if err := acquireLock(ctx, kv, e.Codec); err != nil {
		return 0, err
	}
	defer func() {
		if relErr := releaseLock(ctx, kv, e.Codec); relErr != nil {
			e.Logger.Printf("schema: releasing lock: %v", relErr)
		}
	}()

	r, found, err := readRecord(ctx, kv, e.Codec)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("schema: store %q is not initialized", e.Name)
	}

	var purged int
	kept := r.Collections[:0]
	for _, cr := range r.Collections {
		if !cr.HasBeenRemoved {
			kept = append(kept, cr)
			continue
		}
		purged++
	}
	r.Collections = kept
	if purged == 0 {
		return 0, nil
	}
	err = kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		return writeRecord(ctx, tx, e.Codec, r)
	})
	if err != nil {
		return 0, fmt.Errorf("schema: persisting purge: %w", err)
	}
	return purged, nil
}
