// Package purge implements `docstore purge --before=`: parsing a
// natural-language cutoff with olebedev/when and deciding which
// already-tombstoned collections are old enough to drop for good.
//
// A schema.Record's CollectionRecord carries only a HasBeenRemoved flag, no
// removal timestamp (see internal/schema/record.go), so "before" has
// nothing to compare against inside the store itself. This package keeps a
// small local ledger file, next to the store's config, recording the first
// time each removed collection was observed — the Open Question resolution
// documented in DESIGN.md.
package purge

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ParseBefore parses a natural-language instant like "3 days ago" or
// "2024-01-01" relative to now, returning the absolute time it denotes.
func ParseBefore(expr string, now time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("purge: parsing %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("purge: %q does not describe a recognizable time", expr)
	}
	return r.Time, nil
}

// Ledger is a JSON file mapping collection name to the first time it was
// observed tombstoned as removed.
type Ledger map[string]time.Time

// LoadLedger reads a ledger file, returning an empty Ledger if it doesn't
// exist yet.
func LoadLedger(path string) (Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Ledger{}, nil
		}
		return nil, fmt.Errorf("purge: reading ledger %s: %w", path, err)
	}
	l := Ledger{}
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("purge: parsing ledger %s: %w", path, err)
	}
	return l, nil
}

// Save writes the ledger to path.
func (l Ledger) Save(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("purge: encoding ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("purge: writing ledger %s: %w", path, err)
	}
	return nil
}

// Observe records now as the first-seen time for every name in
// currentlyRemoved not already tracked, and drops ledger entries for names
// no longer in currentlyRemoved (they were either re-added, which
// SchemaEngine otherwise refuses, or already purged).
func (l Ledger) Observe(currentlyRemoved []string, now time.Time) Ledger {
	out := make(Ledger, len(currentlyRemoved))
	for _, name := range currentlyRemoved {
		if t, ok := l[name]; ok {
			out[name] = t
		} else {
			out[name] = now
		}
	}
	return out
}

// Due returns the subset of currentlyRemoved whose ledger timestamp is
// before cutoff.
func (l Ledger) Due(currentlyRemoved []string, cutoff time.Time) []string {
	var due []string
	for _, name := range currentlyRemoved {
		if t, ok := l[name]; ok && t.Before(cutoff) {
			due = append(due, name)
		}
	}
	return due
}

// AllDue reports whether every name in currentlyRemoved is due, which is
// what gates calling the facade's store-wide
// RemoveCollectionsMarkedAsRemoved (it purges every tombstoned collection at
// once; there is no per-collection purge — see DESIGN.md).
func AllDue(currentlyRemoved []string, due []string) bool {
	return len(currentlyRemoved) > 0 && len(due) == len(currentlyRemoved)
}
