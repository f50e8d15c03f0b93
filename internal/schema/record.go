// Package schema implements the SchemaEngine (spec §4.5): it reconciles a
// store's declared collections/indexes against the persisted SchemaRecord,
// acquiring a lock before mutating it, the way beads' internal/config
// package keeps a typed, versioned record alongside a lock-protected upgrade
// path.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/object-layer/document-store/internal/model"
)

// CurrentVersion is the schema record format this engine writes. Records
// persisted by an engine older than version 3 are refused rather than
// silently upgraded (spec §9 Design Note (b)): the pre-3 format didn't
// record index versions, so this engine can't tell whether an index needs
// rebuilding without that information.
const CurrentVersion = 3

const minSupportedVersion = 3

// IndexRecord is one index's persisted shape.
type IndexRecord struct {
	Keys       []string `json:"keys"`
	Projection []string `json:"projection,omitempty"`
	Version    int      `json:"version,omitempty"`
}

// CollectionRecord is one collection's persisted shape.
type CollectionRecord struct {
	Name           string        `json:"name"`
	HasBeenRemoved bool          `json:"hasBeenRemoved,omitempty"`
	Indexes        []IndexRecord `json:"indexes"`
}

// Record is the SchemaRecord persisted under the store's schema key.
type Record struct {
	Name        string             `json:"name"`
	Version     int                `json:"version"`
	IsLocked    bool               `json:"isLocked"`
	Collections []CollectionRecord `json:"collections"`
}

func marshalRecord(r *Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("schema: encoding record: %w", err)
	}
	return b, nil
}

func unmarshalRecord(b []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("schema: decoding record: %w", err)
	}
	return &r, nil
}

// toIndexRecord converts a declared index to its persisted shape.
func toIndexRecord(ix model.Index) IndexRecord {
	return IndexRecord{Keys: ix.Keys(), Projection: ix.Projection, Version: ix.Version}
}

// findCollection returns the record for name, or nil.
func (r *Record) findCollection(name string) *CollectionRecord {
	for i := range r.Collections {
		if r.Collections[i].Name == name {
			return &r.Collections[i]
		}
	}
	return nil
}

// findIndex returns the record for the index whose key tuple matches keys.
func (cr *CollectionRecord) findIndex(keys []string) *IndexRecord {
	for i := range cr.Indexes {
		if equalStrings(cr.Indexes[i].Keys, keys) {
			return &cr.Indexes[i]
		}
	}
	return nil
}

func equalStrings(a, b []string) bool {
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
