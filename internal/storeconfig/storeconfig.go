// Package storeconfig declares a store's collections and indexes in a file
// instead of Go source, the way beads' internal/config declares typed,
// versioned records on disk (internal/config/types.go) and round-trip
// load/save tests them (internal/config/loader_test.go). TOML is the
// default on-disk format; ".yaml"/".yml" files load as YAML instead.
package storeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/object-layer/document-store/internal/model"
)

// CurrentVersion is the config file format's own version, independent of
// the schema record version internal/schema tracks.
const CurrentVersion = 1

// IndexConfig declares one index. Properties names a dotted document path
// per key-tuple component; computed properties have no file representation
// (SPEC_FULL.md §4.8) and must be merged in after loading.
type IndexConfig struct {
	Properties []string `toml:"properties" yaml:"properties"`
	Projection []string `toml:"projection,omitempty" yaml:"projection,omitempty"`
	Version    int      `toml:"version,omitempty" yaml:"version,omitempty"`
}

// CollectionConfig declares one collection and its file-declared indexes.
type CollectionConfig struct {
	Name    string        `toml:"name" yaml:"name"`
	Indexes []IndexConfig `toml:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// StoreConfig is a document store's declared shape plus the URL of the
// backend to open it against.
type StoreConfig struct {
	Version     int                `toml:"version" yaml:"version"`
	Name        string             `toml:"name" yaml:"name"`
	URL         string             `toml:"url" yaml:"url"`
	Collections []CollectionConfig `toml:"collections,omitempty" yaml:"collections,omitempty"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a StoreConfig from path, format inferred from its extension.
func Load(path string) (*StoreConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storeconfig: reading %s: %w", path, err)
	}
	cfg := &StoreConfig{}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("storeconfig: parsing %s as YAML: %w", path, err)
		}
	} else if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("storeconfig: parsing %s as TOML: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("storeconfig: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, format inferred from its extension.
func Save(path string, cfg *StoreConfig) error {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("storeconfig: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storeconfig: creating directory for %s: %w", path, err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		var buf strings.Builder
		enc := toml.NewEncoder(&buf)
		err = enc.Encode(cfg)
		data = []byte(buf.String())
	}
	if err != nil {
		return fmt.Errorf("storeconfig: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storeconfig: writing %s: %w", path, err)
	}
	return nil
}

// Validate checks cfg for the errors a hand-edited file commonly has.
func Validate(cfg *StoreConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cfg.URL == "" {
		return fmt.Errorf("url is required")
	}
	seen := make(map[string]bool, len(cfg.Collections))
	for _, c := range cfg.Collections {
		if c.Name == "" {
			return fmt.Errorf("collection with empty name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate collection %q", c.Name)
		}
		seen[c.Name] = true
		for _, ix := range c.Indexes {
			if len(ix.Properties) == 0 {
				return fmt.Errorf("collection %q: index declared with no properties", c.Name)
			}
		}
	}
	return nil
}

// Collections builds the []model.Collection SchemaEngine expects from cfg's
// file-declared collections, merged with extra Go-API-only collections
// (typically carrying ComputedIndex entries) keyed by name: an extra
// collection of the same name has its indexes appended to the file's.
func Collections(cfg *StoreConfig, extra ...model.Collection) []model.Collection {
	extraByName := make(map[string][]model.Index, len(extra))
	order := make([]string, 0, len(cfg.Collections))
	seen := make(map[string]bool, len(cfg.Collections))
	for _, c := range cfg.Collections {
		order = append(order, c.Name)
		seen[c.Name] = true
	}
	for _, c := range extra {
		extraByName[c.Name] = append(extraByName[c.Name], c.Indexes...)
		if !seen[c.Name] {
			order = append(order, c.Name)
			seen[c.Name] = true
		}
	}

	byName := make(map[string]model.Collection, len(order))
	for _, c := range cfg.Collections {
		mc := model.Collection{Name: c.Name}
		for _, ix := range c.Indexes {
			props := make([]model.IndexProperty, len(ix.Properties))
			for i, p := range ix.Properties {
				props[i] = model.IndexProperty{Kind: model.PropertyPath, Path: p}
			}
			mc.Indexes = append(mc.Indexes, model.Index{Properties: props, Projection: ix.Projection, Version: ix.Version})
		}
		byName[c.Name] = mc
	}
	for name, indexes := range extraByName {
		mc := byName[name]
		mc.Name = name
		mc.Indexes = append(mc.Indexes, indexes...)
		byName[name] = mc
	}

	out := make([]model.Collection, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}
