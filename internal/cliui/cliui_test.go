package cliui

import (
	"strings"
	"testing"

	"github.com/object-layer/document-store/internal/schema"
	"github.com/object-layer/document-store/internal/storeconfig"
)

func TestRenderStatisticsIncludesCounts(t *testing.T) {
	out := RenderStatistics("catalog", schema.Statistics{
		PairsCount:              42,
		CollectionsCount:        3,
		RemovedCollectionsCount: 1,
		IndexesCount:            5,
	})
	for _, want := range []string{"catalog", "42", "3", "1", "5"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderStatistics output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDescriptionListsCollectionsAndIndexes(t *testing.T) {
	cfg := &storeconfig.StoreConfig{
		Name: "catalog",
		URL:  "sqlite://catalog.db",
		Collections: []storeconfig.CollectionConfig{
			{
				Name: "products",
				Indexes: []storeconfig.IndexConfig{
					{Properties: []string{"sku"}},
					{Properties: []string{"category"}, Projection: []string{"name"}},
				},
			},
		},
	}
	out, err := RenderDescription(cfg)
	if err != nil {
		t.Fatalf("RenderDescription: %v", err)
	}
	for _, want := range []string{"catalog", "products", "sku", "category", "name"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderDescription output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDescriptionHandlesNoCollections(t *testing.T) {
	cfg := &storeconfig.StoreConfig{Name: "empty", URL: "sqlite://empty.db"}
	out, err := RenderDescription(cfg)
	if err != nil {
		t.Fatalf("RenderDescription: %v", err)
	}
	if !strings.Contains(out, "empty") {
		t.Errorf("RenderDescription output missing store name:\n%s", out)
	}
}
