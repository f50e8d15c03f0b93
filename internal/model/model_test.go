package model

import "testing"

func TestFlatten(t *testing.T) {
	doc := Document{
		"name": "alice",
		"address": map[string]any{
			"city": "nyc",
			"zip":  "10001",
		},
		"tags": []any{"a", "b"},
	}
	flat := Flatten(doc)

	if flat["name"] != "alice" {
		t.Errorf("flat[name] = %v", flat["name"])
	}
	if flat["address.city"] != "nyc" {
		t.Errorf("flat[address.city] = %v", flat["address.city"])
	}
	tags, ok := flat["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("flat[tags] = %v, want []any{a,b}", flat["tags"])
	}
	if _, present := flat["address"]; present {
		t.Error("flattened intermediate object should not itself be present as a leaf")
	}
}

func TestExtractPathMissing(t *testing.T) {
	flat := Flatten(Document{"a": 1.0})
	if _, ok := ExtractPath(flat, "b"); ok {
		t.Error("expected missing path to report !ok")
	}
}

func TestValidDocKey(t *testing.T) {
	cases := []struct {
		key  any
		want bool
	}{
		{"alice", true},
		{"", false},
		{1.0, true},
		{nil, false},
		{true, false},
	}
	for _, c := range cases {
		if got := ValidDocKey(c.key); got != c.want {
			t.Errorf("ValidDocKey(%v) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestIndexNameAndKeys(t *testing.T) {
	ix := Index{Properties: []IndexProperty{{Path: "lastName"}, {Path: "firstName"}}}
	if got, want := ix.Name(), "lastName+firstName"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestCollectionFindIndexForQueryAndOrder(t *testing.T) {
	c := Collection{Indexes: []Index{
		{Properties: []IndexProperty{{Path: "status"}, {Path: "createdAt"}}},
		{Properties: []IndexProperty{{Path: "email"}}},
	}}

	ix, ok := c.FindIndexForQueryAndOrder([]string{"status"}, []string{"createdAt"})
	if !ok || ix.Name() != "status+createdAt" {
		t.Fatalf("expected status+createdAt index, got %+v, %v", ix, ok)
	}

	ix, ok = c.FindIndexForQueryAndOrder(nil, []string{"email"})
	if !ok || ix.Name() != "email" {
		t.Fatalf("expected email index for order-only query, got %+v, %v", ix, ok)
	}

	if _, ok := c.FindIndexForQueryAndOrder([]string{"nope"}, nil); ok {
		t.Fatal("expected no index to satisfy an unknown property")
	}
}

func TestIndexSatisfiesFields(t *testing.T) {
	ix := Index{Projection: []string{"name", "email"}}
	if !ix.SatisfiesFields([]string{"name"}) {
		t.Error("expected subset to satisfy")
	}
	if ix.SatisfiesFields([]string{"name", "age"}) {
		t.Error("expected superset to not satisfy")
	}
	if !ix.SatisfiesFields(nil) {
		t.Error("expected empty field list to trivially satisfy")
	}
}
