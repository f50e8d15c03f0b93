package schema

import (
	"context"
	"testing"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/kvs/memkvs"
	"github.com/object-layer/document-store/internal/model"
)

func TestInitializeCreatesRecordOnFirstUse(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")
	declared := []model.Collection{{Name: "users"}}
	e := New(codec, "s", declared, nil)

	if err := e.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	r, found, err := readRecord(ctx, kv, codec)
	if err != nil || !found {
		t.Fatalf("readRecord: found=%v, err=%v", found, err)
	}
	if r.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", r.Version, CurrentVersion)
	}
	if len(r.Collections) != 1 || r.Collections[0].Name != "users" {
		t.Errorf("Collections = %+v", r.Collections)
	}

	stats, err := e.GetStatistics(ctx, kv)
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.PairsCount != 1 {
		t.Errorf("PairsCount = %d, want 1 (just the schema record)", stats.PairsCount)
	}
	if stats.CollectionsCount != 1 {
		t.Errorf("CollectionsCount = %d, want 1", stats.CollectionsCount)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")
	declared := []model.Collection{{Name: "users"}}
	e := New(codec, "s", declared, nil)

	if err := e.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	if err := e.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
}

func TestInitializeAddsNewCollectionAndIndex(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	e1 := New(codec, "s", []model.Collection{{Name: "users"}}, nil)
	if err := e1.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v1): %v", err)
	}

	declaredV2 := []model.Collection{
		{Name: "users", Indexes: []model.Index{{Properties: []model.IndexProperty{{Path: "status"}}}}},
		{Name: "orders"},
	}
	e2 := New(codec, "s", declaredV2, nil)
	if err := e2.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v2): %v", err)
	}

	r, _, err := readRecord(ctx, kv, codec)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if len(r.Collections) != 2 {
		t.Fatalf("expected 2 collections after migration, got %+v", r.Collections)
	}
	usersRec := r.findCollection("users")
	if usersRec == nil || len(usersRec.Indexes) != 1 {
		t.Fatalf("expected the new index to be recorded, got %+v", usersRec)
	}
}

func TestInitializeRebuildsIndexOverExistingDocuments(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	e1 := New(codec, "s", []model.Collection{{Name: "users"}}, nil)
	if err := e1.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v1): %v", err)
	}
	if err := kv.Put(ctx, codec.DocKey("users", "u1"), []byte(`{"status":"active"}`), kvs.PutOptions{CreateIfMissing: true}); err != nil {
		t.Fatalf("seeding document: %v", err)
	}

	declaredV2 := []model.Collection{
		{Name: "users", Indexes: []model.Index{{Properties: []model.IndexProperty{{Path: "status"}}}}},
	}
	e2 := New(codec, "s", declaredV2, nil)
	if err := e2.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v2): %v", err)
	}

	rows, err := kv.Find(ctx, kvs.FindOptions{Prefix: codec.IndexPrefix("users", "status")})
	if err != nil {
		t.Fatalf("Find index entries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the pre-existing document to be indexed by the new index, got %d entries", len(rows))
	}
}

func TestInitializeMarksDroppedCollectionAsRemoved(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	e1 := New(codec, "s", []model.Collection{{Name: "users"}, {Name: "orders"}}, nil)
	if err := e1.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v1): %v", err)
	}

	e2 := New(codec, "s", []model.Collection{{Name: "users"}}, nil)
	if err := e2.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v2): %v", err)
	}

	r, _, err := readRecord(ctx, kv, codec)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	ordersRec := r.findCollection("orders")
	if ordersRec == nil || !ordersRec.HasBeenRemoved {
		t.Fatalf("expected orders to be marked removed, got %+v", ordersRec)
	}

	stats, err := e2.GetStatistics(ctx, kv)
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.RemovedCollectionsCount != 1 {
		t.Errorf("RemovedCollectionsCount = %d, want 1", stats.RemovedCollectionsCount)
	}
}

func TestReAddingRemovedCollectionFails(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	e1 := New(codec, "s", []model.Collection{{Name: "users"}, {Name: "orders"}}, nil)
	if err := e1.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v1): %v", err)
	}
	e2 := New(codec, "s", []model.Collection{{Name: "users"}}, nil)
	if err := e2.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v2): %v", err)
	}

	e3 := New(codec, "s", []model.Collection{{Name: "users"}, {Name: "orders"}}, nil)
	err := e3.Initialize(ctx, kv, false)
	if !IsReAddNotSupported(err) {
		t.Fatalf("expected IsReAddNotSupported, got %v", err)
	}
}

func TestInitializeRefusesInsideTransaction(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")
	e := New(codec, "s", nil, nil)

	if err := e.Initialize(ctx, kv, true); err == nil {
		t.Fatal("expected an error when initializing inside a transaction")
	}
}

func TestRemoveCollectionsMarkedAsRemoved(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	e1 := New(codec, "s", []model.Collection{{Name: "users"}, {Name: "orders"}}, nil)
	if err := e1.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v1): %v", err)
	}
	e2 := New(codec, "s", []model.Collection{{Name: "users"}}, nil)
	if err := e2.Initialize(ctx, kv, false); err != nil {
		t.Fatalf("Initialize (v2): %v", err)
	}

	purged, err := e2.RemoveCollectionsMarkedAsRemoved(ctx, kv)
	if err != nil {
		t.Fatalf("RemoveCollectionsMarkedAsRemoved: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}

	r, _, err := readRecord(ctx, kv, codec)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if r.findCollection("orders") != nil {
		t.Fatal("expected orders record to be gone entirely after the purge")
	}
}

func TestCannotDowngrade(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	r := &Record{Name: "s", Version: CurrentVersion + 1}
	if err := kv.Put(ctx, codec.SchemaKey(), mustMarshal(t, r), kvs.PutOptions{CreateIfMissing: true}); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	e := New(codec, "s", nil, nil)
	err := e.Initialize(ctx, kv, false)
	if !IsCannotDowngrade(err) {
		t.Fatalf("expected IsCannotDowngrade, got %v", err)
	}
}

func TestInitializeRejectsEmptyComputedPropertyName(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")
	declared := []model.Collection{{
		Name: "users",
		Indexes: []model.Index{{
			Properties: []model.IndexProperty{{Kind: model.PropertyComputed, Path: ""}},
		}},
	}}
	e := New(codec, "s", declared, nil)

	err := e.Initialize(ctx, kv, false)
	if !IsInvalidIndex(err) {
		t.Fatalf("Initialize error = %v, want IsInvalidIndex", err)
	}
}

func TestLegacySchemaRefused(t *testing.T) {
	ctx := context.Background()
	kv := memkvs.New()
	codec := keycodec.New("s")

	r := &Record{Name: "s", Version: 1}
	if err := kv.Put(ctx, codec.SchemaKey(), mustMarshal(t, r), kvs.PutOptions{CreateIfMissing: true}); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	e := New(codec, "s", nil, nil)
	err := e.Initialize(ctx, kv, false)
	if !IsLegacySchema(err) {
		t.Fatalf("expected IsLegacySchema, got %v", err)
	}
}

func mustMarshal(t *testing.T, r *Record) []byte {
	t.Helper()
	b, err := marshalRecord(r)
	if err != nil {
		t.Fatalf("marshalRecord: %v", err)
	}
	return b
}
