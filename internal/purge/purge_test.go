package purge

import (
	"path/filepath"
	"testing"
	"time"
)

func TestParseBeforeRelative(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got, err := ParseBefore("3 days ago", now)
	if err != nil {
		t.Fatalf("ParseBefore: %v", err)
	}
	want := now.AddDate(0, 0, -3)
	if got.Year() != want.Year() || got.YearDay() != want.YearDay() {
		t.Errorf("got %v, want a date around %v", got, want)
	}
}

func TestParseBeforeRejectsGarbage(t *testing.T) {
	if _, err := ParseBefore("not a time at all", time.Now()); err == nil {
		t.Error("expected an error for unparseable input")
	}
}

func TestLedgerObserveAndDue(t *testing.T) {
	t0 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	l := Ledger{}
	l = l.Observe([]string{"archived_orders"}, t0)
	if l["archived_orders"] != t0 {
		t.Fatalf("expected archived_orders to be first-seen at %v, got %v", t0, l["archived_orders"])
	}

	t1 := t0.Add(24 * time.Hour)
	l = l.Observe([]string{"archived_orders", "old_sessions"}, t1)
	if l["archived_orders"] != t0 {
		t.Error("Observe must not overwrite an existing first-seen timestamp")
	}
	if l["old_sessions"] != t1 {
		t.Error("Observe must record a new name's first-seen timestamp")
	}

	cutoff := t0.Add(12 * time.Hour)
	due := l.Due([]string{"archived_orders", "old_sessions"}, cutoff)
	if len(due) != 1 || due[0] != "archived_orders" {
		t.Errorf("Due = %v, want [archived_orders]", due)
	}
	if AllDue([]string{"archived_orders", "old_sessions"}, due) {
		t.Error("AllDue should be false when only one of two removed collections is due")
	}
	if !AllDue([]string{"archived_orders"}, due) {
		t.Error("AllDue should be true when every removed collection is due")
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")

	l := Ledger{"orders": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := l.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadLedger(path)
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if !loaded["orders"].Equal(l["orders"]) {
		t.Errorf("orders = %v, want %v", loaded["orders"], l["orders"])
	}
}

func TestLoadLedgerMissingFileReturnsEmpty(t *testing.T) {
	l, err := LoadLedger(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if len(l) != 0 {
		t.Errorf("expected empty ledger, got %v", l)
	}
}
