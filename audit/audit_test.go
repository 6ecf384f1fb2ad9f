package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRecordStepAndForContainer(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.RecordStep(ctx, "default", "c1", "checkpoint", true, "")
	store.RecordStep(ctx, "default", "c1", "kill", false, "boom")

	recs, err := store.ForContainer(ctx, "default", "c1")
	if err != nil {
		t.Fatalf("ForContainer: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Step != "checkpoint" || !recs[0].OK {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].Step != "kill" || recs[1].OK || recs[1].Detail != "boom" {
		t.Fatalf("unexpected second record: %+v", recs[1])
	}
}

func TestForContainerEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	recs, err := store.ForContainer(context.Background(), "default", "missing")
	if err != nil {
		t.Fatalf("ForContainer: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}
