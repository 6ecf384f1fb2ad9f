package runcshim

import (
	"testing"
)

func newTestFlagStore(t *testing.T) *FlagStore {
	t.Helper()
	s, err := NewFlagStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFlagStore: %v", err)
	}
	return s
}

func TestFlagStore_CreateAndDefaults(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Create("default", "c1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !s.Has("default", "c1") {
		t.Fatalf("expected record to exist")
	}
	if s.GetSkipStart("default", "c1") {
		t.Fatalf("expected skip_start false on fresh record")
	}
	if s.GetExitCode("default", "c1") != nil {
		t.Fatalf("expected exit_code nil on fresh record")
	}
}

func TestFlagStore_CreateTwiceResets(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Create("default", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSkipStart("default", "c1", true); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("default", "c1"); err != nil {
		t.Fatal(err)
	}
	if s.GetSkipStart("default", "c1") {
		t.Fatalf("expected second create to reset skip_start")
	}
}

func TestFlagStore_DeleteMissingIsNotError(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Delete("default", "nope"); err != nil {
		t.Fatalf("expected delete of missing record to succeed, got %v", err)
	}
}

func TestFlagStore_ReadMissingReturnsDefaults(t *testing.T) {
	s := newTestFlagStore(t)
	if s.GetKeepResources("default", "nope") {
		t.Fatalf("expected false for missing record")
	}
}

func TestFlagStore_SetExitCode_NoOpWithoutRecord(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.SetExitCode("default", "nope", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Has("default", "nope") {
		t.Fatalf("expected no record to be created as a side effect")
	}
}

func TestFlagStore_SetExitCode(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Create("default", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetExitCode("default", "c1", 137); err != nil {
		t.Fatal(err)
	}
	code := s.GetExitCode("default", "c1")
	if code == nil || *code != 137 {
		t.Fatalf("got %v, want 137", code)
	}
}

func TestFlagStore_List(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Create("ns1", "c1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Create("ns2", "c2_with_underscore"); err != nil {
		t.Fatal(err)
	}
	entries, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
	}
}

func TestFlagStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.Create("default", "c1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := s.SetExitCode("default", "c1", 137); err != nil {
				t.Errorf("SetExitCode: %v", err)
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		if err := s.SetSkipStart("default", "c1", true); err != nil {
			t.Fatalf("SetSkipStart: %v", err)
		}
		// Readers must always observe a whole document, never a torn one.
		rec := s.read("default", "c1")
		if !rec.Valid() {
			t.Fatalf("observed invalid record mid-write: %+v", rec)
		}
	}
	<-done

	rec := s.read("default", "c1")
	if !rec.Valid() {
		t.Fatalf("final record invalid: %+v", rec)
	}
}

func TestFlagStore_WriteRejectsInvalidRecord(t *testing.T) {
	s := newTestFlagStore(t)
	if err := s.write("default", "c1", FlagRecord{}); err != ErrInvalidFlagRecord {
		t.Fatalf("expected ErrInvalidFlagRecord, got %v", err)
	}
}
