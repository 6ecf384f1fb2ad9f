package runcshim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// FlagStore persists one FlagRecord per opted-in container under a
// process-wide state root. Readers take a shared advisory lock for the
// duration of the read; writers take an exclusive lock for the duration of
// the write, so concurrent shim invocations, the event listener, and the
// administrative CLI never observe a torn document.
type FlagStore struct {
	stateDir string
}

// NewFlagStore returns a FlagStore rooted at dir, creating it with 0755 on
// first use.
func NewFlagStore(dir string) (*FlagStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flag store: create state dir %s: %w", dir, err)
	}
	return &FlagStore{stateDir: dir}, nil
}

func (s *FlagStore) path(ns, id string) string {
	return filepath.Join(s.stateDir, fmt.Sprintf("%s_%s.json", ns, id))
}

// Has reports whether a record exists for (ns, id).
func (s *FlagStore) Has(ns, id string) bool {
	_, err := os.Stat(s.path(ns, id))
	return err == nil
}

// Create overwrites any existing record with a freshly initialized one. It
// is not an error to create twice: the second call simply resets the flags.
func (s *FlagStore) Create(ns, id string) error {
	return s.write(ns, id, NewFlagRecord())
}

// Delete removes the record for (ns, id). A missing file is not an error.
func (s *FlagStore) Delete(ns, id string) error {
	err := os.Remove(s.path(ns, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("flag store: delete %s/%s: %w", ns, id, err)
	}
	return nil
}

// read returns the record for (ns, id), or a well-defined zero record (all
// flags false, exit_code nil) if the file is missing, unreadable, unlockable,
// malformed, or fails Valid. Flag-store read errors must never surface as
// errors to lifecycle decisions.
func (s *FlagStore) read(ns, id string) FlagRecord {
	def := FlagRecord{}
	f, err := os.Open(s.path(ns, id))
	if err != nil {
		return def
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		slog.Warn("FlagStore.read: failed to acquire shared lock", "ns", ns, "id", id, "err", err)
		return def
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	var rec FlagRecord
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		slog.Warn("FlagStore.read: failed to parse record", "ns", ns, "id", id, "err", err)
		return def
	}
	if !rec.Valid() {
		slog.Warn("FlagStore.read: invalid record", "ns", ns, "id", id)
		return def
	}
	return rec
}

// write persists rec for (ns, id) under an exclusive lock, stamping
// last_updated with the current time. rec must already validate: this is a
// programmer error otherwise, never a runtime condition.
func (s *FlagStore) write(ns, id string, rec FlagRecord) error {
	rec.LastUpdated = nowISO8601()
	if !rec.Valid() {
		return ErrInvalidFlagRecord
	}

	path := s.path(ns, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("flag store: open %s: %w", path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("flag store: lock %s: %w", path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	// Truncate only once the exclusive lock is held, so a reader never sees
	// the emptied file.
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("flag store: truncate %s: %w", path, err)
	}

	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("flag store: encode %s: %w", path, err)
	}
	return nil
}

// mutate reads the current record (creating a fresh one if none exists),
// applies fn, and writes the result back, all while holding no locks across
// the read/modify/write (the write still takes its own exclusive lock; two
// concurrent mutations of the same container serialize at that point, and
// the supervisor serializes lifecycle commands for any one container, so
// this gap is not exercised in practice).
func (s *FlagStore) mutate(ns, id string, fn func(*FlagRecord)) error {
	rec := s.read(ns, id)
	if !rec.Valid() {
		rec = NewFlagRecord()
	}
	fn(&rec)
	return s.write(ns, id, rec)
}

func (s *FlagStore) GetSkipStart(ns, id string) bool     { return s.read(ns, id).SkipStart }
func (s *FlagStore) GetSkipResume(ns, id string) bool    { return s.read(ns, id).SkipResume }
func (s *FlagStore) GetKeepResources(ns, id string) bool { return s.read(ns, id).KeepResources }
func (s *FlagStore) GetExitCode(ns, id string) *int      { return s.read(ns, id).ExitCode }

func (s *FlagStore) SetSkipStart(ns, id string, v bool) error {
	return s.mutate(ns, id, func(r *FlagRecord) { r.SkipStart = v })
}

func (s *FlagStore) SetSkipResume(ns, id string, v bool) error {
	return s.mutate(ns, id, func(r *FlagRecord) { r.SkipResume = v })
}

func (s *FlagStore) SetKeepResources(ns, id string, v bool) error {
	return s.mutate(ns, id, func(r *FlagRecord) { r.KeepResources = v })
}

// SetExitCode is called only by the event listener, the sole writer of
// exit_code. It is a no-op if no record
// exists: an exit event for a container the shim never intercepted carries
// nothing to record.
func (s *FlagStore) SetExitCode(ns, id string, code int) error {
	if !s.Has(ns, id) {
		return nil
	}
	return s.mutate(ns, id, func(r *FlagRecord) { r.ExitCode = &code })
}

// List enumerates the state root by filename, splitting each on the single
// underscore separating namespace from id.
func (s *FlagStore) List() ([][2]string, error) {
	entries, err := os.ReadDir(s.stateDir)
	if err != nil {
		return nil, fmt.Errorf("flag store: list %s: %w", s.stateDir, err)
	}
	var out [][2]string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, [2]string{parts[0], parts[1]})
	}
	return out, nil
}
