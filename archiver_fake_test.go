package runcshim

import "context"

// fakeArchiver is an in-memory CheckpointArchiver for engine tests, so the
// engine's dispatch logic can be exercised without touching real tar/gzip
// I/O (that machinery has its own direct test coverage in archive_test.go).
type fakeArchiver struct {
	validateDirs map[string]bool
	savedTo      []string
	restoreOK    bool
	restoreCalls []string
	rolledBack   []string
	cleanedUp    []string
	dirsPresent  map[string]bool
}

func newFakeArchiver() *fakeArchiver {
	return &fakeArchiver{
		validateDirs: map[string]bool{},
		dirsPresent:  map[string]bool{},
	}
}

func (f *fakeArchiver) Validate(dir string) bool {
	return f.validateDirs[dir]
}

func (f *fakeArchiver) Save(ctx context.Context, upperdir, dir string) bool {
	f.savedTo = append(f.savedTo, dir)
	f.dirsPresent[dir] = true
	return true
}

func (f *fakeArchiver) Restore(ctx context.Context, dir, upperdir string) bool {
	f.restoreCalls = append(f.restoreCalls, dir)
	return f.restoreOK
}

func (f *fakeArchiver) Rollback(ctx context.Context, upperdir string) {
	f.rolledBack = append(f.rolledBack, upperdir)
}

func (f *fakeArchiver) Cleanup(dir string) bool {
	f.cleanedUp = append(f.cleanedUp, dir)
	delete(f.dirsPresent, dir)
	return true
}
