package runcshim

import (
	"archive/tar"
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// dumpFinishedMarker is the literal phrase the underlying runtime writes as
// the final line of a successful dump.log.
const dumpFinishedMarker = "Dumping finished successfully"

// checkpointArchiveName is the file within a checkpoint directory that holds
// the packed overlay upperdir.
const checkpointArchiveName = "container_files.tar"

// CheckpointArchiver is the interface the lifecycle engine depends on, so
// tests can substitute a fake instead of exercising real tar/gzip I/O on
// disk. Archiver is the production implementation.
type CheckpointArchiver interface {
	Validate(dir string) bool
	Save(ctx context.Context, upperdir, dir string) bool
	Restore(ctx context.Context, dir, upperdir string) bool
	Rollback(ctx context.Context, upperdir string)
	Cleanup(dir string) bool
}

// Archiver packs and unpacks the writable overlay layer of a container into
// a checkpoint directory alongside the runtime's own dump.log.
type Archiver struct {
	fs FileOps
}

// NewArchiver returns an Archiver backed by fs.
func NewArchiver(fs FileOps) *Archiver {
	return &Archiver{fs: fs}
}

// Validate reports whether dir/dump.log exists and its final non-empty line
// contains dumpFinishedMarker.
func (a *Archiver) Validate(dir string) bool {
	raw, err := a.fs.ReadFile(filepath.Join(dir, "dump.log"))
	if err != nil {
		return false
	}
	lastLine := ""
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}
	return strings.Contains(lastLine, dumpFinishedMarker)
}

// Save writes dir/container_files.tar as a gzipped tar of upperdir. The
// tar's root entry is the leaf name of upperdir, stripped again on restore.
func (a *Archiver) Save(ctx context.Context, upperdir, dir string) bool {
	if err := a.fs.MkdirAll(dir, 0o755); err != nil {
		slog.WarnContext(ctx, "Archiver.Save: failed to create checkpoint dir", "dir", dir, "err", err)
		return false
	}
	archivePath := filepath.Join(dir, checkpointArchiveName)
	out, err := os.Create(archivePath)
	if err != nil {
		slog.WarnContext(ctx, "Archiver.Save: failed to create archive", "path", archivePath, "err", err)
		return false
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	root := filepath.Base(upperdir)
	err = filepath.Walk(upperdir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(upperdir, path)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = filepath.Join(root, rel)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Archiver.Save: failed to pack upperdir", "upperdir", upperdir, "err", err)
		return false
	}
	return true
}

// Restore extracts dir/container_files.tar into upperdir, stripping the
// first path component of every entry. If upperdir/fs exists it is first
// moved aside to fs.bak, which is removed on success; on failure the caller
// is responsible for invoking Rollback.
func (a *Archiver) Restore(ctx context.Context, dir, upperdir string) bool {
	archivePath := filepath.Join(dir, checkpointArchiveName)
	if !a.fs.Exists(dir) || !a.fs.Exists(archivePath) {
		return false
	}

	fsPath := filepath.Join(upperdir, "fs")
	bakPath := filepath.Join(upperdir, "fs.bak")
	if a.fs.Exists(fsPath) {
		if a.fs.Exists(bakPath) {
			if err := a.fs.RemoveAll(bakPath); err != nil {
				slog.WarnContext(ctx, "Archiver.Restore: failed to clear stale fs.bak", "err", err)
				return false
			}
		}
		if err := a.fs.Rename(fsPath, bakPath); err != nil {
			slog.WarnContext(ctx, "Archiver.Restore: failed to move fs aside", "err", err)
			return false
		}
	}

	if err := a.extract(archivePath, upperdir); err != nil {
		slog.WarnContext(ctx, "Archiver.Restore: extraction failed", "err", err)
		return false
	}

	if a.fs.Exists(bakPath) {
		if err := a.fs.RemoveAll(bakPath); err != nil {
			slog.WarnContext(ctx, "Archiver.Restore: failed to remove fs.bak after extraction", "err", err)
		}
	}
	return true
}

func (a *Archiver) extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := stripFirstComponent(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func stripFirstComponent(name string) string {
	name = strings.TrimPrefix(name, "/")
	parts := strings.SplitN(name, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Rollback unconditionally and recursively deletes upperdir. It is only
// ever called by the lifecycle engine after a failed restore.
func (a *Archiver) Rollback(ctx context.Context, upperdir string) {
	if err := a.fs.RemoveAll(upperdir); err != nil {
		slog.WarnContext(ctx, "Archiver.Rollback: failed to remove upperdir", "upperdir", upperdir, "err", err)
	}
}

// Cleanup recursively deletes dir. Idempotent: a missing dir is success.
func (a *Archiver) Cleanup(dir string) bool {
	if !a.fs.Exists(dir) {
		return true
	}
	if err := a.fs.RemoveAll(dir); err != nil {
		slog.Warn("Archiver.Cleanup: failed to remove checkpoint dir", "dir", dir, "err", err)
		return false
	}
	return true
}
