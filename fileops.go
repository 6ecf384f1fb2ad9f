package runcshim

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// FileOps abstracts the filesystem calls the shim's components make, so that
// tests can substitute a fake instead of touching the real filesystem.
type FileOps interface {
	MkdirAll(path string, perm os.FileMode) error
	Copy(ctx context.Context, src, dst string) error
	Stat(path string) (os.FileInfo, error)
	Exists(path string) bool
	RemoveAll(path string) error
	WriteFile(path string, data []byte, perm os.FileMode) error
	ReadFile(path string) ([]byte, error)
	Rename(oldpath, newpath string) error
}

type defaultFileOps struct{}

// NewDefaultFileOps returns a FileOps backed by the real filesystem.
func NewDefaultFileOps() FileOps {
	return &defaultFileOps{}
}

func (f *defaultFileOps) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Copy shells out to cp -p rather than streaming through io.Copy so that
// ownership and mode bits on the backed-up runtime binary are preserved the
// way the installer needs.
func (f *defaultFileOps) Copy(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "cp", "-p", src, dst)
	slog.InfoContext(ctx, "FileOps.Copy", "cmd", strings.Join(cmd.Args, " "))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("copy failed: %w (output: %s)", err, output)
	}
	return nil
}

func (f *defaultFileOps) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (f *defaultFileOps) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *defaultFileOps) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (f *defaultFileOps) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (f *defaultFileOps) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *defaultFileOps) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
