package runcshim

import (
	"context"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ProcOps abstracts the two ways the lifecycle engine hands control to the
// real runtime binary: replacing the current process image (pass-through,
// checkpoint-exec) or spawning a child and waiting for it (the restore step
// of create, which must observe an exit status before deciding how to
// proceed). Tests substitute a fake that records calls instead of exec'ing.
type ProcOps interface {
	// Exec replaces the calling process's image with path, argv, envv. On
	// success it never returns.
	Exec(path string, argv []string, envv []string) error
	// Run spawns path with argv, envv, inherits the standard streams, waits
	// for it to exit, and returns its exit code.
	Run(ctx context.Context, path string, argv []string, envv []string) (int, error)
}

type defaultProcOps struct{}

// NewDefaultProcOps returns a ProcOps backed by the real OS.
func NewDefaultProcOps() ProcOps {
	return &defaultProcOps{}
}

func (defaultProcOps) Exec(path string, argv []string, envv []string) error {
	return unix.Exec(path, argv, envv)
}

func (defaultProcOps) Run(ctx context.Context, path string, argv []string, envv []string) (int, error) {
	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Env = envv
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
