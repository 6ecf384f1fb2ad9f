package ctrctl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// TaskOps abstracts the shellouts the finalize command drives: the state
// probe against the real runtime binary, and checkpoint/kill/remove against
// ctr. Tests substitute a fake instead of invoking real binaries.
type TaskOps interface {
	State(ctx context.Context, ns, id string) (string, error)
	Checkpoint(ctx context.Context, ns, id, dest string, opts CheckpointTask) error
	KillTask(ctx context.Context, ns, id string, opts KillTask) error
	RemoveTask(ctx context.Context, ns, id string) error
	RemoveContainer(ctx context.Context, ns, id string) error
}

type execTaskOps struct {
	ctrPath     string
	runtimePath string
	sudo        bool
}

// NewTaskOps returns a TaskOps shelling out to the ctr binary on PATH for
// checkpoint/kill/remove, and to the real low-level runtime at runtimePath
// for the state probe. sudo matches the finalize privilege model: the
// command runs as an operator invoking sudo, not as root directly.
func NewTaskOps(runtimePath string, sudo bool) TaskOps {
	return &execTaskOps{ctrPath: "ctr", runtimePath: runtimePath, sudo: sudo}
}

func (e *execTaskOps) args(ns string, rest ...string) []string {
	base := []string{e.ctrPath, "--namespace", ns}
	base = append(base, rest...)
	if e.sudo {
		return append([]string{"sudo"}, base...)
	}
	return base
}

func (e *execTaskOps) run(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	slog.InfoContext(ctx, "ctrctl.run", "cmd", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w (output: %s)", strings.Join(argv, " "), err, out)
	}
	return out, nil
}

// State queries the container's state (running, stopped, created, ...) by
// shelling out to the real runtime's own `state` subcommand, with --root
// pointed at the namespace's runtime directory. A container the runtime no
// longer knows about reports as "" rather than an error, so the caller can
// skip it the way it skips any non-running container.
func (e *execTaskOps) State(ctx context.Context, ns, id string) (string, error) {
	argv := []string{e.runtimePath, "--root", "/run/containerd/runc/" + ns, "state", id}
	if e.sudo {
		argv = append([]string{"sudo"}, argv...)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	slog.InfoContext(ctx, "ctrctl.State", "cmd", strings.Join(cmd.Args, " "))
	out, err := cmd.Output()
	if err != nil {
		if _, ran := err.(*exec.ExitError); ran {
			slog.WarnContext(ctx, "ctrctl.State: runtime state failed", "ns", ns, "id", id, "err", err)
			return "", nil
		}
		return "", fmt.Errorf("ctrctl.State: %s: %w", strings.Join(argv, " "), err)
	}
	return parseState(out)
}

// parseState extracts the status field from the runtime's state JSON.
func parseState(out []byte) (string, error) {
	var state struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(out, &state); err != nil {
		return "", fmt.Errorf("ctrctl.State: parse state output: %w", err)
	}
	return strings.ToLower(state.Status), nil
}

func (e *execTaskOps) Checkpoint(ctx context.Context, ns, id, dest string, opts CheckpointTask) error {
	argv := e.args(ns, "containers", "checkpoint")
	argv = append(argv, ToArgs(&opts)...)
	argv = append(argv, id, dest)
	_, err := e.run(ctx, argv)
	return err
}

func (e *execTaskOps) KillTask(ctx context.Context, ns, id string, opts KillTask) error {
	argv := e.args(ns, "task", "kill")
	argv = append(argv, ToArgs(&opts)...)
	argv = append(argv, id)
	_, err := e.run(ctx, argv)
	return err
}

func (e *execTaskOps) RemoveTask(ctx context.Context, ns, id string) error {
	_, err := e.run(ctx, e.args(ns, "task", "rm", id))
	return err
}

func (e *execTaskOps) RemoveContainer(ctx context.Context, ns, id string) error {
	_, err := e.run(ctx, e.args(ns, "container", "rm", id))
	return err
}
