package runcshim

import (
	"context"
	"log/slog"
)

// Engine is the Lifecycle Engine (C6): it decides, for each invocation,
// whether to intercept or pass the command straight through to the real
// runtime, and drives the per-container state machine for the subcommands
// it does intercept.
type Engine struct {
	Runtime  *RuntimeLocator
	Config   *ConfigReader
	Overlay  *OverlayProbe
	Archiver CheckpointArchiver
	Flags    *FlagStore
	Proc     ProcOps
}

// NewEngine wires the default, OS-backed implementation of every component.
func NewEngine(fs FileOps, flags *FlagStore) *Engine {
	return &Engine{
		Runtime:  NewRuntimeLocator(fs),
		Config:   NewConfigReader(fs),
		Overlay:  NewOverlayProbe(fs),
		Archiver: NewArchiver(fs),
		Flags:    flags,
		Proc:     NewDefaultProcOps(),
	}
}

// Run is the engine's top-level routine. argv is the shim's own argv,
// including argv[0]. On a successful pass-through or checkpoint-exec this
// never returns: the process image has been replaced.
func (e *Engine) Run(ctx context.Context, argv []string) int {
	ctx, span := StartSpan(ctx, "engine.run")
	defer span.End()

	pc, err := ParseCommand(argv)
	if err != nil {
		slog.ErrorContext(ctx, "Run: failed to parse argv", "err", err)
		return 1
	}

	runtimePath, err := e.Runtime.Resolve()
	if err != nil {
		slog.ErrorContext(ctx, "Run: failed to resolve real runtime", "err", err)
		return 1
	}

	if !Intercepted[pc.Subcommand] || !e.Config.IsOptedIn(pc.Namespace, pc.ContainerID) {
		e.passThrough(ctx, runtimePath, argv)
		return 1 // unreachable on success; Exec only returns on failure
	}

	// delete must observe whether a record already exists, so it decides
	// before the ensure step below would create one.
	if pc.Subcommand == "delete" {
		return e.delete(ctx, runtimePath, argv, pc)
	}

	if !e.Flags.Has(pc.Namespace, pc.ContainerID) {
		if err := e.Flags.Create(pc.Namespace, pc.ContainerID); err != nil {
			slog.WarnContext(ctx, "Run: failed to create flag record, passing through", "err", err)
			e.passThrough(ctx, runtimePath, argv)
			return 1
		}
	}

	switch pc.Subcommand {
	case "create":
		return e.create(ctx, runtimePath, argv, pc)
	case "start":
		return e.start(ctx, runtimePath, argv, pc)
	case "checkpoint":
		return e.checkpoint(ctx, runtimePath, argv, pc)
	default:
		return e.resume(ctx, runtimePath, argv, pc)
	}
}

// passThrough replaces the current process image with the real runtime,
// argv[1:] unchanged. It only returns if the exec syscall itself failed.
func (e *Engine) passThrough(ctx context.Context, runtimePath string, argv []string) {
	slog.DebugContext(ctx, "passThrough", "runtime", runtimePath, "argv", argv)
	newArgv := append([]string{runtimePath}, argv[1:]...)
	if err := e.Proc.Exec(runtimePath, newArgv, nil); err != nil {
		slog.ErrorContext(ctx, "passThrough: exec failed", "err", err)
	}
}

func (e *Engine) create(ctx context.Context, runtimePath string, argv []string, pc ParsedCommand) int {
	ns, id := pc.Namespace, pc.ContainerID

	checkpointPath := e.Config.GetCheckpointPath(ns, id)
	upperdir := e.Overlay.Find(ns, id)
	if checkpointPath == "" || upperdir == "" {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if !e.Config.AddBindMount(ctx, ns, id) {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if !e.Archiver.Validate(checkpointPath) {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if !e.Archiver.Restore(ctx, checkpointPath, upperdir) {
		e.Archiver.Rollback(ctx, upperdir)
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	restoreArgv := buildRestoreArgv(runtimePath, pc, checkpointPath)
	code, err := e.Proc.Run(ctx, runtimePath, restoreArgv, nil)
	if err != nil || code != 0 {
		slog.WarnContext(ctx, "create: restore child failed", "code", code, "err", err)
		e.Archiver.Rollback(ctx, upperdir)
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if err := e.Flags.SetSkipStart(ns, id, true); err != nil {
		slog.WarnContext(ctx, "create: failed to set skip_start", "err", err)
	}
	return 0
}

// buildRestoreArgv builds: runtime path, global opts, "restore", subcommand
// opts augmented with --image-path and (if absent) --detach, then the
// container id.
func buildRestoreArgv(runtimePath string, pc ParsedCommand, checkpointPath string) []string {
	argv := []string{runtimePath}
	argv = appendOpts(argv, pc.GlobalOpts)
	argv = append(argv, "restore")
	subOpts := cloneOpts(pc.SubOpts)
	subOpts["--image-path"] = checkpointPath
	if _, ok := subOpts["--detach"]; !ok {
		subOpts["--detach"] = ""
	}
	argv = appendOpts(argv, subOpts)
	argv = append(argv, pc.ContainerID)
	return argv
}

func (e *Engine) start(ctx context.Context, runtimePath string, argv []string, pc ParsedCommand) int {
	ns, id := pc.Namespace, pc.ContainerID
	if e.Flags.GetSkipStart(ns, id) {
		if err := e.Flags.SetSkipStart(ns, id, false); err != nil {
			slog.WarnContext(ctx, "start: failed to clear skip_start", "err", err)
		}
		return 0
	}
	e.passThrough(ctx, runtimePath, argv)
	return 1
}

func (e *Engine) checkpoint(ctx context.Context, runtimePath string, argv []string, pc ParsedCommand) int {
	ns, id := pc.Namespace, pc.ContainerID

	checkpointPath := e.Config.GetCheckpointPath(ns, id)
	upperdir := e.Overlay.Find(ns, id)
	if checkpointPath == "" || upperdir == "" {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if !e.Archiver.Save(ctx, upperdir, checkpointPath) {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if err := e.Flags.SetSkipResume(ns, id, true); err != nil {
		slog.WarnContext(ctx, "checkpoint: failed to set skip_resume", "err", err)
	}
	if err := e.Flags.SetKeepResources(ns, id, true); err != nil {
		slog.WarnContext(ctx, "checkpoint: failed to set keep_resources", "err", err)
	}

	checkpointArgv := buildCheckpointArgv(runtimePath, pc, checkpointPath)
	if err := e.Proc.Exec(runtimePath, checkpointArgv, nil); err != nil {
		slog.ErrorContext(ctx, "checkpoint: exec failed", "err", err)
	}
	return 1
}

// buildCheckpointArgv builds: runtime path, global opts, "checkpoint",
// subcommand opts minus --work-path/--leave-running, with --image-path
// substituted for the checkpoint path, then the container id.
func buildCheckpointArgv(runtimePath string, pc ParsedCommand, checkpointPath string) []string {
	argv := []string{runtimePath}
	argv = appendOpts(argv, pc.GlobalOpts)
	argv = append(argv, "checkpoint")
	subOpts := cloneOpts(pc.SubOpts)
	delete(subOpts, "--work-path")
	delete(subOpts, "--leave-running")
	subOpts["--image-path"] = checkpointPath
	argv = appendOpts(argv, subOpts)
	argv = append(argv, pc.ContainerID)
	return argv
}

func (e *Engine) resume(ctx context.Context, runtimePath string, argv []string, pc ParsedCommand) int {
	ns, id := pc.Namespace, pc.ContainerID
	if e.Flags.GetSkipResume(ns, id) {
		if err := e.Flags.SetSkipResume(ns, id, false); err != nil {
			slog.WarnContext(ctx, "resume: failed to clear skip_resume", "err", err)
		}
		return 0
	}
	e.passThrough(ctx, runtimePath, argv)
	return 1
}

func (e *Engine) delete(ctx context.Context, runtimePath string, argv []string, pc ParsedCommand) int {
	ns, id := pc.Namespace, pc.ContainerID

	if !e.Flags.Has(ns, id) {
		e.passThrough(ctx, runtimePath, argv)
		return 1
	}

	if !e.Flags.GetKeepResources(ns, id) {
		checkpointPath := e.Config.GetCheckpointPath(ns, id)
		if checkpointPath != "" && !e.Archiver.Cleanup(checkpointPath) {
			slog.WarnContext(ctx, "delete: failed to clean up checkpoint directory", "path", checkpointPath)
		}
		if !e.Config.DeleteWorkDirectory(ns, id) {
			slog.WarnContext(ctx, "delete: failed to clean up work directory", "ns", ns, "id", id)
		}
	}

	if err := e.Flags.Delete(ns, id); err != nil {
		slog.WarnContext(ctx, "delete: failed to remove flag record", "err", err)
	}

	e.passThrough(ctx, runtimePath, argv)
	return 1
}

func cloneOpts(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func appendOpts(argv []string, opts map[string]string) []string {
	for k, v := range opts {
		if v == "" {
			argv = append(argv, k)
			continue
		}
		argv = append(argv, k, v)
	}
	return argv
}
