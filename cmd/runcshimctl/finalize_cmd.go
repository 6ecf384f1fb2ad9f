package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/container-tools/runcshim"
	"github.com/container-tools/runcshim/audit"
	"github.com/container-tools/runcshim/ctrctl"
)

// FinalizeCmd enumerates every flag-recorded container and, for each one
// still running, checkpoints it, kills its task, removes the task, and
// removes the container, fanned out with bounded concurrency.
type FinalizeCmd struct {
	Sudo          bool   `help:"shell out to ctr via sudo" default:"true"`
	Concurrency   int    `help:"maximum containers finalized concurrently" default:"4"`
	CheckpointDir string `help:"ctr checkpoint destination directory, relative container subdirectories are created beneath it" default:"checkpoint"`
	AuditDB       string `help:"path to the sqlite audit log of finalize runs" default:"/var/lib/runcshim/audit.db" predictor:"file"`
}

func (f *FinalizeCmd) Run(cctx *Context) error {
	ctx, span := runcshim.StartSpan(context.Background(), "runcshimctl.finalize")
	defer span.End()

	containers, err := cctx.Flags.List()
	if err != nil {
		return fmt.Errorf("listing flag-recorded containers: %w", err)
	}
	if len(containers) == 0 {
		slog.InfoContext(ctx, "no flag-recorded containers found")
		return nil
	}
	slog.InfoContext(ctx, "finalizing containers", "count", len(containers))

	store, err := audit.Open(f.AuditDB)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer store.Close()

	runtimePath, err := runcshim.NewRuntimeLocator(cctx.FS).Resolve()
	if err != nil {
		return fmt.Errorf("locating real runtime for state probes: %w", err)
	}
	ops := ctrctl.NewTaskOps(runtimePath, f.Sudo)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Concurrency)

	var mu sync.Mutex
	var errs *multierror.Error

	for _, c := range containers {
		ns, id := c[0], c[1]
		g.Go(func() error {
			if err := finalizeOne(gctx, ops, store, f.CheckpointDir, ns, id); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s/%s: %w", ns, id, err))
				mu.Unlock()
			}
			// Never return an error here: one container's failure must not
			// cancel the rest of the fan-out (errgroup.WithContext cancels
			// gctx on the first non-nil return).
			return nil
		})
	}
	_ = g.Wait()

	return errs.ErrorOrNil()
}

// finalizeOne probes container state and, if running, runs the
// checkpoint/kill/rm-task/rm-container sequence, recording each step to the
// audit log and continuing past individual step failures.
func finalizeOne(ctx context.Context, ops ctrctl.TaskOps, store *audit.Store, checkpointDir, ns, id string) error {
	state, err := ops.State(ctx, ns, id)
	if err != nil {
		store.RecordStep(ctx, ns, id, "state", false, err.Error())
		return err
	}
	if state != "running" {
		slog.WarnContext(ctx, "container not running, skipping", "ns", ns, "id", id, "state", state)
		store.RecordStep(ctx, ns, id, "state", true, state)
		return nil
	}

	var errs *multierror.Error

	dest := filepath.Join(checkpointDir, id)
	step(ctx, store, ns, id, "checkpoint", &errs, func() error {
		return ops.Checkpoint(ctx, ns, id, dest, ctrctl.CheckpointTask{Task: true})
	})
	step(ctx, store, ns, id, "kill", &errs, func() error {
		return ops.KillTask(ctx, ns, id, ctrctl.KillTask{})
	})
	step(ctx, store, ns, id, "rm-task", &errs, func() error {
		return ops.RemoveTask(ctx, ns, id)
	})
	step(ctx, store, ns, id, "rm-container", &errs, func() error {
		return ops.RemoveContainer(ctx, ns, id)
	})

	return errs.ErrorOrNil()
}

// step runs fn, records its outcome, and appends any failure into *errs
// without stopping the remaining steps.
func step(ctx context.Context, store *audit.Store, ns, id, name string, errs **multierror.Error, fn func() error) {
	if err := fn(); err != nil {
		slog.WarnContext(ctx, "finalize step failed, continuing", "ns", ns, "id", id, "step", name, "err", err)
		store.RecordStep(ctx, ns, id, name, false, err.Error())
		*errs = multierror.Append(*errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	store.RecordStep(ctx, ns, id, name, true, "")
}
