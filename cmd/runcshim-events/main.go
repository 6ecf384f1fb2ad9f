// Command runcshim-events tails the container supervisor's event stream and
// records exit codes into the flag store. It is the only writer of a flag
// record's exit_code field.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/container-tools/runcshim"
)

// exitEvent is the JSON body of a "/tasks/exit" event.
type exitEvent struct {
	ContainerID string `json:"container_id"`
	ExitStatus  *int   `json:"exit_status"`
}

func main() {
	runcshim.InitLogging(runcshim.LoggingConfig(runcshim.NewDefaultFileOps(), "/var/log/runcshim/events.log"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags, err := runcshim.NewFlagStore(runcshim.DefaultStateDir)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize flag store", "err", err)
		os.Exit(1)
	}

	if err := writePIDFile(runcshim.DefaultEventListenerPIDFile); err != nil {
		slog.ErrorContext(ctx, "failed to write pid file", "err", err)
		os.Exit(1)
	}
	defer os.Remove(runcshim.DefaultEventListenerPIDFile)

	if err := run(ctx, flags); err != nil {
		slog.ErrorContext(ctx, "event listener exited with error", "err", err)
		os.Exit(1)
	}
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// run spawns the supervisor's event stream subprocess and processes lines
// until the context is cancelled or the subprocess's stdout closes.
func run(ctx context.Context, flags *runcshim.FlagStore) error {
	cmd := exec.CommandContext(ctx, "ctr", "events")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "event listener started", "pid", cmd.Process.Pid)

	go logStderr(ctx, stderr)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		processLine(ctx, flags, scanner.Text())
	}

	return cmd.Wait()
}

func logStderr(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		slog.WarnContext(ctx, "event listener stderr", "line", scanner.Text())
	}
}

// processLine parses one line of the form
// "<timestamp> <namespace> <topic> <json-body>" and, for /tasks/exit events,
// records the exit code against the flag store.
func processLine(ctx context.Context, flags *runcshim.FlagStore, line string) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 4)
	if len(fields) != 4 {
		slog.DebugContext(ctx, "skipping malformed event line", "line", line)
		return
	}
	ns, topic, body := fields[1], fields[2], fields[3]
	if topic != "/tasks/exit" {
		return
	}

	var ev exitEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		slog.WarnContext(ctx, "failed to parse exit event body", "err", err, "body", body)
		return
	}
	if ev.ContainerID == "" {
		return
	}

	code := 0
	if ev.ExitStatus != nil {
		code = *ev.ExitStatus
	}

	if !flags.Has(ns, ev.ContainerID) {
		slog.DebugContext(ctx, "no flag record for exited container, ignoring", "ns", ns, "id", ev.ContainerID)
		return
	}

	slog.InfoContext(ctx, "recording exit code", "ns", ns, "id", ev.ContainerID, "code", code)
	if err := flags.SetExitCode(ns, ev.ContainerID, code); err != nil {
		slog.WarnContext(ctx, "failed to set exit code", "err", err)
	}
}
