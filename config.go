package runcshim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/opencontainers/runtime-spec/specs-go"
)

// ConfigReader locates and inspects a container's OCI config.json. It is the
// only component that mutates that file, and only on the create path.
type ConfigReader struct {
	fs            FileOps
	pathTemplates []string
}

// NewConfigReader returns a ConfigReader that probes ContainerConfigPathTemplates.
func NewConfigReader(fs FileOps) *ConfigReader {
	return &ConfigReader{fs: fs, pathTemplates: ContainerConfigPathTemplates}
}

// findConfigPath returns the first extant candidate path, or "" if none exist.
func (c *ConfigReader) findConfigPath(ns, id string) string {
	for _, tmpl := range c.pathTemplates {
		path := fmt.Sprintf(tmpl, ns, id)
		if c.fs.Exists(path) {
			return path
		}
	}
	return ""
}

func (c *ConfigReader) readSpec(path string) (*specs.Spec, error) {
	raw, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var spec specs.Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &spec, nil
}

// GetEnv returns the suffix after the first "=" of the first env[] entry in
// the container's config whose name matches, or def if none match or the
// config cannot be found/read.
func (c *ConfigReader) GetEnv(ns, id, name, def string) string {
	path := c.findConfigPath(ns, id)
	if path == "" {
		return def
	}
	spec, err := c.readSpec(path)
	if err != nil || spec.Process == nil {
		return def
	}
	prefix := name + "="
	for _, kv := range spec.Process.Env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix)
		}
	}
	return def
}

// IsOptedIn reports whether the container's config carries OptInKey=1.
func (c *ConfigReader) IsOptedIn(ns, id string) bool {
	return c.GetEnv(ns, id, OptInKey, "0") == "1"
}

// GetCheckpointPath resolves in priority order: shared FS, then checkpoint
// host, then the process-wide default root.
func (c *ConfigReader) GetCheckpointPath(ns, id string) string {
	if sharedFS := c.GetEnv(ns, id, SharedFSKey, ""); sharedFS != "" {
		return filepath.Join(sharedFS, "checkpoint", ns, id)
	}
	if host := c.GetEnv(ns, id, CheckpointHostKey, ""); host != "" {
		return filepath.Join(host, ns, id)
	}
	return filepath.Join(DefaultCheckpointRoot, ns, id)
}

// AddBindMount mounts a per-container scratch directory into the
// container's rootfs and points process.cwd at it, iff SharedFSKey is set.
// When SharedFSKey is unset there is nothing to do, which is itself success:
// this lets the create path continue past the check rather than falling
// back to pass-through for the common case of a container with no shared
// filesystem configured at all. Every precondition failure beyond that
// returns false without mutating the config.
func (c *ConfigReader) AddBindMount(ctx context.Context, ns, id string) bool {
	sharedFS := c.GetEnv(ns, id, SharedFSKey, "")
	if sharedFS == "" {
		return true
	}
	dst := c.GetEnv(ns, id, WorkdirKey, DefaultWorkdirInContainer)
	src := filepath.Join(sharedFS, "work", ns, id)

	if err := c.fs.MkdirAll(src, 0o755); err != nil {
		slog.WarnContext(ctx, "AddBindMount: failed to create work directory", "src", src, "err", err)
		return false
	}

	configPath := c.findConfigPath(ns, id)
	if configPath == "" {
		slog.WarnContext(ctx, "AddBindMount: no config.json found", "ns", ns, "id", id)
		return false
	}
	runtimeDir := filepath.Dir(configPath)
	rootfs := filepath.Join(runtimeDir, "rootfs")
	if !c.fs.Exists(rootfs) {
		slog.WarnContext(ctx, "AddBindMount: rootfs not found", "rootfs", rootfs)
		return false
	}
	destInRootfs := filepath.Join(rootfs, strings.TrimPrefix(dst, "/"))
	if !c.fs.Exists(destInRootfs) {
		slog.WarnContext(ctx, "AddBindMount: destination missing inside rootfs", "dest", destInRootfs)
		return false
	}

	spec, err := c.readSpec(configPath)
	if err != nil {
		slog.WarnContext(ctx, "AddBindMount: failed to read config", "err", err)
		return false
	}
	for _, m := range spec.Mounts {
		if m.Destination == dst || m.Source == src {
			slog.WarnContext(ctx, "AddBindMount: mount already present", "dest", m.Destination, "src", m.Source)
			return false
		}
	}

	spec.Mounts = append(spec.Mounts, specs.Mount{
		Type:        "bind",
		Source:      src,
		Destination: dst,
		Options:     []string{"rbind", "rw"},
	})
	if spec.Process == nil {
		spec.Process = &specs.Process{}
	}
	spec.Process.Cwd = dst

	encoded, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		slog.WarnContext(ctx, "AddBindMount: failed to encode config", "err", err)
		return false
	}
	if err := c.writeAtomic(configPath, encoded); err != nil {
		slog.WarnContext(ctx, "AddBindMount: failed to write config", "err", err)
		return false
	}
	return true
}

// writeAtomic writes to a temp file beside path and renames over it, so a
// reader never observes a partially written config.json.
func (c *ConfigReader) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := c.fs.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return c.fs.Rename(tmp, path)
}

// DeleteWorkDirectory recursively removes the scratch directory created by
// AddBindMount, iff SharedFSKey is set for the container.
func (c *ConfigReader) DeleteWorkDirectory(ns, id string) bool {
	sharedFS := c.GetEnv(ns, id, SharedFSKey, "")
	if sharedFS == "" {
		return true
	}
	workDir := filepath.Join(sharedFS, "work", ns, id)
	if err := c.fs.RemoveAll(workDir); err != nil {
		slog.Warn("DeleteWorkDirectory: failed to remove work directory", "dir", workDir, "err", err)
		return false
	}
	return true
}
