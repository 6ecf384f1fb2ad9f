// Package runcshim implements a transparent interception shim for an
// OCI-compliant low-level container runtime. Opted-in containers get
// checkpoint/restore lifecycle orchestration on create/checkpoint/delete;
// everything else passes through to the real runtime unchanged.
package runcshim

import "time"

// DefaultNamespace is used when a command carries no --root option, or one
// whose final path segment cannot be extracted (e.g. a trailing slash).
const DefaultNamespace = "default"

// Intercepted is the set of subcommands the Lifecycle Engine (C6) acts on.
// Everything else is passed through immediately.
var Intercepted = map[string]bool{
	"create":     true,
	"start":      true,
	"checkpoint": true,
	"resume":     true,
	"delete":     true,
}

// BooleanFlags never take a following value during argv parsing.
var BooleanFlags = map[string]bool{
	"--leave-running":       true,
	"--tcp-established":     true,
	"--ext-unix-sk":         true,
	"--shell-job":           true,
	"--lazy-pages":          true,
	"--file-locks":          true,
	"--pre-dump":            true,
	"--auto-dedup":          true,
	"--no-pivot":            true,
	"--no-new-keyring":      true,
	"--force":               true,
	"--debug":               true,
	"--systemd-cgroup":      true,
	"--help":                true,
	"-h":                    true,
	"--version":             true,
	"-v":                    true,
	"--detach":              true,
	"--rootless":            true,
	"--manage-cgroups-mode": true,
	"--empty-ns":            true,
	"--status-fd":           true,
	"--page-server":         true,
}

// ParsedCommand is the structured form C1 decodes argv into.
type ParsedCommand struct {
	Subcommand  string
	GlobalOpts  map[string]string
	SubOpts     map[string]string
	ContainerID string
	Namespace   string
}

// IsGlobalOnly reports whether the invocation had no subcommand at all
// (e.g. `runc --version`).
func (p ParsedCommand) IsGlobalOnly() bool {
	return p.Subcommand == ""
}

// FlagRecord is the per-container durable lifecycle document.
// All fields must round-trip through JSON with these exact names: sibling
// invocations (a create and the start that follows it) communicate only
// through this document.
type FlagRecord struct {
	Version       string `json:"version"`
	SkipStart     bool   `json:"skip_start"`
	SkipResume    bool   `json:"skip_resume"`
	KeepResources bool   `json:"keep_resources"`
	ExitCode      *int   `json:"exit_code"`
	LastUpdated   string `json:"last_updated"`
}

// FlagSchemaVersion is the current schema version written into new records.
const FlagSchemaVersion = "1.0"

// NewFlagRecord returns a freshly initialized record: all flags false,
// exit_code unset.
func NewFlagRecord() FlagRecord {
	return FlagRecord{
		Version:     FlagSchemaVersion,
		LastUpdated: nowISO8601(),
	}
}

// Valid reports whether the record carries a schema version. Only Version
// is checked: a decoded document that lacks any of the other fields still
// passes, with the missing fields left at their zero values.
func (f FlagRecord) Valid() bool {
	return f.Version != ""
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
