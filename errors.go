package runcshim

import "errors"

// ErrEmptyCommand is returned by the Command Parser when argv is empty, not
// even holding the program path. An argv of only the program path parses as
// a global-only invocation.
var ErrEmptyCommand = errors.New("runcshim: empty command")

// ErrRuntimeNotFound is returned by the Runtime Locator when the real
// runtime binary cannot be resolved from either the environment variable or
// the config file. This is a misinstallation, not a runtime condition, so
// callers should treat it as fatal.
var ErrRuntimeNotFound = errors.New("runcshim: real runtime binary not found")

// ErrInvalidFlagRecord is raised by the Flag Store when asked to persist a
// record that fails FlagRecord.Valid. It is a programmer error: it should
// never occur at runtime, since every write goes through NewFlagRecord or a
// mutation of an already-valid record.
var ErrInvalidFlagRecord = errors.New("runcshim: invalid flag record")
