package runcshim

import (
	"log/slog"
	"strings"
)

// ParseCommand decodes a runtime invocation's argv (including argv[0], the
// program path) into a ParsedCommand. Global options accumulate until the
// first non-option token (the subcommand), then subcommand options
// accumulate until argv is exhausted; the container id is the final token
// of argv when that token is not an option, and "" otherwise.
func ParseCommand(argv []string) (ParsedCommand, error) {
	if len(argv) == 0 {
		return ParsedCommand{}, ErrEmptyCommand
	}

	args := argv[1:]
	i := 0

	globalOpts := map[string]string{}
	i = scanOpts(args, i, globalOpts)

	if i >= len(args) {
		slog.Debug("ParseCommand: global-only invocation", "argv", argv)
		return ParsedCommand{
			GlobalOpts: globalOpts,
			SubOpts:    map[string]string{},
			Namespace:  namespaceFromRoot(globalOpts),
		}, nil
	}

	subcommand := args[i]
	i++

	subOpts := map[string]string{}
	scanTrailingOpts(args, i, subOpts)

	containerID := ""
	if len(args) > 0 {
		last := args[len(args)-1]
		if !isOptionToken(last) {
			containerID = last
		}
	}

	pc := ParsedCommand{
		Subcommand:  subcommand,
		GlobalOpts:  globalOpts,
		SubOpts:     subOpts,
		ContainerID: containerID,
		Namespace:   namespaceFromRoot(globalOpts),
	}
	slog.Debug("ParseCommand", "parsed", pc)
	return pc, nil
}

// scanOpts accumulates option tokens starting at args[i] into dst, stopping
// at the first non-option token. It returns the index of that token.
func scanOpts(args []string, i int, dst map[string]string) int {
	for i < len(args) && isOptionToken(args[i]) {
		i = consumeOpt(args, i, dst)
	}
	return i
}

// scanTrailingOpts consumes the remainder of args, collecting option tokens
// and stepping over bare positional tokens (usually the container id, which
// may sit between or before trailing options).
func scanTrailingOpts(args []string, i int, dst map[string]string) {
	for i < len(args) {
		if !isOptionToken(args[i]) {
			i++
			continue
		}
		i = consumeOpt(args, i, dst)
	}
}

// consumeOpt records the option at args[i] into dst and returns the index
// of the next unconsumed token. Boolean flags and "--opt=value" forms take
// one token; an option followed by a bare token takes two.
func consumeOpt(args []string, i int, dst map[string]string) int {
	tok := args[i]
	if name, value, ok := strings.Cut(tok, "="); ok {
		dst[name] = value
		return i + 1
	}
	if BooleanFlags[tok] {
		dst[tok] = ""
		return i + 1
	}
	if i+1 < len(args) && !isOptionToken(args[i+1]) {
		dst[tok] = args[i+1]
		return i + 2
	}
	dst[tok] = ""
	return i + 1
}

func isOptionToken(tok string) bool {
	return strings.HasPrefix(tok, "-")
}

// namespaceFromRoot extracts the namespace from --root: the final path
// segment, unless --root is absent or ends in a slash.
func namespaceFromRoot(globalOpts map[string]string) string {
	root, ok := globalOpts["--root"]
	if !ok || root == "" || strings.HasSuffix(root, "/") {
		return DefaultNamespace
	}
	parts := strings.Split(root, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return DefaultNamespace
	}
	return last
}
