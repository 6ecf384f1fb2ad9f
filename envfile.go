package runcshim

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ReadEnvFile parses a KEY=VALUE file of the shape RuntimeLocator and the
// installer both read/write, skipping blank lines and "#" comments.
func ReadEnvFile(fs FileOps, path string) (map[string]string, error) {
	raw, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	out := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, scanner.Err()
}

// WriteEnvFile merges updates into the existing KEY=VALUE file at path
// (creating it if absent) and writes the result back sorted by key, so
// repeated updates produce a stable diff.
func WriteEnvFile(fs FileOps, path string, updates map[string]string) error {
	current, err := ReadEnvFile(fs, path)
	if err != nil {
		return err
	}
	for k, v := range updates {
		current[k] = v
	}

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, current[k])
	}
	return fs.WriteFile(path, []byte(sb.String()), 0o644)
}
