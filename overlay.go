package runcshim

import (
	"bufio"
	"strings"
)

// OverlayProbe locates the writable upperdir of the overlay mount backing a
// container's root filesystem by scanning the host mount table. It caches
// nothing: the mount table can change between invocations.
type OverlayProbe struct {
	fs         FileOps
	mountsPath string
}

// NewOverlayProbe returns a probe reading /proc/self/mountinfo, the standard
// Linux mount table exposing overlay mount options.
func NewOverlayProbe(fs FileOps) *OverlayProbe {
	return &OverlayProbe{fs: fs, mountsPath: "/proc/self/mountinfo"}
}

// Find returns the upperdir path for the overlay mount whose line mentions
// the container id, or "" if none is found.
func (o *OverlayProbe) Find(ns, id string) string {
	raw, err := o.fs.ReadFile(o.mountsPath)
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "overlay") || !strings.Contains(line, id) {
			continue
		}
		if dir := extractUpperdir(line); dir != "" {
			return dir
		}
	}
	return ""
}

// extractUpperdir pulls the value of the upperdir= mount option out of a
// mountinfo/mounts line, stopping at the next comma or close-paren.
func extractUpperdir(line string) string {
	idx := strings.Index(line, "upperdir=")
	if idx == -1 {
		return ""
	}
	rest := line[idx+len("upperdir="):]
	end := strings.IndexAny(rest, ",)")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return rest[:end]
}
