// Package ctrctl wraps the shellouts the administrative finalize command
// drives: a state probe against the real low-level runtime, then
// checkpoint, kill, remove task, and remove container via the higher-level
// container tool (ctr).
package ctrctl

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// CheckpointTask are the flags for `ctr containers checkpoint`.
type CheckpointTask struct {
	// Task checkpoints the running task rather than just the container's metadata.
	Task bool `flag:"--task"`
	// Image checkpoints the container's rootfs changes too.
	Image bool `flag:"--image"`
}

// KillTask are the flags for `ctr task kill`.
type KillTask struct {
	// Signal is the signal to send (default: SIGTERM).
	Signal string `flag:"--signal"`
	// All sends the signal to all processes in the task.
	All bool `flag:"--all"`
}

// ToArgs reflects over s's exported fields, emitting `flag` tag values for
// every non-zero field (embedded structs are flattened). Shared across every
// ctr subcommand's option type so each gets its flags for free from a
// struct literal instead of hand-built argument slices.
func ToArgs[T any](s *T) []string {
	if s == nil {
		s = new(T)
	}
	var ret []string
	st := reflect.TypeOf(*s)
	sv := reflect.ValueOf(*s)
	if st.Kind() == reflect.Pointer {
		sv = reflect.Indirect(sv)
		st = sv.Type()
	}
	for i := range st.NumField() {
		field := st.Field(i)
		fv := sv.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			fvi := fv.Interface()
			ret = append(ret, ToArgs(&fvi)...)
			continue
		}
		flagTag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		flagName := strings.Split(flagTag, ",")[0]
		v := reflect.ValueOf(fv.Interface())
		if v.IsZero() {
			continue
		}
		if ret == nil {
			ret = []string{}
		}
		fieldKind := field.Type.Kind()
		switch {
		case fieldKind == reflect.Slice || fieldKind == reflect.Array:
			for i := 0; i < fv.Len(); i++ {
				ret = append(ret, flagName, fmt.Sprintf("%v", fv.Index(i)))
			}
		case fieldKind == reflect.Map:
			m := v.Interface().(map[string]string)
			var pairs []string
			for _, k := range slices.Sorted(maps.Keys(m)) {
				pairs = append(pairs, fmt.Sprintf("%v=%v", k, m[k]))
			}
			ret = append(ret, flagName, strings.Join(pairs, ","))
		case fieldKind == reflect.Bool:
			ret = append(ret, flagName)
		default:
			ret = append(ret, flagName, fmt.Sprintf("%v", fv.Interface()))
		}
	}
	return ret
}
