package runcshim

import "context"

// fakeProcOps records invocations instead of touching the real OS.
type fakeProcOps struct {
	execCalls []execCall
	runCalls  []execCall
	runResult int
	runErr    error
	execErr   error
}

type execCall struct {
	path string
	argv []string
	envv []string
}

func (f *fakeProcOps) Exec(path string, argv []string, envv []string) error {
	f.execCalls = append(f.execCalls, execCall{path, argv, envv})
	return f.execErr
}

func (f *fakeProcOps) Run(ctx context.Context, path string, argv []string, envv []string) (int, error) {
	f.runCalls = append(f.runCalls, execCall{path, argv, envv})
	return f.runResult, f.runErr
}
