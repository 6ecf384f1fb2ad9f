package runcshim

import (
	"os"
)

// RuntimeLocator resolves the absolute path to the real runtime binary:
// first an environment variable, then a key/value config file. Either
// resolution must name a path that exists and is executable, or the shim
// cannot run at all; this is a misinstallation, not a runtime condition.
type RuntimeLocator struct {
	fs         FileOps
	configPath string
	getenv     func(string) string
}

// NewRuntimeLocator returns a locator consulting EnvRealRuntimeCmd and
// DefaultConfigPath.
func NewRuntimeLocator(fs FileOps) *RuntimeLocator {
	return &RuntimeLocator{fs: fs, configPath: DefaultConfigPath, getenv: os.Getenv}
}

// Resolve returns the real runtime's path, or ErrRuntimeNotFound.
func (l *RuntimeLocator) Resolve() (string, error) {
	if path := l.getenv(EnvRealRuntimeCmd); path != "" && l.executable(path) {
		return path, nil
	}
	if path := l.fromConfigFile(); path != "" && l.executable(path) {
		return path, nil
	}
	return "", ErrRuntimeNotFound
}

func (l *RuntimeLocator) fromConfigFile() string {
	env, err := ReadEnvFile(l.fs, l.configPath)
	if err != nil {
		return ""
	}
	return env[EnvRealRuntimeCmd]
}

func (l *RuntimeLocator) executable(path string) bool {
	info, err := l.fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
