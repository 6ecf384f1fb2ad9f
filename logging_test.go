package runcshim

import (
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"garbage": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggingConfig_EnvFileFallback(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "")
	fs := newFakeFileOps()
	fs.files[DefaultConfigPath] = []byte("LOG_FILE=/var/log/custom.log\nLOG_LEVEL=debug\n")

	file, level := LoggingConfig(fs, "/var/log/default.log")
	if file != "/var/log/custom.log" {
		t.Fatalf("got file %q", file)
	}
	if level != slog.LevelDebug {
		t.Fatalf("got level %v", level)
	}
}

func TestLoggingConfig_ProcessEnvWins(t *testing.T) {
	t.Setenv("LOG_FILE", "/tmp/override.log")
	t.Setenv("LOG_LEVEL", "error")
	fs := newFakeFileOps()
	fs.files[DefaultConfigPath] = []byte("LOG_FILE=/var/log/custom.log\nLOG_LEVEL=debug\n")

	file, level := LoggingConfig(fs, "/var/log/default.log")
	if file != "/tmp/override.log" {
		t.Fatalf("got file %q", file)
	}
	if level != slog.LevelError {
		t.Fatalf("got level %v", level)
	}
}

func TestLoggingConfig_Defaults(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "")
	fs := newFakeFileOps()

	file, level := LoggingConfig(fs, "/var/log/default.log")
	if file != "/var/log/default.log" {
		t.Fatalf("got file %q", file)
	}
	if level != slog.LevelInfo {
		t.Fatalf("got level %v", level)
	}
}
