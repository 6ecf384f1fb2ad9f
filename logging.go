package runcshim

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelFromString maps the four levels the administrative CLI's log command
// accepts onto slog's levels, defaulting to info on anything unrecognized.
func LevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoggingConfig resolves the logger's output file and level for a process:
// its own environment wins, then the LOG_FILE/LOG_LEVEL keys of the shared
// runtime.env file (the ones `runcshimctl log` rewrites), then defaultFile.
func LoggingConfig(fs FileOps, defaultFile string) (string, slog.Level) {
	env, err := ReadEnvFile(fs, DefaultConfigPath)
	if err != nil {
		env = map[string]string{}
	}
	file := os.Getenv("LOG_FILE")
	if file == "" {
		file = env["LOG_FILE"]
	}
	if file == "" {
		file = defaultFile
	}
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = env["LOG_LEVEL"]
	}
	return file, LevelFromString(level)
}

// InitLogging installs a JSON slog logger at the given level, writing to
// file through a rotating writer so a long-lived event listener or a busy
// host issuing many shim invocations never fills the disk with logs. The
// rotation limits are fixed here and are the same for every process that
// logs through it; only file and level vary (see LoggingConfig).
func InitLogging(file string, level slog.Level) {
	writer := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
