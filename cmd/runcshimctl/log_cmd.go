package main

import "github.com/container-tools/runcshim"

// LogCmd rewrites the locator's KEY=VALUE env file so that the next shim
// invocation (and the event listener, on its next restart) picks up the new
// logger configuration.
type LogCmd struct {
	Level string `help:"logger level" enum:"debug,info,warn,error" default:"info"`
	File  string `help:"logger output file path" default:"/var/log/runcshim/shim.log" predictor:"file"`
}

func (l *LogCmd) Run(cctx *Context) error {
	return runcshim.WriteEnvFile(cctx.FS, runcshim.DefaultConfigPath, map[string]string{
		"LOG_LEVEL": l.Level,
		"LOG_FILE":  l.File,
	})
}
