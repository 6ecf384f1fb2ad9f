// Command runcshimctl is the administrative CLI: it is not part of the
// interception core, but finalizes shim-managed containers through the
// higher-level container tool and adjusts the shim's logger configuration.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	kongcompletion "github.com/jotaen/kong-completion"
	"github.com/posener/complete"

	"github.com/container-tools/runcshim"
)

const description = `Administrative CLI for the runc-shim checkpoint/restore interception shim.

Finalizes shim-managed containers via the higher-level container tool and
adjusts the shim's logger configuration.`

// Context carries the components every subcommand's Run method needs.
type Context struct {
	FS    runcshim.FileOps
	Flags *runcshim.FlagStore
}

// CLI is the top-level command tree: one field per subcommand, global
// log flags on the root struct.
type CLI struct {
	LogFile  string `default:"/var/log/runcshim/ctl.log" placeholder:"<log-file-path>" help:"location of log file"`
	LogLevel string `default:"info" placeholder:"<debug|info|warn|error>" help:"the logging level"`

	Finalize FinalizeCmd `cmd:"" help:"checkpoint, kill, and remove every running shim-managed container"`
	Log      LogCmd      `cmd:"" help:"update the shim logger's level and output file"`
	Version  VersionCmd  `cmd:"" help:"print version information about this command"`
}

func main() {
	var cli CLI

	parser := kong.Must(&cli,
		kong.Name("runcshimctl"),
		kong.Description(description),
		kong.Configuration(kongyaml.Loader, "/etc/runcshim/runcshimctl.yaml", "~/.runcshimctl.yaml"),
	)
	kongcompletion.Register(parser,
		kongcompletion.WithPredictor("file", complete.PredictFiles("*")),
	)

	// Parse errors exit 2; a failing subcommand exits 1.
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	runcshim.InitLogging(cli.LogFile, runcshim.LevelFromString(cli.LogLevel))
	slog.Info("runcshimctl starting", "command", kctx.Command())

	flags, err := runcshim.NewFlagStore(runcshim.DefaultStateDir)
	if err != nil {
		slog.Error("failed to initialize flag store", "err", err)
		os.Exit(1)
	}

	if err := kctx.Run(&Context{
		FS:    runcshim.NewDefaultFileOps(),
		Flags: flags,
	}); err != nil {
		slog.Error("command failed", "command", kctx.Command(), "err", err)
		os.Exit(1)
	}
}
