// Command runcshim-install backs up the real runtime binary and installs
// this shim in its place, writing the locator's env file so the shim can
// find the backup again.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/container-tools/runcshim"
)

// requiredPackages are the host binaries the shim is useless without.
var requiredPackages = []string{"criu", "containerd", "runc"}

func main() {
	ctx := context.Background()
	runcshim.InitLogging(envOr("LOG_FILE", "/var/log/runcshim/install.log"), slog.LevelInfo)

	uninstall := len(os.Args) > 1 && os.Args[1] == "--uninstall"

	if os.Geteuid() != 0 {
		slog.ErrorContext(ctx, "must be run as root")
		os.Exit(1)
	}

	fs := runcshim.NewDefaultFileOps()

	if uninstall {
		if err := doUninstall(ctx, fs); err != nil {
			slog.ErrorContext(ctx, "uninstall failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if missing := checkDependencies(); len(missing) > 0 {
		slog.ErrorContext(ctx, "missing required system packages", "missing", missing)
		os.Exit(1)
	}

	if err := doInstall(ctx, fs); err != nil {
		slog.ErrorContext(ctx, "install failed", "err", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func checkDependencies() []string {
	var missing []string
	for _, pkg := range requiredPackages {
		if _, err := exec.LookPath(pkg); err != nil {
			missing = append(missing, pkg)
		}
	}
	return missing
}

// findRuntimePath locates the currently installed runtime binary via PATH.
func findRuntimePath() (string, error) {
	path, err := exec.LookPath("runc")
	if err != nil {
		return "", fmt.Errorf("could not find runc binary on PATH: %w", err)
	}
	return path, nil
}

// doInstall backs runtimePath up to runtimePath+".real", points
// runcshim.DefaultConfigPath at the backup, and replaces the binary on PATH
// with a copy of this installer's sibling shim binary.
func doInstall(ctx context.Context, fs runcshim.FileOps) error {
	runtimePath, err := findRuntimePath()
	if err != nil {
		return err
	}
	backupPath := runtimePath + ".real"

	if fs.Exists(backupPath) {
		slog.InfoContext(ctx, "backup already present, shim already installed", "backup", backupPath)
	} else {
		if err := fs.Copy(ctx, runtimePath, backupPath); err != nil {
			return fmt.Errorf("backing up %s: %w", runtimePath, err)
		}
		slog.InfoContext(ctx, "created backup", "backup", backupPath)
	}

	if err := fs.MkdirAll(runcshim.DefaultConfigDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := runcshim.WriteEnvFile(fs, runcshim.DefaultConfigPath, map[string]string{
		runcshim.EnvRealRuntimeCmd: backupPath,
	}); err != nil {
		return fmt.Errorf("writing locator config: %w", err)
	}
	slog.InfoContext(ctx, "wrote locator config", "path", runcshim.DefaultConfigPath)

	shimBinary, err := sideBySideShimBinary()
	if err != nil {
		return err
	}
	if err := fs.Copy(ctx, shimBinary, runtimePath); err != nil {
		return fmt.Errorf("installing shim at %s: %w", runtimePath, err)
	}
	slog.InfoContext(ctx, "installed shim", "path", runtimePath)
	return nil
}

// doUninstall restores the backed-up runtime binary and removes the
// locator's config file.
func doUninstall(ctx context.Context, fs runcshim.FileOps) error {
	runtimePath, err := findRuntimePath()
	if err != nil {
		return err
	}
	backupPath := runtimePath + ".real"

	if !fs.Exists(backupPath) {
		slog.InfoContext(ctx, "no backup found, nothing to uninstall")
		return nil
	}
	if err := fs.RemoveAll(runtimePath); err != nil {
		return fmt.Errorf("removing shim at %s: %w", runtimePath, err)
	}
	if err := fs.Copy(ctx, backupPath, runtimePath); err != nil {
		return fmt.Errorf("restoring %s: %w", runtimePath, err)
	}
	if err := fs.RemoveAll(backupPath); err != nil {
		return fmt.Errorf("removing backup %s: %w", backupPath, err)
	}
	if err := fs.RemoveAll(runcshim.DefaultConfigPath); err != nil {
		return fmt.Errorf("removing config: %w", err)
	}
	slog.InfoContext(ctx, "uninstall complete", "path", runtimePath)
	return nil
}

// sideBySideShimBinary resolves the runc-shim binary installed next to this
// installer binary, which a packaging step is expected to place there.
func sideBySideShimBinary() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving installer path: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(self), "runc-shim")
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("shim binary not found beside installer at %s: %w", candidate, err)
	}
	return candidate, nil
}
