package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/runner"
)

// ErrNotInstalled is returned by Verify when there is no PX4 checkout.
var ErrNotInstalled = errors.New("PX4-Autopilot checkout not found, run setup first")

// Options adjust Install.
type Options struct {
	// SkipDependencies leaves out the PX4 toolchain bootstrap script.
	SkipDependencies bool
	// Force removes an existing checkout and clones again.
	Force bool
	Sink  runner.LineSink
}

// Verify checks that the firmware checkout exists.
func Verify(cfg config.Config) error {
	info, err := os.Stat(filepath.Join(cfg.FirmwareDir, ".git"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", cfg.FirmwareDir, ErrNotInstalled)
		}
		return err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", cfg.FirmwareDir, ErrNotInstalled)
	}
	return nil
}

// Install clones PX4-Autopilot into the work directory and bootstraps its toolchain.
// An existing checkout is kept unless opts.Force is set.
func Install(ctx context.Context, cfg config.Config, r runner.Runner, opts Options) error {
	logger := getLogger()

	if err := Verify(cfg); err == nil && !opts.Force {
		logger.Info("PX4-Autopilot already set up", "dir", cfg.FirmwareDir)
		return nil
	}
	if opts.Force {
		if err := Clear(cfg); err != nil {
			return err
		}
	}

	if !cfg.Setup.Clone {
		logger.Warn("cloning disabled, expecting a checkout to be provided", "dir", cfg.FirmwareDir)
		if err := Verify(cfg); err != nil {
			return err
		}
	} else if err := Clone(ctx, cfg, r, opts.Sink); err != nil {
		return err
	}

	if opts.SkipDependencies || !cfg.Setup.InstallDeps {
		logger.Info("skipping PX4 dependency installation")
		return nil
	}
	return InstallDependencies(ctx, cfg, r, opts.Sink)
}

// Clone runs git clone of the configured repository into the work directory.
func Clone(ctx context.Context, cfg config.Config, r runner.Runner, sink runner.LineSink) error {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	getLogger().Info("cloning PX4-Autopilot", "repository", cfg.Repository, "dir", cfg.FirmwareDir)
	cmd := runner.Command{
		Args: []string{"git", "clone", cfg.Repository, filepath.Base(cfg.FirmwareDir), "--recursive", "--no-tags"},
		Dir:  cfg.WorkDir,
	}
	if _, err := r.Run(ctx, cmd, runner.Options{Live: true, FailFast: true, Sink: sink}); err != nil {
		return fmt.Errorf("clone %s: %w", cfg.Repository, err)
	}
	return nil
}

// InstallDependencies runs the PX4 ubuntu setup script in the checkout.
func InstallDependencies(ctx context.Context, cfg config.Config, r runner.Runner, sink runner.LineSink) error {
	getLogger().Info("installing PX4 dependencies")
	cmd := runner.Command{Args: []string{"bash", "./Tools/setup/ubuntu.sh"}, Dir: cfg.FirmwareDir}
	if _, err := r.Run(ctx, cmd, runner.Options{Live: true, FailFast: true, Sink: sink}); err != nil {
		return fmt.Errorf("install dependencies: %w", err)
	}
	return nil
}

// Clear removes the firmware checkout.
func Clear(cfg config.Config) error {
	getLogger().Info("removing PX4-Autopilot checkout", "dir", cfg.FirmwareDir)
	if err := os.RemoveAll(cfg.FirmwareDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", cfg.FirmwareDir, err)
	}
	return nil
}
