package configurations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/build"
	"github.com/eolab-hsrw/easypx4/internal/build/adapters/git"
	"github.com/eolab-hsrw/easypx4/internal/build/repositories"
	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/runner"
	"github.com/eolab-hsrw/easypx4/internal/setup"
	"github.com/eolab-hsrw/easypx4/internal/vcs"
)

// BuildOptions are the settings of a build that are not part of the request.
type BuildOptions struct {
	StrictSubmodules bool
	// Status receives live command output. Nil means stderr.
	Status io.Writer
	// Runner replaces the process runner, mainly for tests.
	Runner runner.Runner
}

// Build wires the build service against the PX4 checkout described by cfg and runs
// request.
func Build(ctx context.Context, cfg config.Config, request build.Request, opts BuildOptions, logger *slog.Logger) (build.Outcome, error) {
	logger = logging.Ensure(logger).With("component", "configurations.simple")

	if err := setup.Verify(cfg); err != nil {
		return build.Outcome{}, err
	}

	r := opts.Runner
	switch {
	case request.DryRun:
		r = &runner.DryRun{Logger: logger.With("runner", "dry-run")}
	case r == nil:
		r = runner.Exec{}
	}

	var uploader artifacts.ArtifactStore
	if request.Upload {
		if !cfg.Artifact.Enabled() {
			return build.Outcome{}, errors.New("upload requested but EASY_PX4_S3_ENDPOINT is not set")
		}
		store, err := artifacts.NewS3Store(cfg.Artifact)
		if err != nil {
			return build.Outcome{}, err
		}
		uploader = store
	}

	statusOut := opts.Status
	if statusOut == nil {
		statusOut = os.Stderr
	}

	controller := &vcs.Controller{
		Dir:              cfg.FirmwareDir,
		Runner:           r,
		Logger:           logger,
		StrictSubmodules: opts.StrictSubmodules,
		DryRun:           request.DryRun,
	}
	service := build.Service{
		Logger:   logger.With("service", "build"),
		Config:   cfg,
		Runner:   r,
		Preparer: &git.CheckoutPreparer{Dir: cfg.FirmwareDir, Controller: controller},
		Targets:  &repositories.BuildDirRepository{Dir: cfg.BuildDir()},
		Uploader: uploader,
		Status:   logging.NewStatusLine(statusOut, logger),
	}
	return service.Run(ctx, request)
}

// List returns the targets built in the checkout.
func List(cfg config.Config) ([]build.Target, error) {
	if err := setup.Verify(cfg); err != nil {
		return nil, err
	}
	repo := &repositories.BuildDirRepository{Dir: cfg.BuildDir()}
	targets, err := repo.ListAll()
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return targets, nil
}

// Setup installs the checkout, streaming the clone and bootstrap output to status.
func Setup(ctx context.Context, cfg config.Config, opts setup.Options, status io.Writer, logger *slog.Logger) error {
	logger = logging.Ensure(logger)
	if status == nil {
		status = os.Stderr
	}
	if opts.Sink == nil {
		opts.Sink = logging.NewStatusLine(status, logger)
	}
	return setup.Install(ctx, cfg, runner.Exec{}, opts)
}
