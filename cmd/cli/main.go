package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/build"
	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/configurations"
	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/setup"
	"github.com/eolab-hsrw/easypx4/internal/vcs"
)

const defaultLogLevel = "info"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	root := app.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			app.logger.Warn("command interrupted", "error", err)
			return 130
		}
		app.logger.Error("command execution failed", "error", err)
		return 1
	}
	return 0
}

// app holds what the persistent flags resolve to.
type app struct {
	stdout, stderr io.Writer

	levelVar slog.LevelVar
	logger   *slog.Logger
	cfg      config.Config

	logLevel  string
	logFormat string
	workDir   string
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	a.levelVar.Set(slog.LevelInfo)
	a.logger = logging.NewCLI(stderr, &a.levelVar)
	return a
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "easypx4",
		Short:         "Build custom PX4 firmware for a drone from a declarative configuration directory",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log output format (text, json)")
	root.PersistentFlags().StringVar(&a.workDir, "work-dir", "", "Base directory of the .easy_px4 work directory (default $EASY_PX4_WORK_DIR or home)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init()
	}

	root.AddCommand(
		a.buildCommand(),
		a.setupCommand(),
		a.infoCommand(),
		a.listCommand(),
		a.pathsCommand(),
	)
	return root
}

func (a *app) init() error {
	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	mode, err := logging.ParseMode(a.logFormat)
	if err != nil {
		return err
	}
	a.levelVar.Set(level)
	a.logger = logging.New(mode, a.stderr, &a.levelVar)
	slog.SetDefault(a.logger)
	setup.SetLogger(a.logger)

	cfg, err := config.Load(a.workDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded", "work_dir", cfg.WorkDir, "firmware_dir", cfg.FirmwareDir)
	return nil
}

// buildOptions collects the build command flags.
type buildOptions struct {
	buildType        string
	request          build.Request
	skipDeps         bool
	legacySkipDeps   bool
	strictSubmodules bool
}

// resolve turns the flags into a request with absolute directories.
func (o *buildOptions) resolve() (build.Request, error) {
	request := o.request
	variant, err := build.ParseVariant(o.buildType)
	if err != nil {
		return build.Request{}, err
	}
	request.Variant = variant
	request.SkipDependencies = o.skipDeps || o.legacySkipDeps

	dirs := []struct {
		flag string
		path *string
	}{
		{"path", &request.SourceDir},
		{"comps", &request.ComponentsDir},
		{"output", &request.OutputDir},
		{"msgs-output", &request.MessagesDir},
	}
	for _, dir := range dirs {
		if *dir.path == "" {
			continue
		}
		abs, err := descriptor.ValidDir(*dir.path)
		if err != nil {
			return build.Request{}, fmt.Errorf("--%s: %w", dir.flag, err)
		}
		*dir.path = abs
	}
	return request, nil
}

// bindFlags registers the build flags of cmd onto o.
func (o *buildOptions) bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.buildType, "type", "", "Type of build (firmware, sitl)")
	flags.StringVar(&o.request.SourceDir, "path", "", "Directory with build configuration files")
	flags.StringVar(&o.request.ComponentsDir, "comps", "", "Directory with components for the build filesystem")
	flags.StringVar(&o.request.OutputDir, "output", "", "Output directory for the firmware image (firmware only)")
	flags.StringVar(&o.request.MessagesDir, "msgs-output", "", "Directory to receive the msg/ and srv/ definitions of the built PX4 version")
	flags.BoolVar(&o.request.DryRun, "dry-run", false, "Log every step without running commands or changing files")
	flags.BoolVar(&o.request.CleanRun, "clean-run", false, "Run make clean before building")
	flags.BoolVar(&o.request.Overwrite, "overwrite", false, "Rebuild even if the target was built before")
	flags.BoolVar(&o.skipDeps, "skip-dependencies", false, "Do not run the official PX4 Tools/setup/ubuntu.sh script before building")
	flags.BoolVar(&o.legacySkipDeps, "install-dependencies", false, "Skip the PX4 dependency script")
	_ = flags.MarkDeprecated("install-dependencies", "it skips the dependency script, use --skip-dependencies")
	flags.BoolVar(&o.request.ParamsCheck, "params-check", false, "Check airframe parameter names and values")
	flags.BoolVar(&o.request.Upload, "upload", false, "Upload the firmware image to the configured S3 bucket")
	flags.BoolVar(&o.strictSubmodules, "strict-submodules", false, "Fail when git submodule synchronization fails")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("path")
}

func (a *app) buildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Args:  cobra.NoArgs,
		Short: "Customize the PX4 tree for a drone and build its firmware",
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := opts.resolve()
			if err != nil {
				return err
			}

			cmdLogger := a.logger.With("command", "build", "type", string(request.Variant))
			cmdLogger.Info("starting build", "path", request.SourceDir, "dry_run", request.DryRun)

			outcome, err := configurations.Build(cmd.Context(), a.cfg, request, configurations.BuildOptions{
				StrictSubmodules: opts.strictSubmodules,
				Status:           a.stderr,
			}, cmdLogger)
			if err != nil {
				return err
			}
			if outcome.Skipped {
				cmdLogger.Info("nothing to do", "target", outcome.Target)
				return nil
			}
			for _, artifact := range outcome.Artifacts {
				if artifact.Kind == artifacts.FirmwareArtifact {
					fmt.Fprintln(a.stdout, artifact.URI)
				}
			}
			cmdLogger.Info("build completed", "target", outcome.Target, "tag", outcome.Tags.TargetTag)
			return nil
		},
	}

	opts.bindFlags(cmd)

	return cmd
}

func (a *app) setupCommand() *cobra.Command {
	var opts setup.Options

	cmd := &cobra.Command{
		Use:   "setup",
		Args:  cobra.NoArgs,
		Short: "Clone PX4-Autopilot into the work directory and install its toolchain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "setup")
			cmdLogger.Info("setting up", "work_dir", a.cfg.WorkDir)
			if err := configurations.Setup(cmd.Context(), a.cfg, opts, a.stderr, cmdLogger); err != nil {
				return err
			}
			cmdLogger.Info("setup completed", "firmware_dir", a.cfg.FirmwareDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.SkipDependencies, "skip-deps", false, "Do not run the PX4 dependency installation script")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Remove an existing checkout and clone again")
	return cmd
}

// descriptorInfo is what the info command prints.
type descriptorInfo struct {
	descriptor.Descriptor `yaml:",inline"`

	Airframe    string            `yaml:"airframe"`
	CheckoutRef string            `yaml:"checkout_ref"`
	BuildTag    string            `yaml:"build_tag"`
	Targets     map[string]string `yaml:"targets"`
}

func (a *app) infoCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "info",
		Args:  cobra.NoArgs,
		Short: "Validate a drone descriptor and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			file := path
			if stat, err := os.Stat(path); err == nil && stat.IsDir() {
				found, err := descriptor.FindFile(path)
				if err != nil {
					return err
				}
				file = found
			}

			d, err := descriptor.LoadFile(file)
			if err != nil {
				return err
			}

			original, target := vcs.ComposeTags(d)
			if d.PX4Commit != "" {
				original = d.PX4Commit
			}
			view := descriptorInfo{
				Descriptor:  d,
				Airframe:    d.AirframeName(),
				CheckoutRef: original,
				BuildTag:    target,
				Targets:     make(map[string]string, len(build.Variants)),
			}
			for _, v := range build.Variants {
				view.Targets[string(v)] = v.Params(a.cfg.FirmwareDir, d).Target
			}

			out, err := yaml.Marshal(view)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Descriptor file or directory containing info.toml")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "List targets built in the PX4 checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := a.logger.With("command", "list")
			targets, err := configurations.List(a.cfg)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				cmdLogger.Warn("no targets built yet", "build_dir", a.cfg.BuildDir())
				return nil
			}
			for _, t := range targets {
				firmware := "-"
				if t.Firmware != "" {
					firmware = filepath.Base(t.Firmware)
				}
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", t.Name, firmware, t.BuiltAt.UTC().Format(time.RFC3339))
			}
			cmdLogger.Debug("listed targets", "count", len(targets))
			return nil
		},
	}
}

func (a *app) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Args:  cobra.NoArgs,
		Short: "Print the work directory and the PX4-Autopilot checkout location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "work_dir\t%s\nfirmware_dir\t%s\n", a.cfg.WorkDir, a.cfg.FirmwareDir)
			return nil
		},
	}
}
