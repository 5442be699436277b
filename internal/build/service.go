// Package build customizes the PX4 firmware tree for one drone and runs the PX4 build
// system on it.
//
// A run moves through validate, prepare, configure, build and export. Once the
// checkout was prepared its tags are restored on every exit path, including
// cancellation. Files copied and lines inserted during configure are left in place;
// the next Prepare discards them.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/params"
	"github.com/eolab-hsrw/easypx4/internal/runner"

	"github.com/google/uuid"
)

type Service struct {
	Logger   *slog.Logger
	Config   config.Config
	Runner   runner.Runner
	Preparer CheckoutPreparer
	Targets  TargetRepository
	// Uploader receives the firmware image when Request.Upload is set.
	Uploader artifacts.ArtifactStore
	// Status shows the output of live commands.
	Status runner.LineSink
}

// plan is everything validate resolved for the later stages.
type plan struct {
	request    Request
	source     *descriptor.Directory
	descriptor descriptor.Descriptor
	paths      Params
	airframe   []params.Assignment
}

func (s *Service) Run(ctx context.Context, request Request) (outcome Outcome, err error) {
	outcome = Outcome{RunID: uuid.NewString(), State: StateIdle}
	logger := s.logger().With("run_id", outcome.RunID, "variant", string(request.Variant))

	defer func() {
		if err != nil {
			outcome.State = StateFailed
		}
	}()

	p, err := s.validate(request)
	if err != nil {
		return outcome, err
	}
	outcome.Target = p.paths.Target
	outcome.State = StateValidated
	logger = logger.With("target", p.paths.Target)

	if !request.Overwrite {
		built, err := s.alreadyBuilt(p.paths.Target)
		if err != nil {
			return outcome, &BuildError{Stage: StageValidate, Message: "look up existing build", Err: err}
		}
		if built {
			logger.Info("target already built, use --overwrite to rebuild")
			outcome.Skipped = true
			return outcome, nil
		}
	}

	if err := s.checkInputs(&p); err != nil {
		return outcome, err
	}

	logger.Info("preparing firmware checkout",
		"px4_version", p.descriptor.PX4Version,
		"custom_fw_version", p.descriptor.CustomFWVersion,
	)
	checkout, err := s.Preparer.Prepare(ctx, p.descriptor)
	if err != nil {
		return outcome, &BuildError{Stage: StagePrepare, Message: "prepare firmware checkout", Err: err}
	}
	outcome.Tags = checkout.Tags()
	outcome.State = StatePrepared
	defer func() {
		// restore tags even when ctx was cancelled
		if cleanupErr := checkout.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil {
			logger.Error("restoring firmware tags failed", "error", cleanupErr)
			err = errors.Join(err, &BuildError{Stage: StageCleanup, Message: "restore tags", Err: cleanupErr})
			return
		}
		logger.Debug("firmware tags restored")
	}()

	if err := s.configure(ctx, logger, p); err != nil {
		return outcome, err
	}
	outcome.State = StateConfigured

	if err := s.build(ctx, logger, p); err != nil {
		return outcome, err
	}
	outcome.State = StateBuilt

	stored, err := s.export(ctx, logger, p, outcome.Tags.TargetTag)
	outcome.Artifacts = stored
	if err != nil {
		return outcome, err
	}
	outcome.State = StateDone

	logger.Info("build finished", "tag", outcome.Tags.TargetTag, "artifacts", len(stored))
	return outcome, nil
}

func (s *Service) validate(request Request) (plan, error) {
	fail := func(message string, err error) (plan, error) {
		return plan{}, &BuildError{Stage: StageValidate, Message: message, Err: err}
	}

	variant, err := ParseVariant(string(request.Variant))
	if err != nil {
		return fail("build type", err)
	}
	request.Variant = variant

	if s.Runner == nil {
		return plan{}, errors.New("runner is not configured")
	}
	if s.Preparer == nil {
		return plan{}, errors.New("checkout preparer is not configured")
	}
	if request.Upload && s.Uploader == nil {
		return fail("upload requested", errors.New("no artifact store is configured"))
	}

	source, err := descriptor.LoadDirectory(request.SourceDir, variant.Layout())
	if err != nil {
		return fail("load "+request.SourceDir, err)
	}
	d := source.Descriptor

	return plan{
		request:    request,
		source:     source,
		descriptor: d,
		paths:      variant.Params(s.Config.FirmwareDir, d),
	}, nil
}

// checkInputs validates the files the build consumes. It runs after the overwrite
// guard so a target that is already built is skipped without them.
func (s *Service) checkInputs(p *plan) error {
	fail := func(message string, err error) error {
		return &BuildError{Stage: StageValidate, Message: message, Err: err}
	}

	d := p.descriptor
	if d.HasComponents() {
		if p.request.ComponentsDir == "" {
			return fail("components", ErrComponentsDirRequired)
		}
		if err := checkComponents(d.Components, p.request.ComponentsDir); err != nil {
			return fail("components", err)
		}
	}

	if p.request.ParamsCheck {
		assignments, err := params.ParseAirframeFile(p.source.File(descriptor.RoleParams))
		if err != nil {
			return fail("read airframe", err)
		}
		if problems := params.Check(assignments); len(problems) > 0 {
			return fail("airframe parameters", problemsError(problems))
		}
		p.airframe = assignments
	}
	return nil
}

func (s *Service) alreadyBuilt(target string) (bool, error) {
	if s.Targets == nil {
		_, err := os.Stat(filepath.Join(s.Config.BuildDir(), target))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	_, ok, err := s.Targets.Get(target)
	return ok, err
}

func (s *Service) build(ctx context.Context, logger *slog.Logger, p plan) error {
	if p.request.CleanRun {
		logger.Info("cleaning previous build output")
		res, err := s.run(ctx, []string{"make", "clean"}, true)
		if err != nil {
			return &BuildError{Stage: StageBuild, Message: "make clean", Err: err}
		}
		if res.Failed() {
			logger.Warn("make clean failed, building anyway", "exit_code", res.ExitCode)
		}
	}

	logger.Info("building firmware")
	res, err := s.run(ctx, []string{"make", p.paths.Target}, true)
	if err != nil {
		return &BuildError{Stage: StageBuild, Message: "make " + p.paths.Target, Err: err}
	}
	if res.Failed() {
		return &BuildError{
			Stage:   StageBuild,
			Message: fmt.Sprintf("make %s exited with code %d", p.paths.Target, res.ExitCode),
			Output:  res.Output(),
		}
	}
	return nil
}

// run executes args in the firmware checkout. Live commands stream to Status.
func (s *Service) run(ctx context.Context, args []string, live bool) (runner.Result, error) {
	opts := runner.Options{Live: live}
	if live {
		opts.Sink = s.Status
	}
	return s.Runner.Run(ctx, runner.Command{Args: args, Dir: s.Config.FirmwareDir}, opts)
}

func (s *Service) logger() *slog.Logger {
	return logging.Ensure(s.Logger).With("component", "build")
}

func checkComponents(components []string, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var missing []string
	for _, name := range components {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ComponentsError{Missing: missing, Dir: dir}
	}
	return nil
}

func problemsError(problems []params.Problem) error {
	lines := make([]string, len(problems))
	for i, p := range problems {
		lines[i] = p.String()
	}
	return errors.New(strings.Join(lines, "; "))
}
