package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/textedit"
)

// step is one file operation of the configure stage.
type step struct {
	what string
	do   func() error
}

func (s *Service) configure(ctx context.Context, logger *slog.Logger, p plan) error {
	fail := func(message string, err error) error {
		return &BuildError{Stage: StageConfigure, Message: message, Err: err}
	}

	if p.request.SkipDependencies {
		logger.Info("skipping PX4 dependency installation")
	} else {
		if err := ctx.Err(); err != nil {
			return fail("install dependencies", err)
		}
		logger.Info("installing PX4 dependencies")
		res, err := s.run(ctx, p.paths.Tooling, true)
		if err != nil {
			return fail("install dependencies", err)
		}
		if res.Failed() {
			return &BuildError{
				Stage:   StageConfigure,
				Message: fmt.Sprintf("install dependencies exited with code %d", res.ExitCode),
				Output:  res.Output(),
			}
		}
	}

	d := p.descriptor
	airframe := d.AirframeName()
	steps := []step{
		{"copy module list to " + p.paths.BoardConfig, func() error {
			return copyFile(p.source.File(descriptor.RoleModules), p.paths.BoardConfig)
		}},
		{"copy airframe " + airframe, func() error {
			return copyFile(p.source.File(descriptor.RoleParams), filepath.Join(p.paths.AirframesDir, airframe))
		}},
		{"register airframe " + airframe, func() error {
			return insertOnce(textedit.Anchor{
				Path:  filepath.Join(p.paths.AirframesDir, "CMakeLists.txt"),
				Match: p.paths.AirframeAnchor,
				Line:  airframe,
			})
		}},
	}

	switch {
	case d.HasComponents():
		dir := p.request.ComponentsDir
		for _, name := range d.Components {
			name := name
			steps = append(steps, step{"copy component " + name, func() error {
				return copyFile(filepath.Join(dir, name), filepath.Join(p.paths.ComponentsDir, name))
			}})
		}
		anchor := textedit.Anchor{
			Path:  filepath.Join(p.paths.ComponentsDir, "CMakeLists.txt"),
			Match: componentsAnchor,
			Line:  strings.Join(d.Components, " "),
		}
		steps = append(steps, step{"register components", func() error {
			return insertOnce(anchor)
		}})
	case p.request.ComponentsDir != "":
		logger.Warn("components directory given but the descriptor declares no components, skipping", "dir", p.request.ComponentsDir)
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return fail(st.what, err)
		}
		if p.request.DryRun {
			logger.Info("dry run: skipping", "step", st.what)
			continue
		}
		logger.Debug(st.what)
		if err := st.do(); err != nil {
			return fail(st.what, err)
		}
	}
	logger.Info("firmware tree configured", "airframe", airframe, "components", len(d.Components))
	return nil
}

// insertOnce applies a and fails when its match is missing, which means the PX4
// version lays out its build files differently.
func insertOnce(a textedit.Anchor) error {
	n, err := a.Apply()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("anchor %q not found in %s", a.Match, a.Path)
	}
	return nil
}

// copyFile copies src to dst keeping the permission bits, creating dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// O_CREATE does not apply the mode to an existing file
	return os.Chmod(dst, info.Mode().Perm())
}
