package build_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/build"
	"github.com/eolab-hsrw/easypx4/internal/build/adapters/git"
	"github.com/eolab-hsrw/easypx4/internal/build/repositories"
	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/runner"
	"github.com/eolab-hsrw/easypx4/internal/runner/runnertest"
	"github.com/eolab-hsrw/easypx4/internal/vcs"

	"github.com/stretchr/testify/require"
)

const (
	commitHash     = "3f1c2a9d0b7e6f5a4c3b2a1908f7e6d5c4b3a291"
	firmwareTarget = "px4_fmu-v6x_drone"

	airframesCMake = "px4_add_romfs_files(\n\t# [4000, 4999] Quadrotor x\n\t4001_quad_x\n)\n"
	posixCMake     = "px4_add_romfs_files(\n\t# [22000, 22999] Reserve for custom models\n)\n"
	initCMake      = "px4_add_romfs_files(\n\trc.autostart\n\trcS\n)\n"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// firmwareTree lays out the parts of a PX4 checkout a build touches.
func firmwareTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	romfs := filepath.Join(root, "ROMFS", "px4fmu_common")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "boards", "px4", "fmu-v6x"), 0o755))
	write(t, filepath.Join(romfs, "init.d", "airframes", "CMakeLists.txt"), airframesCMake)
	write(t, filepath.Join(romfs, "init.d-posix", "airframes", "CMakeLists.txt"), posixCMake)
	write(t, filepath.Join(romfs, "init.d", "CMakeLists.txt"), initCMake)
	return root
}

func infoTOML(px4Version, customFW string, extra ...string) string {
	content := `name = "drone"
id = 12345
vendor = "px4"
model = "fmu-v6x"
px4_version = "` + px4Version + `"
custom_fw_version = "` + customFW + `"
`
	for _, line := range extra {
		content += line + "\n"
	}
	return content
}

// sourceDir writes a drone configuration directory for variant.
func sourceDir(t *testing.T, variant build.Variant, info string) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "info.toml"), info)
	write(t, filepath.Join(dir, "params.airframe"), "#!/bin/sh\nparam set-default MAV_TYPE 2\n")
	modules := "board.modules"
	if variant == build.SITL {
		modules = "sitl.modules"
	}
	write(t, filepath.Join(dir, modules), "CONFIG_MODULES_COMMANDER=y\n")
	return dir
}

type harness struct {
	root     string
	recorder *runnertest.Recorder
	service  *build.Service
}

// newHarness wires the service to a real version controller driven by a scripted
// runner. make <target> leaves a firmware image behind like the PX4 build does.
func newHarness(t *testing.T, target string) *harness {
	t.Helper()
	root := firmwareTree(t)
	rec := (&runnertest.Recorder{}).On("git rev-list", runner.Result{Stdout: commitHash + "\n"})
	rec.Do("make "+target, func(runner.Command) {
		write(t, filepath.Join(root, "build", target, target+".px4"), `{"image": "firmware"}`)
	})

	logger := logging.Discard()
	ctrl := &vcs.Controller{Dir: root, Runner: rec, Logger: logger}
	return &harness{
		root:     root,
		recorder: rec,
		service: &build.Service{
			Logger:   logger,
			Config:   config.Config{FirmwareDir: root},
			Runner:   rec,
			Preparer: &git.CheckoutPreparer{Dir: root, Controller: ctrl},
			Targets:  &repositories.BuildDirRepository{Dir: filepath.Join(root, "build")},
		},
	}
}

type fakePreparer struct {
	state      vcs.TagState
	err        error
	cleanupErr error

	prepared   int
	cleanups   int
	cleanupCtx error
}

func (f *fakePreparer) Prepare(context.Context, descriptor.Descriptor) (build.Checkout, error) {
	f.prepared++
	if f.err != nil {
		return nil, f.err
	}
	return fakeCheckout{f}, nil
}

type fakeCheckout struct{ p *fakePreparer }

func (c fakeCheckout) Tags() vcs.TagState { return c.p.state }

func (c fakeCheckout) Cleanup(ctx context.Context) error {
	c.p.cleanups++
	c.p.cleanupCtx = ctx.Err()
	return c.p.cleanupErr
}

type fakeUploader struct {
	names []string
}

func (f *fakeUploader) StoreArtifact(_ context.Context, path, name string, kind artifacts.ArtifactKind, metadata map[string]any) (artifacts.Artifact, error) {
	if _, err := os.Stat(path); err != nil {
		return artifacts.Artifact{}, err
	}
	f.names = append(f.names, name)
	return artifacts.Artifact{Kind: kind, Name: name, URI: "s3://bucket/" + name, Metadata: metadata}, nil
}
