package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/runner"
	"github.com/eolab-hsrw/easypx4/internal/runner/runnertest"
)

func init() {
	SetLogger(logging.Discard())
}

func TestVerify(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	if err := Verify(cfg); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("Verify() error = %v, want ErrNotInstalled", err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestInstallClonesAndBootstraps(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	rec := &runnertest.Recorder{}
	if err := Install(context.Background(), cfg, rec, Options{}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	want := []string{
		"git clone https://github.com/PX4/PX4-Autopilot PX4-Autopilot --recursive --no-tags",
		"bash ./Tools/setup/ubuntu.sh",
	}
	if got := rec.Commands(); !slices.Equal(got, want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
	calls := rec.Calls()
	if calls[0].Command.Dir != cfg.WorkDir || calls[1].Command.Dir != cfg.FirmwareDir {
		t.Fatalf("command dirs = %q, %q", calls[0].Command.Dir, calls[1].Command.Dir)
	}
	if _, err := os.Stat(cfg.WorkDir); err != nil {
		t.Fatalf("work directory not created: %v", err)
	}
}

func TestInstallKeepsExistingCheckout(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	rec := &runnertest.Recorder{}
	if err := Install(context.Background(), cfg, rec, Options{}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(rec.Commands()) != 0 {
		t.Fatalf("commands = %q, want none", rec.Commands())
	}
}

func TestInstallForceReclones(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	marker := filepath.Join(cfg.FirmwareDir, "stale")
	if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rec := &runnertest.Recorder{}
	if err := Install(context.Background(), cfg, rec, Options{Force: true, SkipDependencies: true}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("old checkout kept: %v", err)
	}
	if !rec.Ran("git clone") || rec.Ran("bash") {
		t.Fatalf("commands = %q", rec.Commands())
	}
}

func TestInstallCloneFailure(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	rec := (&runnertest.Recorder{}).On("git clone", runner.Result{ExitCode: 128, Stderr: "fatal: unable to access"})
	err := Install(context.Background(), cfg, rec, Options{})
	var ff *runner.FailFastError
	if !errors.As(err, &ff) {
		t.Fatalf("Install() error = %v, want FailFastError", err)
	}
	if rec.Ran("bash") {
		t.Fatal("dependencies installed after failed clone")
	}
}

func TestInstallWithoutClone(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	cfg.Setup.Clone = false
	if err := Install(context.Background(), cfg, &runnertest.Recorder{}, Options{}); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("Install() error = %v, want ErrNotInstalled", err)
	}
}
