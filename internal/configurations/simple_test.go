package configurations

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eolab-hsrw/easypx4/internal/build"
	"github.com/eolab-hsrw/easypx4/internal/config"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/runner/runnertest"
	"github.com/eolab-hsrw/easypx4/internal/setup"
)

func TestBuildRequiresSetup(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	_, err := Build(context.Background(), cfg, build.Request{Variant: build.Firmware}, BuildOptions{Runner: &runnertest.Recorder{}}, logging.Discard())
	if !errors.Is(err, setup.ErrNotInstalled) {
		t.Fatalf("Build() error = %v, want ErrNotInstalled", err)
	}
}

func TestBuildUploadRequiresEndpoint(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	rec := &runnertest.Recorder{}
	_, err := Build(context.Background(), cfg, build.Request{Variant: build.Firmware, Upload: true}, BuildOptions{Runner: rec}, logging.Discard())
	if err == nil {
		t.Fatal("Build() error = nil, want missing endpoint")
	}
	if len(rec.Commands()) != 0 {
		t.Fatalf("commands ran: %q", rec.Commands())
	}
}

func TestBuildSkipsBuiltTarget(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	for _, dir := range []string{".git", filepath.Join("build", "px4_fmu-v6x_drone")} {
		if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, dir), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}

	src := t.TempDir()
	files := map[string]string{
		"info.toml":       "name = \"drone\"\nid = 12345\nvendor = \"px4\"\nmodel = \"fmu-v6x\"\npx4_version = \"v1.15.4\"\n",
		"params.airframe": "param set-default MAV_TYPE 2\n",
		"board.modules":   "CONFIG_MODULES_COMMANDER=y\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	rec := &runnertest.Recorder{}
	var status bytes.Buffer
	outcome, err := Build(context.Background(), cfg, build.Request{Variant: build.Firmware, SourceDir: src}, BuildOptions{Runner: rec, Status: &status}, logging.Discard())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !outcome.Skipped || outcome.Target != "px4_fmu-v6x_drone" {
		t.Fatalf("Build() outcome = %+v, want skipped px4_fmu-v6x_drone", outcome)
	}
	if len(rec.Commands()) != 0 {
		t.Fatalf("commands ran: %q", rec.Commands())
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	cfg := config.New(t.TempDir())
	if _, err := List(cfg); !errors.Is(err, setup.ErrNotInstalled) {
		t.Fatalf("List() error = %v, want ErrNotInstalled", err)
	}

	for _, dir := range []string{".git", filepath.Join("build", "px4_sitl_drone")} {
		if err := os.MkdirAll(filepath.Join(cfg.FirmwareDir, dir), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	targets, err := List(cfg)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(targets) != 1 || targets[0].Name != "px4_sitl_drone" {
		t.Fatalf("List() = %+v", targets)
	}
}
