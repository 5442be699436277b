package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eolab-hsrw/easypx4/internal/build"
)

const droneInfo = `name = "drone"
id = 12345
vendor = "px4"
model = "fmu-v6x"
px4_version = "v1.15.4"
custom_fw_version = "0.0.2"
components = ["camera.sh"]
`

func execute(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestPathsCommand(t *testing.T) {
	base := t.TempDir()

	code, stdout, stderr := execute(t, context.Background(), "paths", "--work-dir", base)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr)
	}

	want := "work_dir\t" + filepath.Join(base, ".easy_px4") + "\n" +
		"firmware_dir\t" + filepath.Join(base, ".easy_px4", "PX4-Autopilot") + "\n"
	if stdout != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}
}

func TestInfoCommandPrintsDerivedNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "info.toml"), []byte(droneInfo), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	code, stdout, stderr := execute(t, context.Background(), "info", "--path", dir, "--work-dir", t.TempDir())
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr)
	}

	var got struct {
		Name        string            `yaml:"name"`
		Airframe    string            `yaml:"airframe"`
		CheckoutRef string            `yaml:"checkout_ref"`
		BuildTag    string            `yaml:"build_tag"`
		Components  []string          `yaml:"components"`
		Targets     map[string]string `yaml:"targets"`
	}
	if err := yaml.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v\n%s", err, stdout)
	}
	if got.Name != "drone" || got.Airframe != "12345_drone" {
		t.Fatalf("name/airframe = %q/%q", got.Name, got.Airframe)
	}
	if got.CheckoutRef != "v1.15.4" || got.BuildTag != "v1.15.4-0.0.2" {
		t.Fatalf("tags = %q -> %q", got.CheckoutRef, got.BuildTag)
	}
	if len(got.Components) != 1 || got.Components[0] != "camera.sh" {
		t.Fatalf("components = %v", got.Components)
	}
	if got.Targets["firmware"] != "px4_fmu-v6x_drone" || got.Targets["sitl"] != "px4_sitl_drone" {
		t.Fatalf("targets = %v", got.Targets)
	}
}

func TestInfoCommandRejectsInvalidDescriptor(t *testing.T) {
	file := filepath.Join(t.TempDir(), "info.toml")
	if err := os.WriteFile(file, []byte("name = \"drone\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	code, _, stderr := execute(t, context.Background(), "info", "--path", file, "--work-dir", t.TempDir())
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if !strings.Contains(stderr, "command execution failed") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestBuildCommandValidation(t *testing.T) {
	source := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing type", args: []string{"build", "--path", source}},
		{name: "unknown type", args: []string{"build", "--type", "hitl", "--path", source}},
		{name: "missing path", args: []string{"build", "--type", "firmware", "--path", filepath.Join(source, "nope")}},
		{name: "not set up", args: []string{"build", "--type", "firmware", "--path", source}},
		{name: "bad log level", args: []string{"build", "--type", "firmware", "--path", source, "--log-level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--work-dir", t.TempDir())
			code, stdout, _ := execute(t, context.Background(), args...)
			if code != 1 {
				t.Fatalf("run(%v) = %d, want 1", tt.args, code)
			}
			if stdout != "" {
				t.Fatalf("stdout = %q, want empty", stdout)
			}
		})
	}
}

func TestCanceledContextExitCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _, _ := execute(t, ctx, "build", "--type", "firmware", "--path", t.TempDir(), "--work-dir", t.TempDir())
	if code != 130 {
		t.Fatalf("run() = %d, want 130", code)
	}
}

func TestListCommandWithoutBuilds(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, ".easy_px4", "PX4-Autopilot", ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	code, stdout, stderr := execute(t, context.Background(), "list", "--work-dir", base)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr)
	}
	if stdout != "" {
		t.Fatalf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "no targets built yet") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestBuildFlagsInstallDependenciesByDefault(t *testing.T) {
	source := t.TempDir()

	tests := []struct {
		name string
		args []string
		skip bool
	}{
		{name: "default", args: nil, skip: false},
		{name: "skip flag", args: []string{"--skip-dependencies"}, skip: true},
		{name: "legacy flag", args: []string{"--install-dependencies"}, skip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts buildOptions
			cmd := &cobra.Command{Use: "build"}
			cmd.SetErr(io.Discard)
			opts.bindFlags(cmd)
			args := append([]string{"--type", "firmware", "--path", source}, tt.args...)
			if err := cmd.ParseFlags(args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			request, err := opts.resolve()
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}
			if request.SkipDependencies != tt.skip {
				t.Fatalf("SkipDependencies = %v, want %v", request.SkipDependencies, tt.skip)
			}
			if request.Variant != build.Firmware || request.SourceDir != source {
				t.Fatalf("request = %+v", request)
			}
		})
	}
}
