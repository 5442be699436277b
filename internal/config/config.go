// Package config resolves where the PX4 checkout lives and how build artifacts are
// published. The resulting Config is built once at startup and passed to every
// component.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvWorkDir = "EASY_PX4_WORK_DIR"
	EnvRepo    = "EASY_PX4_PX4_REPO"

	// WorkDirName is created inside the base directory.
	WorkDirName = ".easy_px4"
	// FirmwareDirName is the PX4 checkout inside the work directory.
	FirmwareDirName = "PX4-Autopilot"

	DefaultRepo     = "https://github.com/PX4/PX4-Autopilot"
	DefaultBucket   = "easypx4-firmware"
	DefaultS3Region = "us-east-1"
)

type Config struct {
	WorkDir     string
	FirmwareDir string
	Repository  string
	Setup       SetupConfig
	Artifact    ArtifactConfig
}

// SetupConfig controls what setup does when no checkout exists yet.
type SetupConfig struct {
	Clone       bool
	InstallDeps bool
}

// ArtifactConfig configures the optional S3 compatible firmware upload.
type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Enabled reports whether an upload target is configured.
func (c ArtifactConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Load reads .env from the current directory, if any, then the environment.
// baseOverride replaces EASY_PX4_WORK_DIR when non-empty.
func Load(baseOverride string) (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv, baseOverride)
}

// FromEnv builds a Config from the lookup function.
func FromEnv(getenv func(string) string, baseOverride string) (Config, error) {
	base := firstNonEmpty(strings.TrimSpace(baseOverride), strings.TrimSpace(getenv(EnvWorkDir)))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		base = home
	}

	cfg := New(base)
	cfg.Repository = firstNonEmpty(strings.TrimSpace(getenv(EnvRepo)), DefaultRepo)
	cfg.Setup = SetupConfig{
		Clone:       parseBool(getenv("EASY_PX4_CLONE_PX4"), true),
		InstallDeps: parseBool(getenv("EASY_PX4_INSTALL_DEPS"), true),
	}
	cfg.Artifact = ArtifactConfig{
		Endpoint:  strings.TrimSpace(getenv("EASY_PX4_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(getenv("EASY_PX4_S3_REGION")), DefaultS3Region),
		AccessKey: strings.TrimSpace(getenv("EASY_PX4_S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(getenv("EASY_PX4_S3_SECRET_KEY")),
		Bucket:    firstNonEmpty(strings.TrimSpace(getenv("EASY_PX4_S3_BUCKET")), DefaultBucket),
		Prefix:    strings.Trim(strings.TrimSpace(getenv("EASY_PX4_S3_PREFIX")), "/"),
		UseSSL:    parseBool(getenv("EASY_PX4_S3_USE_SSL"), true),
	}
	return cfg, nil
}

// New lays out the work and firmware directories below base.
func New(base string) Config {
	workDir := filepath.Join(base, WorkDirName)
	return Config{
		WorkDir:     workDir,
		FirmwareDir: filepath.Join(workDir, FirmwareDirName),
		Repository:  DefaultRepo,
		Setup:       SetupConfig{Clone: true, InstallDeps: true},
	}
}

// FirmwarePath joins elem onto the firmware checkout.
func (c Config) FirmwarePath(elem ...string) string {
	return filepath.Join(append([]string{c.FirmwareDir}, elem...)...)
}

// BuildDir is where the PX4 build system writes target directories.
func (c Config) BuildDir() string {
	return c.FirmwarePath("build")
}

func parseBool(raw string, fallback bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
