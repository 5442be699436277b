package build

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/vcs"
)

// Variant selects what kind of firmware is built.
type Variant string

const (
	// Firmware is flashed onto the flight controller.
	Firmware Variant = "firmware"
	// SITL runs the flight stack in simulation.
	SITL Variant = "sitl"
)

// Variants lists the accepted --type values.
var Variants = []Variant{Firmware, SITL}

func ParseVariant(value string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(value))); v {
	case Firmware, SITL:
		return v, nil
	default:
		return "", fmt.Errorf("unknown build type %q (expected firmware or sitl)", value)
	}
}

// Layout returns the source directory layout for the variant.
func (v Variant) Layout() descriptor.Layout {
	if v == SITL {
		return descriptor.SITLLayout()
	}
	return descriptor.FirmwareLayout()
}

// Params are the variant specific paths and names of one build. Paths point into the
// firmware checkout.
type Params struct {
	Tooling []string
	// BoardConfig receives the module list.
	BoardConfig string
	// InitDir holds the startup scripts of the variant.
	InitDir string
	// AirframesDir receives the airframe file; its CMakeLists.txt is edited.
	AirframesDir   string
	AirframeAnchor string
	// ComponentsDir receives extra startup components; its CMakeLists.txt is edited
	// above the rcS line.
	ComponentsDir string
	Target        string
}

const (
	firmwareAnchor   = "[4000, 4999] Quadrotor x"
	sitlAnchor       = "# [22000, 22999] Reserve for custom models"
	componentsAnchor = "rcS"
)

// Params resolves the variant's paths below the firmware checkout root.
func (v Variant) Params(root string, d descriptor.Descriptor) Params {
	romfs := filepath.Join(root, "ROMFS", "px4fmu_common")
	p := Params{ComponentsDir: filepath.Join(romfs, "init.d")}

	switch v {
	case SITL:
		p.Tooling = []string{"bash", "./Tools/setup/ubuntu.sh"}
		p.BoardConfig = filepath.Join(root, "boards", d.Vendor, "sitl", d.Name+".px4board")
		p.InitDir = filepath.Join(romfs, "init.d-posix")
		p.AirframeAnchor = sitlAnchor
		p.Target = fmt.Sprintf("%s_sitl_%s", d.Vendor, d.Name)
	default:
		p.Tooling = []string{"bash", "./Tools/setup/ubuntu.sh", "--no-sim-tools"}
		p.BoardConfig = filepath.Join(root, "boards", d.Vendor, d.Model, d.Name+".px4board")
		p.InitDir = filepath.Join(romfs, "init.d")
		p.AirframeAnchor = firmwareAnchor
		p.Target = fmt.Sprintf("%s_%s_%s", d.Vendor, d.Model, d.Name)
	}
	p.AirframesDir = filepath.Join(p.InitDir, "airframes")
	return p
}

// Request is one build invocation.
type Request struct {
	Variant Variant
	// SourceDir holds the descriptor, airframe and module list.
	SourceDir string
	// ComponentsDir holds the files named by the descriptor's components.
	ComponentsDir string
	// OutputDir receives {name}.px4 after a firmware build.
	OutputDir string
	// MessagesDir receives msg/ and srv/ definitions of the built version.
	MessagesDir string

	// SkipDependencies leaves out the PX4 toolchain script that otherwise runs
	// before the tree is configured.
	SkipDependencies bool

	DryRun      bool
	CleanRun    bool
	Overwrite   bool
	ParamsCheck bool
	Upload      bool
}

// Stage names a step of the run in errors.
type Stage string

const (
	StageValidate  Stage = "validate"
	StagePrepare   Stage = "prepare"
	StageConfigure Stage = "configure"
	StageBuild     Stage = "build"
	StageExport    Stage = "export"
	StageCleanup   Stage = "cleanup"
)

// State is the point a run has reached.
type State string

const (
	StateIdle       State = "idle"
	StateValidated  State = "validated"
	StatePrepared   State = "prepared"
	StateConfigured State = "configured"
	StateBuilt      State = "built"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Outcome summarizes a finished run.
type Outcome struct {
	RunID  string
	State  State
	Target string
	// Skipped is set when the target was already built and overwrite was not asked for.
	Skipped   bool
	Tags      vcs.TagState
	Artifacts []artifacts.Artifact
}

// Target is a build directory found in the firmware checkout.
type Target struct {
	Name string
	// Firmware is the path of the .px4 image, empty for targets that do not produce
	// one (SITL).
	Firmware string
	BuiltAt  time.Time
}
