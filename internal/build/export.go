package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/eolab-hsrw/easypx4/internal/artifacts"
	"github.com/eolab-hsrw/easypx4/internal/params"
)

func (s *Service) export(ctx context.Context, logger *slog.Logger, p plan, tag string) ([]artifacts.Artifact, error) {
	fail := func(message string, err error) error {
		return &BuildError{Stage: StageExport, Message: message, Err: err}
	}
	if p.request.DryRun {
		logger.Info("dry run: skipping export")
		return nil, nil
	}

	var stored []artifacts.Artifact
	buildDir := filepath.Join(s.Config.BuildDir(), p.paths.Target)

	if p.request.ParamsCheck {
		if err := s.checkKnownParams(logger, p, buildDir); err != nil {
			return nil, fail("airframe parameters", err)
		}
	}

	wantsImage := p.request.OutputDir != "" || p.request.Upload
	if wantsImage && p.request.Variant != Firmware {
		logger.Warn("firmware export only applies to firmware builds, skipping", "variant", string(p.request.Variant))
		wantsImage = false
	}
	if wantsImage {
		image := filepath.Join(buildDir, p.paths.Target+".px4")
		name := p.descriptor.Name + ".px4"
		metadata := map[string]any{
			"target":            p.paths.Target,
			"tag":               tag,
			"px4_version":       p.descriptor.PX4Version,
			"custom_fw_version": p.descriptor.CustomFWVersion,
			"airframe_id":       p.descriptor.ID,
		}

		if p.request.OutputDir != "" {
			store := &artifacts.LocalStore{BaseDir: p.request.OutputDir, Sidecar: true}
			a, err := store.StoreArtifact(ctx, image, name, artifacts.FirmwareArtifact, metadata)
			if err != nil {
				return stored, fail("export firmware", err)
			}
			logger.Info("firmware exported", "uri", a.URI, "sha256", a.Checksum)
			stored = append(stored, a)
		}
		if p.request.Upload {
			a, err := s.Uploader.StoreArtifact(ctx, image, path.Join(p.paths.Target, tag, name), artifacts.FirmwareArtifact, metadata)
			if err != nil {
				return stored, fail("upload firmware", err)
			}
			logger.Info("firmware uploaded", "uri", a.URI)
			stored = append(stored, a)
		}
	}

	if p.request.MessagesDir != "" {
		msgs, err := exportMessages(ctx, logger, s.Config.FirmwareDir, p.request.MessagesDir)
		stored = append(stored, msgs...)
		if err != nil {
			return stored, fail("export message definitions", err)
		}
		logger.Info("message definitions exported", "dir", p.request.MessagesDir, "files", len(msgs))
	}
	return stored, nil
}

func (s *Service) checkKnownParams(logger *slog.Logger, p plan, buildDir string) error {
	metaPath := filepath.Join(buildDir, "parameters.xml")
	meta, err := params.LoadMetadata(metaPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("build produced no parameter metadata, skipping parameter name check", "path", metaPath)
		return nil
	}
	if err != nil {
		return err
	}
	if problems := params.CheckKnown(p.airframe, meta); len(problems) > 0 {
		return problemsError(problems)
	}
	logger.Info("airframe parameters checked", "parameters", len(p.airframe), "known", meta.Len())
	return nil
}

// messageSources maps destination subdirectories to the firmware globs copied into them.
var messageSources = []struct {
	dest  string
	globs []string
}{
	{"msg", []string{"msg/*.msg", "msg/versioned/*.msg"}},
	{"srv", []string{"srv/*.srv"}},
}

// exportMessages replaces outDir/msg and outDir/srv with the definitions of the
// checked out firmware version.
func exportMessages(ctx context.Context, logger *slog.Logger, root, outDir string) ([]artifacts.Artifact, error) {
	for _, src := range messageSources {
		if _, err := os.Stat(filepath.Join(outDir, src.dest)); errors.Is(err, os.ErrNotExist) {
			logger.Warn("message output has no existing directory, it may not be a px4_msgs checkout", "dir", outDir, "missing", src.dest)
		}
	}

	var stored []artifacts.Artifact
	for _, src := range messageSources {
		dest := filepath.Join(outDir, src.dest)
		if err := os.RemoveAll(dest); err != nil {
			return stored, err
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return stored, err
		}

		var files []string
		for _, pattern := range src.globs {
			matches, err := filepath.Glob(filepath.Join(root, pattern))
			if err != nil {
				return stored, fmt.Errorf("glob %s: %w", pattern, err)
			}
			files = append(files, matches...)
		}
		sort.Strings(files)

		store := &artifacts.LocalStore{BaseDir: dest}
		for _, file := range files {
			a, err := store.StoreArtifact(ctx, file, filepath.Base(file), artifacts.MessagesArtifact, nil)
			if err != nil {
				return stored, err
			}
			stored = append(stored, a)
		}
	}
	return stored, nil
}
