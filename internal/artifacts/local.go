package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var _ ArtifactStore = (*LocalStore)(nil)

// LocalStore copies artifacts into BaseDir and records their metadata in a
// "<name>.meta.yaml" sidecar.
type LocalStore struct {
	BaseDir string
	// Sidecar enables the metadata document next to each artifact.
	Sidecar bool
}

// StoreArtifact copies artifactPath to BaseDir/name, replacing an existing file.
func (store *LocalStore) StoreArtifact(ctx context.Context, artifactPath, name string, kind ArtifactKind, metadata map[string]any) (Artifact, error) {
	if store.BaseDir == "" {
		return Artifact{}, errors.New("base directory is not configured")
	}
	if artifactPath == "" {
		return Artifact{}, errors.New("artifact path is required")
	}
	if name == "" {
		name = filepath.Base(artifactPath)
	}
	if filepath.Base(name) != name {
		return Artifact{}, fmt.Errorf("artifact name %q must not contain a path", name)
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	if err := os.MkdirAll(store.BaseDir, 0o755); err != nil {
		return Artifact{}, err
	}

	destPath := filepath.Join(store.BaseDir, name)
	if err := copyFile(artifactPath, destPath); err != nil {
		return Artifact{}, err
	}

	checksum, size, err := fileChecksum(destPath)
	if err != nil {
		return Artifact{}, err
	}

	artifact := Artifact{
		ID:          uuid.NewString(),
		Kind:        kind,
		Name:        name,
		URI:         fileURI(destPath),
		Checksum:    checksum,
		ContentType: detectContentType(destPath),
		Size:        size,
		StoredAt:    time.Now().UTC(),
		Metadata:    cloneMetadata(metadata),
	}

	if store.Sidecar {
		if err := store.writeMetadata(destPath, artifact); err != nil {
			return Artifact{}, err
		}
	}
	return artifact, nil
}

func (store *LocalStore) writeMetadata(filePath string, artifact Artifact) error {
	payload, err := yaml.Marshal(artifact)
	if err != nil {
		return err
	}
	return os.WriteFile(metadataPath(filePath), payload, 0o644)
}

// ReadMetadata loads the sidecar written for the artifact at path.
func ReadMetadata(path string) (Artifact, error) {
	data, err := os.ReadFile(metadataPath(path))
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decode %s: %w", metadataPath(path), err)
	}
	return artifact, nil
}

func metadataPath(path string) string {
	return path + ".meta.yaml"
}

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
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
