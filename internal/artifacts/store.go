// Package artifacts publishes build outputs, either into a local directory or to an
// S3 compatible bucket.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore stores build outputs under a caller chosen name.
type ArtifactStore interface {
	StoreArtifact(ctx context.Context, artifactPath, name string, kind ArtifactKind, metadata map[string]any) (Artifact, error)
}

func fileURI(path string) string {
	return "file://" + path
}

func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".px4", ".json":
		// a .px4 image is a JSON document wrapping the compressed binary
		return "application/json"
	case ".msg", ".srv", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func fileChecksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	cloned := make(map[string]any, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}
