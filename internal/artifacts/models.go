package artifacts

import "time"

type ArtifactKind string

const (
	FirmwareArtifact ArtifactKind = "firmware" // .px4 image produced by the build
	MessagesArtifact ArtifactKind = "messages" // uORB message and service definitions
)

type Artifact struct {
	ID   string       `yaml:"id"`
	Kind ArtifactKind `yaml:"kind"`
	Name string       `yaml:"name"`
	URI  string       `yaml:"uri"`

	Checksum    string         `yaml:"sha256,omitempty"`
	ContentType string         `yaml:"content_type"`
	Size        int64          `yaml:"size"`
	StoredAt    time.Time      `yaml:"stored_at"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}
