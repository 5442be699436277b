package artifacts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eolab-hsrw/easypx4/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ ArtifactStore = (*S3Store)(nil)

// S3Store uploads artifacts to an S3 compatible bucket.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	endpoint   string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg config.ArtifactConfig) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = config.DefaultS3Region
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		endpoint:   endpoint,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// StoreArtifact uploads artifactPath as <prefix>/<name>. Metadata values are sent
// as object user metadata.
func (s *S3Store) StoreArtifact(ctx context.Context, artifactPath, name string, kind ArtifactKind, metadata map[string]any) (Artifact, error) {
	if s == nil {
		return Artifact{}, fmt.Errorf("store is nil")
	}
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return Artifact{}, fmt.Errorf("artifact name is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Artifact{}, fmt.Errorf("ensure bucket: %w", err)
	}

	checksum, size, err := fileChecksum(artifactPath)
	if err != nil {
		return Artifact{}, err
	}
	f, err := os.Open(artifactPath)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	key := ObjectKey(s.prefix, name)
	contentType := detectContentType(artifactPath)
	userMeta := UserMetadata(metadata)
	userMeta["Kind"] = string(kind)
	userMeta["Sha256"] = checksum

	_, err = s.client.PutObject(ctx, s.bucketName, key, f, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("upload %s: %w", key, err)
	}

	return Artifact{
		ID:          uuid.NewString(),
		Kind:        kind,
		Name:        name,
		URI:         fmt.Sprintf("s3://%s/%s", s.bucketName, key),
		Checksum:    checksum,
		ContentType: contentType,
		Size:        size,
		StoredAt:    time.Now().UTC(),
		Metadata:    cloneMetadata(metadata),
	}, nil
}

// ObjectKey joins the configured prefix and the artifact name.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// UserMetadata renders metadata values as S3 user metadata headers. Keys are
// title-cased the way S3 reports them back.
func UserMetadata(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		if v == nil {
			continue
		}
		out[headerKey(k)] = fmt.Sprint(v)
	}
	return out
}

func headerKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, "-")
}
