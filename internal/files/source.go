package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSScheme prefixes dataset paths stored in Google Cloud Storage.
const GCSScheme = "gs://"

// ErrInvalidURI is returned for malformed gs:// paths.
var ErrInvalidURI = errors.New("invalid object uri")

// ObjectOpener opens a bucket object for reading.
type ObjectOpener interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	Close() error
}

// Source opens dataset files from the local file system or from GCS.
// Relative local paths are resolved against the base directory.
type Source struct {
	base            string
	credentialsFile string
	logger          *slog.Logger

	mu      sync.Mutex
	objects ObjectOpener
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithCredentialsFile sets the service account file used for gs:// paths.
func WithCredentialsFile(path string) SourceOption {
	return func(s *Source) { s.credentialsFile = path }
}

// WithObjectOpener replaces the GCS client.
func WithObjectOpener(o ObjectOpener) SourceOption {
	return func(s *Source) { s.objects = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SourceOption {
	return func(s *Source) { s.logger = l }
}

// NewSource creates a source rooted at base.
func NewSource(base string, opts ...SourceOption) *Source {
	s := &Source{base: base, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a reader for path.
func (s *Source) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if IsGCS(path) {
		bucket, object, err := ParseGCSURI(path)
		if err != nil {
			return nil, err
		}
		objects, err := s.objectOpener(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.DebugContext(ctx, "Opening object",
			slog.String("bucket", bucket),
			slog.String("object", object))
		rc, err := objects.NewReader(ctx, bucket, object)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return rc, nil
	}

	full := s.Resolve(path)
	s.logger.DebugContext(ctx, "Opening file",
		slog.String("path", path),
		slog.String("full_path", full))
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create opens a local file for writing, creating parent directories.
func (s *Source) Create(path string) (*os.File, error) {
	if IsGCS(path) {
		return nil, fmt.Errorf("create %s: only local paths are writable", path)
	}
	full := s.Resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return os.Create(full)
}

// Exists reports whether a local path exists. Object paths are assumed to.
func (s *Source) Exists(path string) bool {
	if IsGCS(path) {
		return true
	}
	_, err := os.Stat(s.Resolve(path))
	return err == nil
}

// Resolve makes a local path absolute against the base directory.
func (s *Source) Resolve(path string) string {
	if filepath.IsAbs(path) || s.base == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(s.base, path)
}

// Close releases the GCS client, if one was created.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		return nil
	}
	err := s.objects.Close()
	s.objects = nil
	return err
}

func (s *Source) objectOpener(ctx context.Context) (ObjectOpener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects != nil {
		return s.objects, nil
	}

	var opts []option.ClientOption
	if s.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s.objects = &gcsOpener{client: client}
	return s.objects, nil
}

// IsGCS reports whether path is a gs:// URI.
func IsGCS(path string) bool {
	return strings.HasPrefix(path, GCSScheme)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, GCSScheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, object, nil
}

type gcsOpener struct {
	client *storage.Client
}

func (g *gcsOpener) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (g *gcsOpener) Close() error {
	return g.client.Close()
}
