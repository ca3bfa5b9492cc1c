package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-insights/internal/model"
)

// GCSStore keeps model artifacts as objects in a Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a storage client and returns a store writing under
// gs://bucket/prefix.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, prefix), nil
}

// NewGCSStoreWithClient wraps an existing storage client.
func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Put uploads data to the object for key.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.object(key)).NewWriter(ctx)
	w.ContentType = contentType(key)
	closed := false
	defer func() {
		// Ensure the writer is closed even on early returns
		if !closed {
			_ = w.Close()
		}
	}()

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("GCSStore.Put: write %s: %w", s.Location(key), err)
	}

	closed = true
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSStore.Put: finalize upload %s: %w", s.Location(key), err)
	}
	return nil
}

// Get downloads the object for key.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.object(key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("GCSStore.Get: %s: %w", s.Location(key), model.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: open reader %s: %w", s.Location(key), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: read %s: %w", s.Location(key), err)
	}
	return data, nil
}

// Location returns the gs:// URI for key.
func (s *GCSStore) Location(key string) string {
	return "gs://" + s.bucket + "/" + s.object(key)
}

func (s *GCSStore) object(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func contentType(key string) string {
	if path.Ext(key) == ".json" {
		return "application/json"
	}
	return "application/octet-stream"
}

var _ model.Store = (*GCSStore)(nil)
