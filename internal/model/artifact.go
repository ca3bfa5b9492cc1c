package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store holds model artifacts under flat keys.
type Store interface {
	// Put writes data under key, replacing any previous artifact.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the artifact under key. It returns an error wrapping
	// ErrArtifactNotFound when nothing is stored there.
	Get(ctx context.Context, key string) ([]byte, error)

	// Location describes where key lives, for logs and Save results.
	Location(key string) string
}

// BlobKey is the key of the fitted-parameter blob of a model version.
func BlobKey(name, version string) string {
	return fmt.Sprintf("%s_v%s.model", name, version)
}

// MetadataKey is the key of the metadata record stored next to the blob.
func MetadataKey(name, version string) string {
	return fmt.Sprintf("%s_v%s_metadata.json", name, version)
}

// Save writes the metadata and then the blob artifacts of m and returns the
// blob location. A failed metadata write leaves the stored version untouched.
// A failed blob write can leave the new metadata next to the previous blob.
func Save(ctx context.Context, store Store, m Persistable) (string, error) {
	if m == nil {
		return "", &PersistenceError{Op: "save", Path: "<nil>", Err: ErrModelNotTrained}
	}
	blob, err := m.State()
	if err != nil {
		return "", &PersistenceError{Op: "save", Path: "<state>", Err: err}
	}
	info := m.Info()
	blobKey := BlobKey(info.Name, info.Version)

	meta, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", &PersistenceError{Op: "save", Path: MetadataKey(info.Name, info.Version), Err: err}
	}

	metaKey := MetadataKey(info.Name, info.Version)
	if err := store.Put(ctx, metaKey, meta); err != nil {
		return "", &PersistenceError{Op: "save", Path: store.Location(metaKey), Err: err}
	}
	if err := store.Put(ctx, blobKey, blob); err != nil {
		return "", &PersistenceError{Op: "save", Path: store.Location(blobKey), Err: err}
	}
	return store.Location(blobKey), nil
}

// Load reads the blob and metadata of a model version. A missing blob fails;
// a missing metadata record degrades to empty metrics and feature names.
func Load(ctx context.Context, store Store, name, version string) ([]byte, Info, error) {
	info := Info{Name: name, Version: version}

	blobKey := BlobKey(name, version)
	blob, err := store.Get(ctx, blobKey)
	if err != nil {
		return nil, info, &PersistenceError{Op: "load", Path: store.Location(blobKey), Err: err}
	}

	metaKey := MetadataKey(name, version)
	meta, err := store.Get(ctx, metaKey)
	switch {
	case errors.Is(err, ErrArtifactNotFound):
		info.Metrics = map[string]float64{}
		info.Metadata = map[string]any{}
		return blob, info, nil
	case err != nil:
		return nil, info, &PersistenceError{Op: "load", Path: store.Location(metaKey), Err: err}
	}

	if err := json.Unmarshal(meta, &info); err != nil {
		return nil, info, &PersistenceError{Op: "load", Path: store.Location(metaKey), Err: fmt.Errorf("decode metadata: %w", err)}
	}
	if info.Metrics == nil {
		info.Metrics = map[string]float64{}
	}
	if info.Metadata == nil {
		info.Metadata = map[string]any{}
	}
	return blob, info, nil
}
