package artifacts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/model"
)

func TestForUser_IsolatesUsers(t *testing.T) {
	ctx := context.Background()
	base, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	alice := ForUser(base, "alice")
	bob := ForUser(base, "bob")

	require.NoError(t, alice.Put(ctx, "anomaly_detector_v1.0.model", []byte("a")))

	got, err := alice.Get(ctx, "anomaly_detector_v1.0.model")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	_, err = bob.Get(ctx, "anomaly_detector_v1.0.model")
	assert.True(t, errors.Is(err, model.ErrArtifactNotFound))
}

func TestForUser_SanitisesPrefix(t *testing.T) {
	base, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	s := ForUser(base, "../team/42")
	assert.Equal(t, "user-___team_42_goal.model", filepath.Base(s.Location("goal.model")))
}
