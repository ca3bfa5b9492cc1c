package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/jobs"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)
	s := NewStore()
	for i, j := range []jobs.TrainModelJob{
		{JobID: "a", UserID: "u1", Kind: jobs.ModelSpending, Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "u1", Kind: jobs.ModelGoals, Status: jobs.JobStatusFailed},
		{JobID: "c", UserID: "u2", Kind: jobs.ModelSpending, Status: jobs.JobStatusPending},
		{JobID: "d", UserID: "u1", Kind: jobs.ModelSpending, Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveJob(ctx, &j))
	}
	return s
}

func TestStore_SaveRequiresID(t *testing.T) {
	err := NewStore().SaveJob(context.Background(), &jobs.TrainModelJob{UserID: "u1"})
	assert.Error(t, err)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	job, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	job.Status = jobs.JobStatusFailed

	again, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, again.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.Error(t, err)
}

func TestStore_ListJobs(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all ordered by creation", filter: jobs.JobFilter{}, want: []string{"a", "b", "c", "d"}},
		{name: "by user", filter: jobs.JobFilter{UserID: "u1"}, want: []string{"a", "b", "d"}},
		{name: "by kind", filter: jobs.JobFilter{Kind: jobs.ModelSpending}, want: []string{"a", "c", "d"}},
		{name: "by status", filter: jobs.JobFilter{Status: jobs.JobStatusPending}, want: []string{"c", "d"}},
		{name: "limit and offset", filter: jobs.JobFilter{Offset: 1, Limit: 2}, want: []string{"b", "c"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateJobStatus(ctx, "c", jobs.JobStatusFailed, "no history"))
	job, err := s.GetJob(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, job.Status)
	assert.Equal(t, "no history", job.Error)
	assert.NotNil(t, job.CompletedAt)

	assert.Error(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""))
}

func TestStore_Latest(t *testing.T) {
	s := seedStore(t)

	job, ok := s.Latest("u1", jobs.ModelSpending)
	require.True(t, ok)
	assert.Equal(t, "d", job.JobID)

	_, ok = s.Latest("u2", jobs.ModelAnomaly)
	assert.False(t, ok)
}
