package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/quota"
)

type fakeVerificationPurger struct {
	before time.Time
	n      int64
	err    error
}

func (f *fakeVerificationPurger) PurgeUnverified(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return f.n, f.err
}

type fakeUsagePurger struct {
	feature quota.Feature
	before  time.Time
	n       int64
}

func (f *fakeUsagePurger) PurgeBefore(_ context.Context, feat quota.Feature, before time.Time) (int64, error) {
	f.feature = feat
	f.before = before
	return f.n, nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestPurgeVerificationRecordsJob(t *testing.T) {
	repo := &fakeVerificationPurger{n: 4}
	job := NewPurgeVerificationRecordsJob(repo, 7*24*time.Hour, nil)
	job.now = func() time.Time { return fixedNow }

	assert.Nil(t, job.LastStats())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, fixedNow.Add(-7*24*time.Hour), repo.before)
	require.NotNil(t, job.LastStats())
	assert.Equal(t, int64(4), job.LastStats().Deleted)
	assert.Equal(t, "purge_verification_records", job.Name())
}

func TestPurgeVerificationRecordsJob_Error(t *testing.T) {
	repo := &fakeVerificationPurger{err: errors.New("db down")}
	job := NewPurgeVerificationRecordsJob(repo, time.Hour, nil)

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Nil(t, job.LastStats())
}

func TestPurgeUsageCountersJob_OnlyDailyCoachCounters(t *testing.T) {
	repo := &fakeUsagePurger{n: 9}
	job := NewPurgeUsageCountersJob(repo, 30*24*time.Hour, nil)
	job.now = func() time.Time { return fixedNow }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, quota.FeatureCoachMessage, repo.feature)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), repo.before)
	assert.Equal(t, int64(9), job.LastStats().Deleted)
}
