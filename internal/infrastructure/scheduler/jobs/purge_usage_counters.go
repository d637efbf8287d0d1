package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURGE USAGE COUNTERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// UsagePurger deletes counters of a feature not touched since a cutoff.
type UsagePurger interface {
	PurgeBefore(ctx context.Context, f quota.Feature, before time.Time) (int64, error)
}

// PurgeUsageCountersJob drops daily coach counters older than the retention window.
// Per-conversation counters stay: their scope never rolls over.
type PurgeUsageCountersJob struct {
	repo      UsagePurger
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
	last      atomic.Pointer[PurgeStats]
}

// NewPurgeUsageCountersJob creates the job.
func NewPurgeUsageCountersJob(repo UsagePurger, retention time.Duration, log *logger.Logger) *PurgeUsageCountersJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PurgeUsageCountersJob{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name.
func (j *PurgeUsageCountersJob) Name() string {
	return "purge_usage_counters"
}

// Description returns a human-readable description.
func (j *PurgeUsageCountersJob) Description() string {
	return "Deletes daily coach usage counters older than retention"
}

// Run executes the purge.
func (j *PurgeUsageCountersJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)

	deleted, err := j.repo.PurgeBefore(ctx, quota.FeatureCoachMessage, cutoff)
	if err != nil {
		return fmt.Errorf("purge usage counters: %w", err)
	}

	j.last.Store(&PurgeStats{RanAt: now, Cutoff: cutoff, Deleted: deleted})
	j.logger.Info("usage counters purged",
		logger.Int64("deleted", deleted),
		logger.Time("cutoff", cutoff),
	)
	return nil
}

// LastStats returns the stats of the last successful run, or nil.
func (j *PurgeUsageCountersJob) LastStats() *PurgeStats {
	return j.last.Load()
}
