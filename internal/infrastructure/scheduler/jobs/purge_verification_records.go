// Package jobs contains the worker's scheduled maintenance jobs.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURGE VERIFICATION RECORDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// VerificationPurger deletes unverified attempts older than a cutoff.
type VerificationPurger interface {
	PurgeUnverified(ctx context.Context, before time.Time) (int64, error)
}

// PurgeStats describes the last run of a purge job.
type PurgeStats struct {
	RanAt   time.Time
	Cutoff  time.Time
	Deleted int64
}

// PurgeVerificationRecordsJob drops unverified verification attempts once they
// are past expiry by more than the retention window. Verified records are kept.
type PurgeVerificationRecordsJob struct {
	repo      VerificationPurger
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
	last      atomic.Pointer[PurgeStats]
}

// NewPurgeVerificationRecordsJob creates the job.
func NewPurgeVerificationRecordsJob(repo VerificationPurger, retention time.Duration, log *logger.Logger) *PurgeVerificationRecordsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PurgeVerificationRecordsJob{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name.
func (j *PurgeVerificationRecordsJob) Name() string {
	return "purge_verification_records"
}

// Description returns a human-readable description.
func (j *PurgeVerificationRecordsJob) Description() string {
	return "Deletes unverified verification attempts past expiry plus retention"
}

// Run executes the purge.
func (j *PurgeVerificationRecordsJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)

	deleted, err := j.repo.PurgeUnverified(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge verification records: %w", err)
	}

	j.last.Store(&PurgeStats{RanAt: now, Cutoff: cutoff, Deleted: deleted})
	j.logger.Info("verification records purged",
		logger.Int64("deleted", deleted),
		logger.Time("cutoff", cutoff),
	)
	return nil
}

// LastStats returns the stats of the last successful run, or nil.
func (j *PurgeVerificationRecordsJob) LastStats() *PurgeStats {
	return j.last.Load()
}
