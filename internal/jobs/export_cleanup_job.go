package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type exportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

// ExportCleanupJob removes expired export files from disk.
type ExportCleanupJob struct {
	exports exportCleaner
	ttl     time.Duration
	logger  *zap.Logger
}

// NewExportCleanupJob builds the job.
func NewExportCleanupJob(exports exportCleaner, ttl time.Duration, logger *zap.Logger) *ExportCleanupJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportCleanupJob{exports: exports, ttl: ttl, logger: logger}
}

// Name identifies the job in queue payloads and logs.
func (j *ExportCleanupJob) Name() string { return "export-cleanup" }

// Run deletes exports older than the configured TTL.
func (j *ExportCleanupJob) Run(_ context.Context) error {
	removed, err := j.exports.Cleanup(j.ttl)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		j.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return nil
}
