// File: internal/jobs/account_purge.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/user"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AccountPurgeJob hard-deletes soft-deleted accounts once their retention
// window has passed.
type AccountPurgeJob struct {
	userService   *user.ServiceImplementation
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewAccountPurgeJob creates a new AccountPurgeJob.
func NewAccountPurgeJob(
	userService *user.ServiceImplementation,
	logger *zap.Logger,
	cfg *config.Config,
) *AccountPurgeJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &AccountPurgeJob{
		userService:   userService,
		logger:        logger.Named("AccountPurgeJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *AccountPurgeJob) SetupAndStart() error {
	jobSpec := j.cfg.AccountPurgeJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Account purge job schedule not defined (ACCOUNT_PURGE_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule account purge job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Account purge job scheduled",
		zap.String("spec", jobSpec),
		zap.Int("retention_days", j.cfg.AccountPurgeRetentionDay),
		zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *AccountPurgeJob) runJob() {
	j.logger.Info("Starting account purge job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	purgedCount, err := j.userService.PurgeDeleted(ctx)
	if err != nil {
		j.logger.Error("Account purge job run failed", zap.Error(err))
	} else {
		j.logger.Info("Account purge job run completed", zap.Int64("accounts_purged", purgedCount))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *AccountPurgeJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping account purge job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Account purge job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Account purge job scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	cl.zl.Info(msg, fields...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
