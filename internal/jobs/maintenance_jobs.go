package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job names as registered with the scheduler
const (
	AssignmentJobName     = "account_assignment"
	CartReconcileJobName  = "cart_reconcile"
	AuditRetentionJobName = "audit_retention"
)

const (
	assignmentBatchSize    = 500
	cartReconcileBatchSize = 200
)

// AccountAssigner assigns an employee to accounts registered while no
// employee was available.
type AccountAssigner interface {
	AssignUnassignedAccounts(ctx context.Context, limit int) (int, error)
}

// CartReconciler recomputes stored cart totals from their line items.
type CartReconciler interface {
	ReconcileTotals(ctx context.Context, batchSize int) (int, error)
}

// AuditLogCleaner removes audit entries past their retention period.
type AuditLogCleaner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// runWithTimeout bounds a job run and logs its outcome
func runWithTimeout(logger *zap.Logger, name string, timeout time.Duration, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	count, err := fn(ctx)
	if err != nil {
		logger.Error("job failed",
			zap.String("job_name", name),
			zap.Int64("processed", count),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}
	logger.Info("job completed",
		zap.String("job_name", name),
		zap.Int64("processed", count),
		zap.Duration("duration", time.Since(start)))
}

// AssignmentJob backfills employee assignment and the advisor conversation.
type AssignmentJob struct {
	assigner AccountAssigner
	logger   *zap.Logger
	timeout  time.Duration
}

func NewAssignmentJob(assigner AccountAssigner, logger *zap.Logger, timeout time.Duration) *AssignmentJob {
	return &AssignmentJob{assigner: assigner, logger: logger, timeout: timeout}
}

func (j *AssignmentJob) Run() {
	runWithTimeout(j.logger, AssignmentJobName, j.timeout, func(ctx context.Context) (int64, error) {
		n, err := j.assigner.AssignUnassignedAccounts(ctx, assignmentBatchSize)
		return int64(n), err
	})
}

// CartReconcileJob corrects cart totals that drifted from their line items.
type CartReconcileJob struct {
	reconciler CartReconciler
	logger     *zap.Logger
	timeout    time.Duration
}

func NewCartReconcileJob(reconciler CartReconciler, logger *zap.Logger, timeout time.Duration) *CartReconcileJob {
	return &CartReconcileJob{reconciler: reconciler, logger: logger, timeout: timeout}
}

func (j *CartReconcileJob) Run() {
	runWithTimeout(j.logger, CartReconcileJobName, j.timeout, func(ctx context.Context) (int64, error) {
		n, err := j.reconciler.ReconcileTotals(ctx, cartReconcileBatchSize)
		return int64(n), err
	})
}

// AuditRetentionJob deletes audit entries older than the retention period.
type AuditRetentionJob struct {
	cleaner       AuditLogCleaner
	retentionDays int
	logger        *zap.Logger
	timeout       time.Duration
}

func NewAuditRetentionJob(cleaner AuditLogCleaner, retentionDays int, logger *zap.Logger, timeout time.Duration) *AuditRetentionJob {
	return &AuditRetentionJob{cleaner: cleaner, retentionDays: retentionDays, logger: logger, timeout: timeout}
}

func (j *AuditRetentionJob) Run() {
	runWithTimeout(j.logger, AuditRetentionJobName, j.timeout, func(ctx context.Context) (int64, error) {
		return j.cleaner.CleanupOldLogs(ctx, j.retentionDays)
	})
}

// Services bundles what the maintenance jobs act on
type Services struct {
	Assigner   AccountAssigner
	Reconciler CartReconciler
	Cleaner    AuditLogCleaner
}

// Schedule holds the cron expressions of the maintenance jobs. An empty
// expression leaves that job unscheduled.
type Schedule struct {
	AssignmentCron     string
	CartReconcileCron  string
	AuditRetentionCron string
	AuditRetentionDays int
	Timeout            time.Duration
}

// RegisterMaintenanceJobs adds every scheduled maintenance job and returns
// the assignment job so callers can run it once at startup.
func RegisterMaintenanceJobs(s *Scheduler, svc Services, sched Schedule, logger *zap.Logger) (*AssignmentJob, error) {
	assignment := NewAssignmentJob(svc.Assigner, logger, sched.Timeout)

	entries := []struct {
		name string
		expr string
		run  func()
	}{
		{AssignmentJobName, sched.AssignmentCron, assignment.Run},
		{CartReconcileJobName, sched.CartReconcileCron, NewCartReconcileJob(svc.Reconciler, logger, sched.Timeout).Run},
		{AuditRetentionJobName, sched.AuditRetentionCron, NewAuditRetentionJob(svc.Cleaner, sched.AuditRetentionDays, logger, sched.Timeout).Run},
	}
	for _, e := range entries {
		if e.expr == "" {
			continue
		}
		if err := s.AddJob(e.name, e.expr, e.run); err != nil {
			return nil, err
		}
	}
	return assignment, nil
}
