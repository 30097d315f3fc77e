package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stockbill/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const (
	JobLowStockAlerts = "low-stock-alerts"
	JobReportRefresh  = "report-cache-refresh"
)

type Intervals struct {
	LowStock      time.Duration
	ReportRefresh time.Duration
}

// JobScheduler runs the periodic jobs of the service.
type JobScheduler struct {
	scheduler gocron.Scheduler
	alerts    *jobs.InventoryAlertService
	refresher *jobs.ReportRefreshService
	logger    logrus.FieldLogger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobScheduler registers the low stock and report refresh jobs. A zero interval
// leaves that job out.
func NewJobScheduler(intervals Intervals, alerts *jobs.InventoryAlertService, refresher *jobs.ReportRefreshService, logger logrus.FieldLogger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		alerts:    alerts,
		refresher: refresher,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := js.registerJobs(intervals); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) registerJobs(intervals Intervals) error {
	if intervals.LowStock > 0 && js.alerts != nil {
		if err := js.add(JobLowStockAlerts, intervals.LowStock, js.alerts.ScheduledLowStockCheck); err != nil {
			return err
		}
	}
	if intervals.ReportRefresh > 0 && js.refresher != nil {
		if err := js.add(JobReportRefresh, intervals.ReportRefresh, js.refresher.ScheduledRefresh); err != nil {
			return err
		}
	}
	js.logger.WithField("jobs", len(js.jobs)).Info("registered background jobs")
	return nil
}

func (js *JobScheduler) add(name string, interval time.Duration, run func(context.Context) error) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.wrap(name, run), js.ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	js.jobs[name] = job
	return nil
}

// wrap adds timing and error logging around a job body.
func (js *JobScheduler) wrap(name string, run func(context.Context) error) func(context.Context) {
	return func(ctx context.Context) {
		started := time.Now()
		logger := js.logger.WithField("job", name)
		if err := run(ctx); err != nil {
			logger.WithError(err).Error("background job failed")
			return
		}
		logger.WithField("duration", time.Since(started).String()).Debug("background job finished")
	}
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

// GetJobStatus returns the registered job names and their next run times.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	nextRuns := make(map[string]string, len(js.jobs))
	for name, job := range js.jobs {
		names = append(names, name)
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			nextRuns[name] = next.UTC().Format(time.RFC3339)
		}
	}
	sort.Strings(names)

	return map[string]interface{}{
		"total_jobs": len(names),
		"jobs":       names,
		"next_runs":  nextRuns,
	}
}
