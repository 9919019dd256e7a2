package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner runs jobs on cron specs. A job that is still running when its next
// tick arrives is skipped, so runs of one job never overlap.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(baseCtx context.Context, logger *zap.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. spec uses the standard five field format or
// descriptors such as @hourly and @every 10m.
func (r *Runner) Add(name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		if r.baseCtx.Err() != nil {
			return
		}
		started := time.Now()
		r.logger.Info("job started", zap.String("job", name))
		if err := job(r.baseCtx); err != nil {
			r.logger.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(started)), zap.Error(err))
			return
		}
		r.logger.Info("job done", zap.String("job", name), zap.Duration("took", time.Since(started)))
	})
}

// Next returns the next activation of an entry.
func (r *Runner) Next(id cron.EntryID) time.Time {
	return r.cron.Entry(id).Next
}

func (r *Runner) Start() {
	r.logger.Info("scheduler started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs to return.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("scheduler stopped")
}

// Run starts the runner and blocks until the base context is done.
func (r *Runner) Run() {
	r.Start()
	<-r.baseCtx.Done()
	r.Stop()
}
