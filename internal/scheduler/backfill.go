package scheduler

import (
	"context"
	"fmt"
	"time"

	"bortsbooks/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Backfill runs the image backfill on a cron schedule. A run that is still going when
// the next one is due causes that tick to be skipped.
type Backfill struct {
	cron    *cron.Cron
	service service.BackfillService
	timeout time.Duration
	logger  *zap.Logger
}

// NewBackfill schedules svc with a standard five-field cron spec or a descriptor like @hourly.
// timeout bounds a single run; zero leaves runs unbounded.
func NewBackfill(schedule string, svc service.BackfillService, timeout time.Duration, logger *zap.Logger) (*Backfill, error) {
	logger = logger.Named("scheduler")
	cronLogger := cronLogger{logger.Sugar()}

	b := &Backfill{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		service: svc,
		timeout: timeout,
		logger:  logger,
	}

	if _, err := b.cron.AddFunc(schedule, b.run); err != nil {
		return nil, fmt.Errorf("failed to schedule image backfill %q: %w", schedule, err)
	}

	return b, nil
}

// Start begins running the schedule in its own goroutine
func (b *Backfill) Start() {
	b.cron.Start()
	b.logger.Info("Image backfill scheduled")
}

// Stop halts the schedule and waits for a running backfill to finish or ctx to expire
func (b *Backfill) Stop(ctx context.Context) {
	select {
	case <-b.cron.Stop().Done():
	case <-ctx.Done():
		b.logger.Warn("Image backfill still running at shutdown")
	}
}

func (b *Backfill) run() {
	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if _, err := b.service.Run(ctx); err != nil {
		b.logger.Error("Image backfill failed", zap.Error(err))
	}
}

// cronLogger routes the scheduler's own messages through zap
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
