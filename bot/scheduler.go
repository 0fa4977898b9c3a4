package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/redeem-code-bot/config"
)

// Scheduler invokes the runner on a fixed interval or at a fixed daily
// time. Ticks are serialized: a cycle that is still running when the next
// tick is due delays it, never overlaps it.
type Scheduler struct {
	cfg    *config.Config
	runner *Runner
	now    func() time.Time
}

// NewScheduler builds a scheduler for the configured mode.
func NewScheduler(cfg *config.Config, runner *Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		now:    time.Now,
	}
}

// Run blocks until ctx is done, executing cycles at the configured
// cadence. Cycle failures are logged and the loop keeps going; only
// shutdown ends it.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.ScheduleMode == config.ScheduleInterval {
		// Interval mode fires immediately on startup, daily mode waits
		// for its wall-clock time.
		s.tick(ctx)
	}

	for {
		timer := time.NewTimer(s.nextWait())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) nextWait() time.Duration {
	if s.cfg.ScheduleMode == config.ScheduleDaily {
		return s.cfg.DailyAt.Next(s.now()).Sub(s.now())
	}
	return s.cfg.Interval
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	slog.Info("starting cycle", slog.String("url", s.cfg.WikiURL))

	result, err := s.runner.RunCycle(ctx)
	if err != nil {
		attrs := []any{slog.Any("error", err)}
		if payload := diagnosticPayload(err); payload != "" {
			attrs = append(attrs, slog.String("markup", payload))
		}
		slog.Error("cycle failed", attrs...)
		return
	}

	if result.Skipped {
		slog.Info("page unchanged, cycle skipped",
			slog.Int("memo_size", result.MemoSize),
		)
		return
	}

	slog.Info("cycle complete",
		slog.Int("added", len(result.Added)),
		slog.Bool("notified", result.Notified),
		slog.String("memo", strings.Join(s.runner.MemoCodes(), ", ")),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime)),
	)
}
