package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DueProcessor is the part of ScheduleService the worker drives.
type DueProcessor interface {
	ProcessDue(ctx context.Context, now time.Time, maxCampaigns int) (*ProcessResult, error)
}

// ScheduleWorker runs ProcessDue once per tick
type ScheduleWorker struct {
	Processor   DueProcessor
	Ticks       <-chan time.Time
	BatchSize   int
	TickTimeout time.Duration
	Logger      *zap.Logger
}

// Constructor
func NewScheduleWorker(p DueProcessor, ticks <-chan time.Time, batchSize int, tickTimeout time.Duration, log *zap.Logger) *ScheduleWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScheduleWorker{
		Processor:   p,
		Ticks:       ticks,
		BatchSize:   batchSize,
		TickTimeout: tickTimeout,
		Logger:      log,
	}
}

// Start processes ticks until ctx is cancelled or the tick channel closes.
func (w *ScheduleWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case now, ok := <-w.Ticks:
			if !ok {
				return
			}
			w.tick(ctx, now)
		}
	}
}

func (w *ScheduleWorker) tick(ctx context.Context, now time.Time) {
	if w.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.TickTimeout)
		defer cancel()
	}

	res, err := w.Processor.ProcessDue(ctx, now.UTC(), w.BatchSize)
	if err != nil {
		w.Logger.Error("scheduled campaign run failed", zap.Error(err))
		return
	}
	if res.Evaluated > 0 {
		w.Logger.Info("scheduled campaign run finished",
			zap.Int("processed", res.Evaluated),
			zap.Int("handed_off", res.HandedOff),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
}
