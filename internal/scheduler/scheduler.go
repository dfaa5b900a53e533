package scheduler

import (
	"context"
	"time"

	"coinpilot/internal/logger"
)

// AlignedScheduler fires a task on interval boundaries (hour close, day
// close) plus a fixed offset, so cycles always see a freshly closed candle.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks, running task at each aligned tick until the context ends.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	logger.Infof("scheduler: started interval=%s offset=%s run_immediately=%v",
		s.Interval, s.Offset, s.RunImmediately)

	if s.RunImmediately {
		task()
	}
	for {
		wait := s.untilNextTick(s.nowFn())
		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("scheduler: stopped")
			return
		case <-timer.C:
			task()
		}
	}
}

// untilNextTick computes the wait until the next interval boundary plus
// offset, skipping ahead when the offset already passed this boundary.
func (s *AlignedScheduler) untilNextTick(now time.Time) time.Duration {
	next := now.Truncate(s.Interval).Add(s.Offset)
	for !next.After(now) {
		next = next.Add(s.Interval)
	}
	return next.Sub(now)
}
