package doccache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrStopTimeout is returned by StopCleanup when the sweep worker does not
// exit in time.
var ErrStopTimeout = errors.New("doccache: timed out waiting for cleanup worker to stop")

// StartCleanup starts the background worker that sweeps expired entries at
// every local midnight. Calling it while the worker is running does nothing.
// While a previous worker is still shutting down after a timed-out
// StopCleanup, StartCleanup does nothing and logs a warning.
func (c *Cache[I, C]) StartCleanup() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.cancel != nil {
		return
	}
	if c.done != nil {
		c.logger.Warn().Msg("Previous cleanup worker has not exited yet; not starting another.")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.cleanupWorker(ctx, done)
	c.logger.Info().Dur("retention_window", c.retention).Msg("Started automatic cleanup worker (runs at midnight).")
}

// StopCleanup signals the worker to exit and waits for it, bounded by ctx and
// the configured stop timeout. Calling it while stopped does nothing. After a
// timeout the worker still counts as running until it exits, and a further
// StopCleanup waits for it again.
func (c *Cache[I, C]) StopCleanup(ctx context.Context) error {
	c.lifecycleMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if done == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	waitCtx, waitCancel := context.WithTimeout(ctx, c.stopTimeout)
	defer waitCancel()

	select {
	case <-done:
		c.logger.Info().Msg("Stopped automatic cleanup worker.")
		return nil
	case <-waitCtx.Done():
		c.logger.Error().Err(waitCtx.Err()).Msg("Timeout waiting for cleanup worker to stop.")
		return fmt.Errorf("%w: %w", ErrStopTimeout, waitCtx.Err())
	}
}

// Running reports whether a sweep worker is alive, including one that has
// been asked to stop but has not exited yet.
func (c *Cache[I, C]) Running() bool {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	return c.done != nil
}

// cleanupWorker waits for each local midnight and sweeps. Cancelling ctx
// ends the loop without a final sweep.
func (c *Cache[I, C]) cleanupWorker(ctx context.Context, done chan struct{}) {
	defer func() {
		// Release the handle before closing done so StopCleanup never
		// returns while Running still reports this worker.
		c.lifecycleMu.Lock()
		if c.done == done {
			c.done = nil
		}
		c.lifecycleMu.Unlock()
		close(done)
	}()

	for {
		now := c.clock.Now()
		wait := nextMidnight(now).Sub(now)
		timer := c.clock.NewTimer(wait)
		c.logger.Debug().Dur("wait", wait).Msg("Cleanup worker waiting for next sweep.")

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}

		// A stop raised while the timer fired wins over the sweep.
		if ctx.Err() != nil {
			return
		}
		c.runSweep(ctx)
	}
}

// runSweep performs one sweep and reports it. Faults in the sweep or the
// reporter are logged and never escape.
func (c *Cache[I, C]) runSweep(ctx context.Context) SweepReport {
	report := c.sweep()
	if report.Err != nil {
		c.logger.Error().Err(report.Err).Str("sweep_id", report.ID).Msg("Sweep failed.")
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().Str("sweep_id", report.ID).Msgf("Sweep reporter panicked: %v", r)
			}
		}()
		if err := c.reporter.Report(ctx, report); err != nil {
			c.logger.Error().Err(err).Str("sweep_id", report.ID).Msg("Failed to report sweep.")
		}
	}()
	return report
}

func (c *Cache[I, C]) sweep() (report SweepReport) {
	started := c.clock.Now()
	report = SweepReport{ID: uuid.NewString(), StartedAt: started}

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("sweep panicked: %v", r)
		}
		report.FinishedAt = c.clock.Now()
		report.Remaining = c.store.count()
	}()

	cutoff := started.Add(-c.retention)
	report.Removed = c.store.removeWhere(func(_ string, e entry[Artifacts[I, C]]) bool {
		return e.insertedAt.Before(cutoff)
	})
	return report
}

// nextMidnight returns the start of the day after now, in now's location.
func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
