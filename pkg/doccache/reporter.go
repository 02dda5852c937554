package doccache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// SweepReport describes one completed sweep.
type SweepReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	// Removed is the number of expired entries deleted.
	Removed int
	// Remaining is the number of entries left after the sweep.
	Remaining int
	// Err is set if the sweep itself failed part way through.
	Err error
}

// Reporter receives the outcome of each sweep. Implementations are called
// from the sweep worker and must be safe for concurrent use with an on-demand
// SweepExpired.
type Reporter interface {
	Report(ctx context.Context, report SweepReport) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, report SweepReport) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, report SweepReport) error {
	return f(ctx, report)
}

// LogReporter writes sweep results to a zerolog.Logger.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a Reporter that logs through logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{
		logger: logger.With().Str("component", "SweepLogReporter").Logger(),
	}
}

// Report logs the sweep. Sweeps that removed nothing are logged at debug level.
func (r *LogReporter) Report(_ context.Context, report SweepReport) error {
	var event *zerolog.Event
	switch {
	case report.Err != nil:
		event = r.logger.Error().Err(report.Err)
	case report.Removed > 0:
		event = r.logger.Info()
	default:
		event = r.logger.Debug()
	}
	event.
		Str("sweep_id", report.ID).
		Int("removed", report.Removed).
		Int("remaining", report.Remaining).
		Time("swept_at", report.FinishedAt).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Cleaned up expired entries.")
	return nil
}

// MultiReporter fans a report out to every reporter in order. A failing
// reporter does not stop the rest; all errors are joined.
type MultiReporter []Reporter

// Report sends report to each reporter.
func (m MultiReporter) Report(ctx context.Context, report SweepReport) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
