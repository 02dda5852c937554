package doccache_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/clock"
	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
)

// testIndex stands in for a search index.
type testIndex struct {
	Name string
}

type testCache = doccache.Cache[*testIndex, string]

func artifacts(name string, chunks ...string) doccache.Artifacts[*testIndex, string] {
	return doccache.Artifacts[*testIndex, string]{Index: &testIndex{Name: name}, Chunks: chunks}
}

// reportCollector is a Reporter that forwards every report to a channel.
type reportCollector struct {
	reports chan doccache.SweepReport
}

func newReportCollector() *reportCollector {
	return &reportCollector{reports: make(chan doccache.SweepReport, 16)}
}

func (r *reportCollector) Report(_ context.Context, report doccache.SweepReport) error {
	r.reports <- report
	return nil
}

func (r *reportCollector) next(t *testing.T) doccache.SweepReport {
	t.Helper()
	select {
	case report := <-r.reports:
		return report
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sweep report")
		return doccache.SweepReport{}
	}
}

func (r *reportCollector) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case report := <-r.reports:
		t.Fatalf("unexpected sweep report: %+v", report)
	case <-time.After(wait):
	}
}

// newTestCache builds a cache on a fake clock with the sweep worker stopped.
func newTestCache(t *testing.T, start time.Time, reporter doccache.Reporter) (*testCache, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(start)
	c := doccache.New[*testIndex, string](&doccache.Config{
		Clock:          fc,
		DisableCleanup: true,
	}, reporter, zerolog.Nop())
	t.Cleanup(func() { _ = c.StopCleanup(context.Background()) })
	return c, fc
}

func newFakeAt(start time.Time) *clock.Fake {
	return clock.NewFake(start)
}
