// Package sweepsink provides doccache.Reporter implementations that publish
// sweep results to external systems.
package sweepsink

import (
	"time"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
)

// SweepRecord is the serialisable form of a doccache.SweepReport.
type SweepRecord struct {
	SweepID    string    `json:"sweep_id" bigquery:"sweep_id" firestore:"sweep_id"`
	CacheName  string    `json:"cache_name" bigquery:"cache_name" firestore:"cache_name"`
	StartedAt  time.Time `json:"started_at" bigquery:"started_at" firestore:"started_at"`
	FinishedAt time.Time `json:"finished_at" bigquery:"finished_at" firestore:"finished_at"`
	Removed    int       `json:"removed" bigquery:"removed" firestore:"removed"`
	Remaining  int       `json:"remaining" bigquery:"remaining" firestore:"remaining"`
	Error      string    `json:"error,omitempty" bigquery:"error" firestore:"error"`
}

// NewSweepRecord converts a report produced by the cache named cacheName.
func NewSweepRecord(cacheName string, report doccache.SweepReport) SweepRecord {
	rec := SweepRecord{
		SweepID:    report.ID,
		CacheName:  cacheName,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Removed:    report.Removed,
		Remaining:  report.Remaining,
	}
	if report.Err != nil {
		rec.Error = report.Err.Error()
	}
	return rec
}
