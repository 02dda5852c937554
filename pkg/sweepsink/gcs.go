package sweepsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
)

// GCSClient abstracts the top-level *storage.Client.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle abstracts a *storage.BucketHandle.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle abstracts a *storage.ObjectHandle.
type GCSObjectHandle interface {
	NewWriter(ctx context.Context) GCSWriter
}

// GCSWriter abstracts a *storage.Writer.
type GCSWriter interface {
	io.WriteCloser
}

type gcsClientAdapter struct {
	client *storage.Client
}

// NewGCSClientAdapter makes a *storage.Client conform to GCSClient.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return &gcsClientAdapter{client: client}
}

func (a *gcsClientAdapter) Bucket(name string) GCSBucketHandle {
	return &gcsBucketHandleAdapter{handle: a.client.Bucket(name)}
}

type gcsBucketHandleAdapter struct {
	handle *storage.BucketHandle
}

func (a *gcsBucketHandleAdapter) Object(name string) GCSObjectHandle {
	return &gcsObjectHandleAdapter{handle: a.handle.Object(name)}
}

type gcsObjectHandleAdapter struct {
	handle *storage.ObjectHandle
}

func (a *gcsObjectHandleAdapter) NewWriter(ctx context.Context) GCSWriter {
	w := a.handle.NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

// GCSConfig holds configuration for the sweep archive.
type GCSConfig struct {
	BucketName   string
	ObjectPrefix string
}

// GCSReporter archives every sweep as a JSON object under
// <prefix>/<cache>/YYYY/MM/DD/<sweep id>.json.
type GCSReporter struct {
	client    GCSClient
	config    GCSConfig
	cacheName string
	logger    zerolog.Logger
}

// NewGCSReporter creates a reporter writing to cfg.BucketName.
func NewGCSReporter(client GCSClient, cfg GCSConfig, cacheName string, logger zerolog.Logger) (*GCSReporter, error) {
	if client == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	return &GCSReporter{
		client:    client,
		config:    cfg,
		cacheName: cacheName,
		logger:    logger.With().Str("component", "GCSSweepReporter").Str("bucket", cfg.BucketName).Logger(),
	}, nil
}

// ObjectName returns the archive path for a sweep record.
func (r *GCSReporter) ObjectName(rec SweepRecord) string {
	return path.Join(r.config.ObjectPrefix, r.cacheName, rec.FinishedAt.UTC().Format("2006/01/02"), rec.SweepID+".json")
}

// Report writes the sweep record. The object is only committed when the
// writer closes cleanly.
func (r *GCSReporter) Report(ctx context.Context, report doccache.SweepReport) (err error) {
	rec := NewSweepRecord(r.cacheName, report)
	objectName := r.ObjectName(rec)

	w := r.client.Bucket(r.config.BucketName).Object(objectName).NewWriter(ctx)
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close GCS writer for %s: %w", objectName, closeErr)
		}
	}()

	if encErr := json.NewEncoder(w).Encode(rec); encErr != nil {
		return fmt.Errorf("failed to write sweep record to %s: %w", objectName, encErr)
	}
	r.logger.Debug().Str("object_name", objectName).Msg("Archived sweep record.")
	return nil
}
