package sweepsink

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrDocumentNotFound is returned by DocumentStore.Get for a missing document.
var ErrDocumentNotFound = errors.New("document not found")

// FirestoreConfig holds configuration for the last-sweep collection.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// DocumentStore abstracts the Firestore operations the reporter needs.
type DocumentStore interface {
	Set(ctx context.Context, collection, id string, data any) error
	// Get decodes the document into dst, returning ErrDocumentNotFound if it
	// does not exist.
	Get(ctx context.Context, collection, id string, dst any) error
}

type firestoreAdapter struct {
	client *firestore.Client
}

// NewFirestoreDocumentStore adapts a *firestore.Client to DocumentStore. The
// client's lifecycle stays with the caller.
func NewFirestoreDocumentStore(client *firestore.Client) DocumentStore {
	if client == nil {
		return nil
	}
	return &firestoreAdapter{client: client}
}

func (a *firestoreAdapter) Set(ctx context.Context, collection, id string, data any) error {
	_, err := a.client.Collection(collection).Doc(id).Set(ctx, data)
	return err
}

func (a *firestoreAdapter) Get(ctx context.Context, collection, id string, dst any) error {
	snap, err := a.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrDocumentNotFound)
		}
		return err
	}
	return snap.DataTo(dst)
}

// FirestoreReporter keeps the most recent sweep of each cache as a document
// keyed by cache name.
type FirestoreReporter struct {
	store      DocumentStore
	collection string
	cacheName  string
	logger     zerolog.Logger
}

// NewFirestoreReporter creates a reporter writing to cfg.CollectionName.
func NewFirestoreReporter(store DocumentStore, cfg *FirestoreConfig, cacheName string, logger zerolog.Logger) (*FirestoreReporter, error) {
	if store == nil {
		return nil, errors.New("firestore document store cannot be nil")
	}
	if cfg == nil || cfg.CollectionName == "" {
		return nil, errors.New("firestore collection name is required")
	}
	return &FirestoreReporter{
		store:      store,
		collection: cfg.CollectionName,
		cacheName:  cacheName,
		logger:     logger.With().Str("component", "FirestoreSweepReporter").Str("collection", cfg.CollectionName).Logger(),
	}, nil
}

// Report overwrites the cache's last-sweep document.
func (r *FirestoreReporter) Report(ctx context.Context, report doccache.SweepReport) error {
	rec := NewSweepRecord(r.cacheName, report)
	if err := r.store.Set(ctx, r.collection, r.cacheName, rec); err != nil {
		return fmt.Errorf("firestore set for %s: %w", r.cacheName, err)
	}
	r.logger.Debug().Str("sweep_id", rec.SweepID).Msg("Stored last sweep in Firestore.")
	return nil
}

// LastSweep returns the most recently stored sweep, or nil if none has been
// written yet.
func (r *FirestoreReporter) LastSweep(ctx context.Context) (*SweepRecord, error) {
	var rec SweepRecord
	if err := r.store.Get(ctx, r.collection, r.cacheName, &rec); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get for %s: %w", r.cacheName, err)
	}
	return &rec, nil
}
