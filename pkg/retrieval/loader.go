package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyDocument is returned when there is no content to index.
var ErrEmptyDocument = errors.New("retrieval: document is empty")

// ArtifactCache is the part of *doccache.Cache the loader depends on.
type ArtifactCache[I any, C any] interface {
	Get(key string) (doccache.Artifacts[I, C], bool)
	Set(key string, value doccache.Artifacts[I, C])
}

// Builder turns a document into its search index and chunks.
type Builder[I any, C any] interface {
	Build(ctx context.Context, fingerprint string, content []byte) (doccache.Artifacts[I, C], error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc[I any, C any] func(ctx context.Context, fingerprint string, content []byte) (doccache.Artifacts[I, C], error)

// Build calls f.
func (f BuilderFunc[I, C]) Build(ctx context.Context, fingerprint string, content []byte) (doccache.Artifacts[I, C], error) {
	return f(ctx, fingerprint, content)
}

// Loader returns cached artifacts for a document, building and caching them
// on a miss. Concurrent misses for the same fingerprint share one build.
type Loader[I any, C any] struct {
	cache   ArtifactCache[I, C]
	builder Builder[I, C]
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader[I any, C any](cache ArtifactCache[I, C], builder Builder[I, C], logger zerolog.Logger) (*Loader[I, C], error) {
	if cache == nil || builder == nil {
		return nil, errors.New("cache and builder cannot be nil")
	}
	return &Loader[I, C]{
		cache:   cache,
		builder: builder,
		logger:  logger.With().Str("component", "ArtifactLoader").Logger(),
	}, nil
}

// Load fingerprints content and returns its artifacts.
func (l *Loader[I, C]) Load(ctx context.Context, content []byte) (doccache.Artifacts[I, C], error) {
	if len(content) == 0 {
		return doccache.Artifacts[I, C]{}, ErrEmptyDocument
	}
	return l.LoadFingerprint(ctx, Fingerprint(content), content)
}

// LoadFingerprint returns the artifacts cached under fingerprint, building
// them from content on a miss. A failed build is not cached. Cancelling ctx
// only abandons this caller's wait; a build already under way continues for
// the other callers and is still cached.
func (l *Loader[I, C]) LoadFingerprint(ctx context.Context, fingerprint string, content []byte) (doccache.Artifacts[I, C], error) {
	var zero doccache.Artifacts[I, C]

	if artifacts, ok := l.cache.Get(fingerprint); ok {
		l.logger.Debug().Str("fingerprint", fingerprint).Msg("Cache hit.")
		return artifacts, nil
	}

	// The build is shared by every caller waiting on this fingerprint, so it
	// must not be cancelled by whichever caller happened to start it.
	buildCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(fingerprint, func() (interface{}, error) {
		// Another caller may have populated the cache while we waited.
		if artifacts, ok := l.cache.Get(fingerprint); ok {
			return artifacts, nil
		}
		l.logger.Debug().Str("fingerprint", fingerprint).Msg("Cache miss. Building index.")
		artifacts, err := l.builder.Build(buildCtx, fingerprint, content)
		if err != nil {
			return nil, err
		}
		l.cache.Set(fingerprint, artifacts)
		l.logger.Info().Str("fingerprint", fingerprint).Int("chunks", len(artifacts.Chunks)).Msg("Indexed document and cached artifacts.")
		return artifacts, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			l.logger.Error().Err(res.Err).Str("fingerprint", fingerprint).Msg("Failed to build document index.")
			return zero, fmt.Errorf("build index for %s: %w", fingerprint, res.Err)
		}
		return res.Val.(doccache.Artifacts[I, C]), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
