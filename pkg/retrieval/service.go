package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
)

// DefaultTopK is used when a query asks for a non-positive number of results.
const DefaultTopK = 5

// Searcher answers a query against a document's artifacts.
type Searcher[I any, C any] interface {
	Search(ctx context.Context, artifacts doccache.Artifacts[I, C], query string, topK int) ([]C, error)
}

// Service answers queries about documents, indexing each document at most
// once per retention window.
type Service[I any, C any] struct {
	loader   *Loader[I, C]
	searcher Searcher[I, C]
	logger   zerolog.Logger
}

// NewService creates a Service.
func NewService[I any, C any](loader *Loader[I, C], searcher Searcher[I, C], logger zerolog.Logger) (*Service[I, C], error) {
	if loader == nil || searcher == nil {
		return nil, errors.New("loader and searcher cannot be nil")
	}
	return &Service[I, C]{
		loader:   loader,
		searcher: searcher,
		logger:   logger.With().Str("component", "RetrievalService").Logger(),
	}, nil
}

// Query returns up to topK chunks of content relevant to query.
func (s *Service[I, C]) Query(ctx context.Context, content []byte, query string, topK int) ([]C, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	artifacts, err := s.loader.Load(ctx, content)
	if err != nil {
		return nil, err
	}
	results, err := s.searcher.Search(ctx, artifacts, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	s.logger.Debug().Int("results", len(results)).Msg("Query answered.")
	return results, nil
}
