package sweepsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-doccache/pkg/doccache"
	"github.com/rs/zerolog"
)

// Publisher is a direct, non-batching message publisher. Publish returns
// only once the message is accepted or has failed.
type Publisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes any pending messages and accepts a context for timeout control.
	Stop(ctx context.Context) error
}

// PubSubConfig names the topic sweep events are published to.
type PubSubConfig struct {
	ProjectID string
	TopicID   string
}

// GooglePublisher implements Publisher on a Pub/Sub topic.
type GooglePublisher struct {
	topic  *pubsub.Topic
	logger zerolog.Logger
}

// NewGooglePublisher creates a publisher, verifying that the topic exists
// before returning.
func NewGooglePublisher(ctx context.Context, client *pubsub.Client, topicID string, logger zerolog.Logger) (*GooglePublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	topic := client.Topic(topicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", topicID)
	}

	return &GooglePublisher{
		topic:  topic,
		logger: logger.With().Str("component", "GooglePublisher").Str("topic_id", topicID).Logger(),
	}, nil
}

// Publish sends a single message and waits for the server to accept it, so
// a failed publish surfaces to the reporter rather than only in the log.
func (p *GooglePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})

	msgID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	p.logger.Debug().Str("published_msg_id", msgID).Msg("Sweep event published.")
	return nil
}

// Stop flushes pending messages for the topic, respecting the context's timeout.
func (p *GooglePublisher) Stop(ctx context.Context) error {
	if p.topic == nil {
		return nil
	}

	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PubSubReporter publishes each sweep as a JSON event.
type PubSubReporter struct {
	publisher Publisher
	cacheName string
	logger    zerolog.Logger
}

// NewPubSubReporter creates a reporter on top of publisher.
func NewPubSubReporter(publisher Publisher, cacheName string, logger zerolog.Logger) (*PubSubReporter, error) {
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	return &PubSubReporter{
		publisher: publisher,
		cacheName: cacheName,
		logger:    logger.With().Str("component", "PubSubSweepReporter").Logger(),
	}, nil
}

// Report publishes the sweep record with routing attributes.
func (r *PubSubReporter) Report(ctx context.Context, report doccache.SweepReport) error {
	rec := NewSweepRecord(r.cacheName, report)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep record: %w", err)
	}

	attributes := map[string]string{
		"event":    "doccache.sweep",
		"cache":    r.cacheName,
		"sweep_id": rec.SweepID,
	}
	if err := r.publisher.Publish(ctx, payload, attributes); err != nil {
		return fmt.Errorf("failed to publish sweep %s: %w", rec.SweepID, err)
	}
	return nil
}

// Close stops the underlying publisher.
func (r *PubSubReporter) Close(ctx context.Context) error {
	return r.publisher.Stop(ctx)
}
