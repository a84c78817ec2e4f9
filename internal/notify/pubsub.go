package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/logger"
)

// pubsubSink implements the Sink interface for GCP Pub/Sub.
type pubsubSink struct {
	id    string
	typ   string
	topic *pubsub.Topic
	log   logger.Logger
}

// newPubSubSink creates a new Pub/Sub sink with the given configuration.
func newPubSubSink(ctx context.Context, cfg SinkConfig, log logger.Logger) (Sink, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("sink %q missing gcp_pubsub configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubSink{
		id:    cfg.ID,
		typ:   TypePubSub,
		topic: client.Topic(cfg.PubSub.Topic),
		log:   log,
	}, nil
}

func (s *pubsubSink) ID() string   { return s.id }
func (s *pubsubSink) Type() string { return s.typ }

// Publish sends the notification to the configured Pub/Sub topic.
func (s *pubsubSink) Publish(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"venue_id": n.VenueID,
			"platform": n.Platform,
		},
	})

	if _, err := result.Get(ctx); err != nil {
		s.log.ErrorObj("pubsub sink publish failed", "sink_pubsub_error", map[string]any{
			"sink_id": s.id,
			"error":   err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	s.log.DebugObj("pubsub sink delivered notification", "sink_pubsub_delivery", map[string]any{
		"sink_id": s.id,
	})
	return nil
}
