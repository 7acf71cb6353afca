package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
)

// PubSubPublisherConfig holds configuration for the Pub/Sub sink.
type PubSubPublisherConfig struct {
	ProjectID string
	TopicName string
}

// PubSubPublisher forwards emissions as JSON events for downstream
// automation (alerting, rollups) that lives outside this service.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSubPublisher creates the Pub/Sub sink.
func NewPubSubPublisher(ctx context.Context, cfg PubSubPublisherConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
	}, nil
}

// Publish sends one emission event and waits for server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, e Emission) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal emission: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"channel": string(e.Channel),
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish emission: %w", err)
	}
	return nil
}

// Close stops the publisher and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
