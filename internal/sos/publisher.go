package sos

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher hands an alert to the delivery pipeline.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// PubSubPublisher publishes alerts to a Pub/Sub topic consumed by the worker.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// NewPubSubPublisher creates a publisher for the configured topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends the alert and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, alert Alert) error {
	data, err := Encode(alert)
	if err != nil {
		return err
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_type": JobType,
			"alert_id": alert.ID,
		},
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing alert %s: %w", alert.ID, err)
	}

	p.logger.Info().
		Str("alert_id", alert.ID).
		Str("topic", p.topic).
		Str("message_id", serverID).
		Msg("sos alert published")

	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// LogPublisher logs alerts instead of publishing them. It is used when no
// Pub/Sub project is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish logs the alert.
func (p LogPublisher) Publish(_ context.Context, alert Alert) error {
	p.Logger.Warn().
		Str("alert_id", alert.ID).
		Str("user_id", alert.UserID).
		Float64("lat", alert.Location.Lat).
		Float64("lon", alert.Location.Lon).
		Msg("sos alert raised (no publisher configured)")
	return nil
}

// Encode builds the Pub/Sub payload for an alert.
func Encode(alert Alert) ([]byte, error) {
	data, err := json.Marshal(Envelope{JobType: JobType, Alert: alert})
	if err != nil {
		return nil, fmt.Errorf("encoding alert: %w", err)
	}
	return data, nil
}

var (
	_ Publisher = (*PubSubPublisher)(nil)
	_ Publisher = LogPublisher{}
)
