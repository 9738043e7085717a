package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/sos"
)

// WarmupJobType is the job type that triggers a corridor warm-up.
const WarmupJobType = "corridor_warmup"

// ErrUnknownJobType and ErrMalformedMessage mark messages that can never
// succeed. They are acked so they are not redelivered.
var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrMalformedMessage = errors.New("malformed message")
)

// AlertDispatcher delivers an SOS alert. sos.Dispatcher satisfies it.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert sos.Alert) (sos.DispatchResult, error)
}

// Warmer runs a corridor warm-up. WarmupJob satisfies it.
type Warmer interface {
	Run(ctx context.Context) *WarmupResult
}

// jobMessage is the common envelope of every worker message.
type jobMessage struct {
	JobType string          `json:"job_type"`
	Alert   json.RawMessage `json:"alert,omitempty"`
}

// Jobs decodes worker messages and runs the matching job.
type Jobs struct {
	Alerts AlertDispatcher
	Warmup Warmer
	Logger zerolog.Logger
}

// Handle runs the job encoded in data and returns its job type.
func (j *Jobs) Handle(ctx context.Context, data []byte) (string, error) {
	var msg jobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case sos.JobType:
		return msg.JobType, j.handleAlert(ctx, msg)
	case WarmupJobType:
		return msg.JobType, j.handleWarmup(ctx)
	default:
		return msg.JobType, fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (j *Jobs) handleAlert(ctx context.Context, msg jobMessage) error {
	if j.Alerts == nil {
		return errors.New("sos dispatch is not configured")
	}
	if len(msg.Alert) == 0 {
		return fmt.Errorf("%w: sos message has no alert", ErrMalformedMessage)
	}

	var alert sos.Alert
	if err := json.Unmarshal(msg.Alert, &alert); err != nil {
		return fmt.Errorf("%w: parsing alert: %v", ErrMalformedMessage, err)
	}

	result, err := j.Alerts.Dispatch(ctx, alert)
	if err != nil {
		return err
	}

	j.Logger.Info().
		Str("alert_id", alert.ID).
		Int("contacts", result.Contacts).
		Int("notified", result.Notified).
		Int("failed", result.Failed).
		Msg("sos alert dispatched")
	return nil
}

func (j *Jobs) handleWarmup(ctx context.Context) error {
	if j.Warmup == nil {
		return errors.New("corridor warm-up is not configured")
	}

	result := j.Warmup.Run(ctx)

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many warm-up failures: %d/%d", result.Failed, result.TotalTasks)
	}
	return nil
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *Jobs
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Jobs             *Jobs
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             cfg.Jobs,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.process(ctx, msg.ID, msg.PublishTime, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// process runs one message and reports whether it should be acked.
func (h *PubSubHandler) process(ctx context.Context, id string, published time.Time, data []byte) bool {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", id).
		Str("publish_time", published.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	jobType, err := h.jobs.Handle(ctx, data)
	switch {
	case errors.Is(err, ErrUnknownJobType):
		logger.Warn().Str("job_type", jobType).Msg("unknown job type")
		return true
	case errors.Is(err, ErrMalformedMessage):
		logger.Warn().Err(err).Str("job_type", jobType).Msg("dropping malformed message")
		return true
	case err != nil:
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}
