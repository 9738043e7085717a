package sos

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/routing"
)

// Service raises SOS alerts.
type Service struct {
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new SOS service.
func NewService(publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{publisher: publisher, logger: logger, now: time.Now}
}

// Raise validates and publishes an alert for the user.
func (s *Service) Raise(ctx context.Context, userID string, loc Location, message string) (*Alert, error) {
	if err := (routing.Coordinate{Lat: loc.Lat, Lon: loc.Lon}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if message == "" {
		message = DefaultMessage
	}

	alert := &Alert{
		ID:       "sos_" + uuid.New().String(),
		UserID:   userID,
		Location: loc,
		Message:  message,
		RaisedAt: s.now().UTC(),
	}

	if err := s.publisher.Publish(ctx, *alert); err != nil {
		s.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish sos alert")
		return nil, err
	}

	return alert, nil
}
