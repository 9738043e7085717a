package sos

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/guardian"
)

// ContactLister returns a user's guardian contacts.
type ContactLister interface {
	List(ctx context.Context, userID string) ([]*guardian.Contact, error)
}

// Notifier delivers an alert to one contact.
type Notifier interface {
	Notify(ctx context.Context, contact guardian.Contact, alert Alert) error
}

// LogNotifier logs the notification it would send.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the alert for the contact.
func (n LogNotifier) Notify(_ context.Context, contact guardian.Contact, alert Alert) error {
	n.Logger.Info().
		Str("alert_id", alert.ID).
		Str("contact_id", contact.ID).
		Str("maps_url", MapsURL(alert.Location)).
		Msg("notifying guardian")
	return nil
}

// MapsURL links to the alert location.
func MapsURL(loc Location) string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=17/%.6f/%.6f",
		loc.Lat, loc.Lon, loc.Lat, loc.Lon)
}

// DispatchResult summarizes one alert delivery.
type DispatchResult struct {
	Contacts int
	Notified int
	Failed   int
}

// Dispatcher delivers alerts to every guardian of the alerting user.
type Dispatcher struct {
	contacts ContactLister
	notifier Notifier
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(contacts ContactLister, notifier Notifier, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{contacts: contacts, notifier: notifier, logger: logger}
}

// Dispatch notifies each contact. It fails only when the contacts cannot be
// loaded or every notification failed, so the message is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) (DispatchResult, error) {
	contacts, err := d.contacts.List(ctx, alert.UserID)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("loading guardians for %s: %w", alert.UserID, err)
	}

	result := DispatchResult{Contacts: len(contacts)}
	if len(contacts) == 0 {
		d.logger.Warn().Str("alert_id", alert.ID).Msg("sos alert has no guardians to notify")
		return result, nil
	}

	var lastErr error
	for _, c := range contacts {
		if err := d.notifier.Notify(ctx, *c, alert); err != nil {
			result.Failed++
			lastErr = err
			d.logger.Error().Err(err).
				Str("alert_id", alert.ID).
				Str("contact_id", c.ID).
				Msg("failed to notify guardian")
			continue
		}
		result.Notified++
	}

	if result.Notified == 0 {
		return result, fmt.Errorf("no guardian notified for alert %s: %w", alert.ID, lastErr)
	}
	return result, nil
}
