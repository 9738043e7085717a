// Package sos raises emergency alerts and fans them out to a user's
// guardian contacts.
package sos

import (
	"errors"
	"time"
)

// JobType is the Pub/Sub job type carried by alert messages.
const JobType = "sos_alert"

// MaxMessageLength bounds the free-text message attached to an alert.
const MaxMessageLength = 280

// DefaultMessage is used when the user sends no message.
const DefaultMessage = "I need help. This is my current location."

// Errors returned by Raise.
var (
	ErrInvalidLocation = errors.New("invalid alert location")
	ErrMessageTooLong  = errors.New("alert message too long")
)

// Location is where the user was when the alert was raised.
type Location struct {
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	AccuracyMeters *float64 `json:"accuracyMeters,omitempty"`
}

// Alert is a raised SOS.
type Alert struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Location Location  `json:"location"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

// Envelope is the Pub/Sub payload for an alert.
type Envelope struct {
	JobType string `json:"job_type"`
	Alert   Alert  `json:"alert"`
}
