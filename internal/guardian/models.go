// Package guardian stores the emergency contacts a user wants alerted.
package guardian

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrContactNotFound = errors.New("guardian contact not found")
)

// Contact is a person alerted when the user raises an SOS.
type Contact struct {
	ID        string
	UserID    string
	Name      string
	Phone     string
	CreatedAt time.Time
}
