package handler

import (
	"time"

	"github.com/saferoute/saferoute/internal/api/models"
)

// Clock supplies the current time and the zone used when a request names
// neither a time zone nor a UTC offset. The zero value uses time.Now and UTC.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Local resolves the traveller's wall-clock time for a request.
func (c Clock) Local(at *models.Timestamp, timeZone string) time.Time {
	return models.LocalTime(at, timeZone, c.now(), c.Location)
}
