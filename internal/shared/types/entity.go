package types

import (
	"fmt"
	"strconv"
	"time"
)

// EntityID identifies a monitored tab
type EntityID int

// NoEntity is the id the browser reports for requests not tied to a tab
const NoEntity EntityID = -1

// Valid reports whether the id can address a real tab
func (id EntityID) Valid() bool {
	return id > 0
}

func (id EntityID) String() string {
	return strconv.Itoa(int(id))
}

// ParseEntityID parses a decimal tab id
func ParseEntityID(s string) (EntityID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid entity id %q: %w", s, err)
	}
	id := EntityID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("invalid entity id %q: must be positive", s)
	}
	return id, nil
}

// EntityState is the stored view of one tab.
//
// PlayingAds and AdStartTime are written together: AdStartTime is set
// exactly when PlayingAds is true. Muted and Hidden are attribution flags,
// true only while the monitor itself holds the condition applied.
type EntityState struct {
	Muted       bool   `json:"muted"`
	Hidden      bool   `json:"hidden"`
	PlayingAds  bool   `json:"playingAds"`
	AdStartTime *int64 `json:"adStartTime,omitempty"` // unix seconds
}

// StartedAt returns the ad start time, if recorded
func (s EntityState) StartedAt() (time.Time, bool) {
	if s.AdStartTime == nil {
		return time.Time{}, false
	}
	return time.Unix(*s.AdStartTime, 0), true
}
