package events

import (
	"sort"
	"time"

	"github.com/MensaSverige/swagapp-sub001/geo"
)

// OpenEndedGrace is how long an event without an end time stays relevant after it starts.
const OpenEndedGrace = time.Hour

// IsFutureEvent reports whether r is still relevant at now: it has not started, or
// it has an end time after now, or it has no end time and started less than
// OpenEndedGrace ago.
func IsFutureEvent(r Record, now time.Time) bool {
	if r.Start.After(now) {
		return true
	}
	if r.End != nil {
		return r.End.After(now)
	}
	return r.Start.Add(OpenEndedGrace).After(now)
}

// HasUsableLocation is true when loc is set and neither coordinate is zero.
// Unset coordinates default to zero, so 0/0 counts as no location.
func HasUsableLocation(loc *geo.Coordinate) bool {
	return loc != nil && loc.Latitude != 0 && loc.Longitude != 0
}

func (r Record) HasUsableLocation() bool {
	return HasUsableLocation(r.Location)
}

func (u UserLocation) HasUsableLocation() bool {
	return HasUsableLocation(u.Location)
}

// FilterFuture keeps the records for which IsFutureEvent holds, in input order.
func FilterFuture(records []Record, now time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if IsFutureEvent(r, now) {
			out = append(out, r)
		}
	}
	return out
}

// WithLocation keeps the locations that can be placed on the map.
func WithLocation(locations []UserLocation) []UserLocation {
	out := make([]UserLocation, 0, len(locations))
	for _, l := range locations {
		if l.HasUsableLocation() {
			out = append(out, l)
		}
	}
	return out
}

// SortByStart orders records by start time, keeping input order for equal starts.
func SortByStart(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Start.Before(records[j].Start)
	})
}
