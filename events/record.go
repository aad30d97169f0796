// Package events models the event and live-location collections fetched from the
// API and classifies them for display.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MensaSverige/swagapp-sub001/geo"
)

// Kind discriminates the event variants returned by the API.
type Kind string

const (
	// KindMember is an event hosted by a member through the app.
	KindMember Kind = "member"
	// KindExternal is an event imported from the organisation's public calendar.
	KindExternal Kind = "external"
)

// Record is one event of either kind. Fields that only one variant carries are
// left zero for the other.
type Record struct {
	Kind        Kind            `json:"kind"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Start       time.Time       `json:"start"`
	End         *time.Time      `json:"end,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	Address     string          `json:"address,omitempty"`

	Host      string   `json:"host,omitempty"`      // member events
	Attendees []string `json:"attendees,omitempty"` // member events
	URL       string   `json:"url,omitempty"`       // external events
}

// wireRecord accepts both the tagged and the legacy untagged payloads.
type wireRecord struct {
	Kind        Kind            `json:"kind"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Start       time.Time       `json:"start"`
	End         *time.Time      `json:"end"`
	Location    *geo.Coordinate `json:"location"`
	Address     string          `json:"address"`
	Host        string          `json:"host"`
	Attendees   []string        `json:"attendees"`
	URL         string          `json:"url"`
}

// UnmarshalJSON resolves the variant once. Payloads without an explicit kind are
// member events when they name a host, external otherwise.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	kind := w.Kind
	switch kind {
	case KindMember, KindExternal:
	case "":
		kind = KindExternal
		if w.Host != "" {
			kind = KindMember
		}
	default:
		return fmt.Errorf("unknown event kind %q", w.Kind)
	}

	title := w.Title
	if title == "" {
		title = w.Name
	}

	*r = Record{
		Kind:        kind,
		ID:          w.ID,
		Title:       title,
		Description: w.Description,
		Start:       w.Start,
		End:         w.End,
		Location:    w.Location,
		Address:     w.Address,
	}
	switch kind {
	case KindMember:
		r.Host = w.Host
		r.Attendees = w.Attendees
	case KindExternal:
		r.URL = w.URL
	}
	return nil
}

// Decode parses an event collection from the API.
func Decode(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("[events.Decode] %w", err)
	}
	return records, nil
}

// UserLocation is a member's last reported position.
type UserLocation struct {
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Location  *geo.Coordinate `json:"location,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// DecodeLocations parses the live-location collection from the API.
func DecodeLocations(data []byte) ([]UserLocation, error) {
	var locations []UserLocation
	if err := json.Unmarshal(data, &locations); err != nil {
		return nil, fmt.Errorf("[events.DecodeLocations] %w", err)
	}
	return locations, nil
}
