// Package store holds the state the UI renders from. It is created once per
// process and handed to whoever needs it; the session and the caches write to it
// and everything else reads snapshots.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/MensaSverige/swagapp-sub001/events"
	"github.com/MensaSverige/swagapp-sub001/geo"
	"github.com/MensaSverige/swagapp-sub001/users"
)

// Session is a point-in-time copy of the UI state.
type Session struct {
	CurrentUser        *users.Profile
	LoginInProgress    bool
	Events             []events.Record
	EventsFetchedAt    time.Time
	Locations          []events.UserLocation
	LocationsFetchedAt time.Time
	Filter             Filter
}

// Filter narrows what the event and map views show.
type Filter struct {
	OnlyWithLocation  bool
	Center            *geo.Coordinate
	MaxDistanceMeters float64
	Query             string
}

func (f Filter) matchesPlace(loc *geo.Coordinate) bool {
	if f.OnlyWithLocation && !events.HasUsableLocation(loc) {
		return false
	}
	if f.Center != nil && f.MaxDistanceMeters > 0 {
		if !events.HasUsableLocation(loc) || !geo.Within(*f.Center, *loc, f.MaxDistanceMeters) {
			return false
		}
	}
	return true
}

func (f Filter) matchesText(fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

type Store struct {
	mu        sync.RWMutex
	state     Session
	nextID    int
	listeners map[int]func(Session)
}

func New() *Store {
	return &Store{listeners: make(map[int]func(Session))}
}

// Snapshot returns a copy of the current state. Slices are copied, so the caller
// may keep it.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() Session {
	out := s.state
	out.Events = append([]events.Record(nil), s.state.Events...)
	out.Locations = append([]events.UserLocation(nil), s.state.Locations...)
	if s.state.CurrentUser != nil {
		user := *s.state.CurrentUser
		out.CurrentUser = &user
	}
	if s.state.Filter.Center != nil {
		center := *s.state.Filter.Center
		out.Filter.Center = &center
	}
	return out
}

// Subscribe registers fn to receive the new state after every change. The
// returned func removes it.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) update(mutate func(*Session)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.copyLocked()
	listeners := make([]func(Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *Store) SetCurrentUser(user *users.Profile) {
	s.update(func(st *Session) {
		st.CurrentUser = user
	})
}

func (s *Store) SetLoginInProgress(inProgress bool) {
	s.update(func(st *Session) {
		st.LoginInProgress = inProgress
	})
}

func (s *Store) SetEvents(records []events.Record, fetchedAt time.Time) {
	s.update(func(st *Session) {
		st.Events = records
		st.EventsFetchedAt = fetchedAt
	})
}

func (s *Store) SetLocations(locations []events.UserLocation, fetchedAt time.Time) {
	s.update(func(st *Session) {
		st.Locations = locations
		st.LocationsFetchedAt = fetchedAt
	})
}

func (s *Store) SetFilter(filter Filter) {
	s.update(func(st *Session) {
		st.Filter = filter
	})
}

// VisibleEvents returns the events still relevant at now that pass the filter,
// ordered by start time.
func (s Session) VisibleEvents(now time.Time) []events.Record {
	out := make([]events.Record, 0, len(s.Events))
	for _, r := range s.Events {
		if !events.IsFutureEvent(r, now) {
			continue
		}
		if !s.Filter.matchesPlace(r.Location) || !s.Filter.matchesText(r.Title, r.Description, r.Address) {
			continue
		}
		out = append(out, r)
	}
	events.SortByStart(out)
	return out
}

// VisibleLocations returns the other members that can be placed on the map and
// pass the filter.
func (s Session) VisibleLocations() []events.UserLocation {
	out := make([]events.UserLocation, 0, len(s.Locations))
	for _, l := range s.Locations {
		if !l.HasUsableLocation() {
			continue
		}
		if s.CurrentUser != nil && l.UserID == s.CurrentUser.ID {
			continue
		}
		if !s.Filter.matchesPlace(l.Location) || !s.Filter.matchesText(l.Name) {
			continue
		}
		out = append(out, l)
	}
	return out
}
