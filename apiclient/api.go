package apiclient

import (
	"context"
	"net/http"

	"github.com/MensaSverige/swagapp-sub001/events"
	"github.com/MensaSverige/swagapp-sub001/users"
	"github.com/pkg/errors"
)

// API exposes the domain endpoints over any Requester.
type API struct {
	r     Requester
	paths Paths
}

func NewAPI(r Requester, paths Paths) *API {
	return &API{r: r, paths: paths}
}

func (a *API) CurrentUser(ctx context.Context) (*users.Profile, error) {
	resp, err := a.r.Do(ctx, Request{Method: http.MethodGet, Path: a.paths.CurrentUser})
	if err != nil {
		return nil, err
	}
	var profile users.Profile
	if err := resp.Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "[API.CurrentUser]")
	}
	return &profile, nil
}

// Events returns every event the server knows about, of both kinds.
func (a *API) Events(ctx context.Context) ([]events.Record, error) {
	resp, err := a.r.Do(ctx, Request{Method: http.MethodGet, Path: a.paths.Events})
	if err != nil {
		return nil, err
	}
	return events.Decode(resp.Body)
}

// UserLocations returns the last reported position of members sharing their location.
func (a *API) UserLocations(ctx context.Context) ([]events.UserLocation, error) {
	resp, err := a.r.Do(ctx, Request{Method: http.MethodGet, Path: a.paths.Locations})
	if err != nil {
		return nil, err
	}
	return events.DecodeLocations(resp.Body)
}
