// Package app assembles the client core from configuration: credential storage,
// the authenticated API session, the polling caches and the UI store they feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MensaSverige/swagapp-sub001/apiclient"
	"github.com/MensaSverige/swagapp-sub001/clock"
	"github.com/MensaSverige/swagapp-sub001/credentials"
	"github.com/MensaSverige/swagapp-sub001/credentials/filevault"
	"github.com/MensaSverige/swagapp-sub001/credentials/memstore"
	"github.com/MensaSverige/swagapp-sub001/credentials/redisstore"
	"github.com/MensaSverige/swagapp-sub001/events"
	"github.com/MensaSverige/swagapp-sub001/freshness"
	"github.com/MensaSverige/swagapp-sub001/freshness/sqlitesnapshot"
	"github.com/MensaSverige/swagapp-sub001/internal/config"
	"github.com/MensaSverige/swagapp-sub001/internal/metrics"
	"github.com/MensaSverige/swagapp-sub001/session"
	"github.com/MensaSverige/swagapp-sub001/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	red "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	EventsCache    = "events"
	LocationsCache = "locations"
)

type App struct {
	config   config.Config
	log      zerolog.Logger
	clock    clock.Clock
	registry *prometheus.Registry

	Store     *store.Store
	Vault     *credentials.Vault
	Session   *session.Session
	API       *apiclient.API
	Events    *freshness.Cache[events.Record]
	Locations *freshness.Cache[events.UserLocation]
	Metrics   *metrics.Metrics

	closers []func() error
}

type options struct {
	clock      clock.Clock
	registry   *prometheus.Registry
	httpClient *http.Client
	credStore  credentials.Store
}

type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithRegistry collects the app metrics into reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithCredentialStore bypasses the configured storage backend.
func WithCredentialStore(s credentials.Store) Option {
	return func(o *options) {
		o.credStore = s
	}
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...Option) (*App, error) {
	o := options{clock: clock.Real{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	a := &App{config: cfg, log: log, clock: o.clock, registry: o.registry, Store: store.New()}

	m, err := metrics.New(metrics.Options{Registerer: o.registry})
	if err != nil {
		return nil, fmt.Errorf("[app.New] metrics: %w", err)
	}
	a.Metrics = m

	credStore := o.credStore
	if credStore == nil {
		if credStore, err = a.openCredentialStore(); err != nil {
			return nil, err
		}
	}
	a.Vault = credentials.NewVault(credStore, credentials.WithLogger(log))

	clientOpts := []apiclient.ClientOption{
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithPaths(apiclient.Paths{
			Auth:        cfg.GetAuthPath(),
			Refresh:     cfg.GetRefreshPath(),
			CurrentUser: cfg.GetCurrentUserPath(),
			Events:      cfg.GetEventsPath(),
			Locations:   cfg.GetLocationsPath(),
		}),
		apiclient.WithLogger(log),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	client, err := apiclient.New(cfg.GetAPIBaseURL(), clientOpts...)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("[app.New] api client: %w", err)
	}

	a.Session, err = session.New(client, a.Vault, a.Store,
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithClock(o.clock),
		session.WithStartupTimeout(cfg.GetStartupTimeout()),
	)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("[app.New] session: %w", err)
	}
	a.API = apiclient.NewAPI(a.Session, client.Paths())

	cacheOpts := []freshness.Option{
		freshness.WithClock(o.clock),
		freshness.WithLogger(log),
		freshness.WithMetrics(m),
	}
	if path := cfg.GetSnapshotPath(); path != "" {
		snapshots, err := sqlitesnapshot.Open(ctx, path)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("[app.New] snapshots: %w", err)
		}
		a.closers = append(a.closers, snapshots.Close)
		cacheOpts = append(cacheOpts, freshness.WithSnapshot(snapshots))
	}

	a.Events = freshness.New(EventsCache, a.fetchEvents,
		append(cacheOpts, freshness.WithStaleInterval(cfg.GetEventsStaleInterval()))...)
	a.Events.OnUpdate(a.Store.SetEvents)

	a.Locations = freshness.New(LocationsCache, a.fetchLocations,
		append(cacheOpts, freshness.WithStaleInterval(cfg.GetLocationsStaleInterval()))...)
	a.Locations.OnUpdate(a.Store.SetLocations)

	return a, nil
}

// MetricsHandler serves the app metrics in the Prometheus exposition format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

func (a *App) openCredentialStore() (credentials.Store, error) {
	switch backend := a.config.GetStorageBackend(); backend {
	case config.StorageMemory:
		return memstore.New(), nil
	case config.StorageFile:
		s, err := filevault.Open(a.config.GetVaultPath(), a.config.GetVaultPassphrase())
		if err != nil {
			return nil, fmt.Errorf("[app.New] credential vault: %w", err)
		}
		return s, nil
	case config.StorageRedis:
		client := red.NewClient(&red.Options{
			Addr:     a.config.GetRedisAddr(),
			Password: a.config.GetRedisPassword(),
			DB:       a.config.GetRedisDB(),
		})
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client, a.config.GetRedisPrefix()), nil
	default:
		return nil, fmt.Errorf("[app.New] unknown storage backend %q", backend)
	}
}

func (a *App) fetchEvents(ctx context.Context) ([]events.Record, error) {
	records, err := a.API.Events(ctx)
	if err != nil {
		return nil, err
	}
	records = events.FilterFuture(records, a.clock.Now())
	events.SortByStart(records)
	return records, nil
}

func (a *App) fetchLocations(ctx context.Context) ([]events.UserLocation, error) {
	locations, err := a.API.UserLocations(ctx)
	if err != nil {
		return nil, err
	}
	return events.WithLocation(locations), nil
}

// Start seeds the caches from their snapshots and validates stored credentials.
// A network failure during validation is returned but leaves the app usable.
func (a *App) Start(ctx context.Context) error {
	for _, restore := range []func(context.Context) error{a.Events.Restore, a.Locations.Restore} {
		if err := restore(ctx); err != nil {
			a.log.Warn().Err(err).Msg("could not restore cache snapshot")
		}
	}

	user, err := a.Session.Startup(ctx)
	if err != nil {
		return err
	}
	if user != nil {
		a.log.Info().Str("user", user.ID).Msg("signed in with stored credentials")
	}
	return nil
}

func (a *App) Close() error {
	a.Events.Close()
	a.Locations.Close()
	return a.closeAll()
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
