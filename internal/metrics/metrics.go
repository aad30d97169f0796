package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Options configures the client metrics.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// Metrics exposes Prometheus collectors for cache and session activity.
type Metrics struct {
	CacheRefreshes *prometheus.CounterVec
	CacheItems     *prometheus.GaugeVec
	AuthEvents     *prometheus.CounterVec
}

// New constructs the collectors and registers them with the provided registerer.
// A collector that is already registered is reused.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "swag"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	refreshes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "refreshes_total",
		Help:      "Cache refresh attempts partitioned by cache name and outcome.",
	}, []string{"cache", "outcome"}))
	if err != nil {
		return nil, err
	}

	items, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "items",
		Help:      "Number of items held by each cache after the last successful refresh.",
	}, []string{"cache"}))
	if err != nil {
		return nil, err
	}

	auth, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "auth_events_total",
		Help:      "Token refresh and re-login attempts partitioned by step and outcome.",
	}, []string{"step", "outcome"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		CacheRefreshes: refreshes,
		CacheItems:     items,
		AuthEvents:     auth,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// ObserveRefresh records a cache refresh outcome. Safe on a nil receiver.
func (m *Metrics) ObserveRefresh(cache string, err error, items int) {
	if m == nil {
		return
	}
	if err != nil {
		m.CacheRefreshes.WithLabelValues(cache, "failure").Inc()
		return
	}
	m.CacheRefreshes.WithLabelValues(cache, "success").Inc()
	m.CacheItems.WithLabelValues(cache).Set(float64(items))
}

// ObserveAuth records one step of the token lifecycle ("refresh", "relogin", "startup").
func (m *Metrics) ObserveAuth(step, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(step, outcome).Inc()
}
