package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MensaSverige/swagapp-sub001/app"
	"github.com/MensaSverige/swagapp-sub001/credentials"
	"github.com/MensaSverige/swagapp-sub001/credentials/memstore"
	"github.com/MensaSverige/swagapp-sub001/internal/config"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fakeBackend(t *testing.T, now time.Time) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access",
			"refreshToken": "refresh",
			"user":         map[string]string{"userId": "42", "firstName": "Ada"},
		})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = w.Write([]byte(`{"userId":"42","firstName":"Ada"}`))
		}
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "past", "title": "Yesterday", "start": now.Add(-24 * time.Hour)},
			{"id": "later", "title": "Later", "start": now.Add(2 * time.Hour), "host": "42"},
			{"id": "soon", "title": "Soon", "start": now.Add(time.Hour), "url": "https://mensa.se"},
		})
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		_, _ = w.Write([]byte(`[
			{"userId":"1","name":"Bob","location":{"latitude":59.33,"longitude":18.07}},
			{"userId":"2","name":"Zero","location":{"latitude":0,"longitude":0}},
			{"userId":"3","name":"Nowhere"}
		]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newConfig(baseURL string, overrides map[string]any) config.Config {
	v := viper.New()
	v.Set("api.baseurl", baseURL)
	v.Set("storage.backend", "memory")
	for k, val := range overrides {
		v.Set(k, val)
	}
	return config.FromViper(v)
}

func newApp(t *testing.T, cfg config.Config, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithRegistry(prometheus.NewRegistry())}, opts...)
	a, err := app.New(context.Background(), cfg, zerolog.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_LoginThenRefreshFeedsStore(t *testing.T) {
	now := time.Now()
	srv := fakeBackend(t, now)
	a := newApp(t, newConfig(srv.URL, nil))
	ctx := context.Background()

	_, err := a.Session.Login(ctx, "ada", "secret", false)
	require.NoError(t, err)

	a.Events.Refresh(ctx)
	a.Locations.Refresh(ctx)
	require.NoError(t, a.Events.LastError())
	require.NoError(t, a.Locations.LastError())

	snap := a.Store.Snapshot()
	require.Equal(t, "42", snap.CurrentUser.ID)
	require.Len(t, snap.Events, 2)
	require.Equal(t, "soon", snap.Events[0].ID)
	require.Equal(t, "later", snap.Events[1].ID)
	require.Len(t, snap.Locations, 1)
	require.Equal(t, "Bob", snap.Locations[0].Name)
	require.False(t, snap.EventsFetchedAt.IsZero())
}

func TestApp_MetricsHandler(t *testing.T) {
	srv := fakeBackend(t, time.Now())
	a := newApp(t, newConfig(srv.URL, nil))
	ctx := context.Background()

	_, err := a.Session.Login(ctx, "ada", "secret", false)
	require.NoError(t, err)
	a.Events.Refresh(ctx)

	// A revoked token forces a renewal, which records an auth event.
	require.NoError(t, a.Vault.SaveToken(ctx, &oauth2.Token{AccessToken: "revoked", RefreshToken: "refresh"}))
	_, _ = a.API.CurrentUser(ctx)

	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `swag_cache_refreshes_total{cache="events",outcome="success"} 1`)
	require.Contains(t, body, `swag_cache_items{cache="events"} 2`)
	require.Contains(t, body, "swag_session_auth_events_total")
}

func TestApp_StartWithStoredToken(t *testing.T) {
	srv := fakeBackend(t, time.Now())
	creds := memstore.New().Seed(map[credentials.Kind]string{credentials.KindAccessToken: "access"})
	a := newApp(t, newConfig(srv.URL, nil), app.WithCredentialStore(creds))

	require.NoError(t, a.Start(context.Background()))
	snap := a.Store.Snapshot()
	require.Equal(t, "Ada", snap.CurrentUser.FirstName)
	require.False(t, snap.LoginInProgress)
}

func TestApp_StartWithRejectedTokenErasesCredentials(t *testing.T) {
	srv := fakeBackend(t, time.Now())
	creds := memstore.New().Seed(map[credentials.Kind]string{credentials.KindAccessToken: "revoked"})
	a := newApp(t, newConfig(srv.URL, nil), app.WithCredentialStore(creds))

	require.Error(t, a.Start(context.Background()))
	require.Zero(t, creds.Len())
	require.Nil(t, a.Store.Snapshot().CurrentUser)
}

func TestApp_SnapshotsSurviveRestart(t *testing.T) {
	srv := fakeBackend(t, time.Now())
	cfg := newConfig(srv.URL, map[string]any{"cache.snapshot": filepath.Join(t.TempDir(), "cache.db")})
	ctx := context.Background()

	first, err := app.New(ctx, cfg, zerolog.Nop(), app.WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	_, err = first.Session.Login(ctx, "ada", "secret", false)
	require.NoError(t, err)
	first.Events.Refresh(ctx)
	fetchedAt := first.Events.LastFetchedAt()
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	require.NoError(t, second.Start(ctx))
	snap := second.Store.Snapshot()
	require.Len(t, snap.Events, 2)
	require.True(t, fetchedAt.Equal(snap.EventsFetchedAt))
	require.Empty(t, snap.Locations)
}

func TestApp_RedisBackend(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	srv := fakeBackend(t, time.Now())
	a := newApp(t, newConfig(srv.URL, map[string]any{
		"storage.backend":    "redis",
		"storage.redis.addr": server.Addr(),
	}))

	_, err = a.Session.Login(context.Background(), "ada", "secret", true)
	require.NoError(t, err)

	access, err := server.Get("swag:credentials:accessToken")
	require.NoError(t, err)
	require.Equal(t, "access", access)
	require.True(t, server.Exists("swag:credentials:credentials"))
}

func TestApp_FileBackend(t *testing.T) {
	srv := fakeBackend(t, time.Now())
	dir := t.TempDir()
	cfg := newConfig(srv.URL, map[string]any{
		"storage.backend":         "file",
		"app.datafolder":          dir,
		"storage.file.passphrase": "correct horse",
	})

	a := newApp(t, cfg)
	_, err := a.Session.Login(context.Background(), "ada", "secret", false)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "credentials.vault"))

	reopened := newApp(t, cfg)
	token, ok, err := reopened.Vault.LoadAccessToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access", token)
}

func TestApp_ConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{name: "unknown backend", overrides: map[string]any{"storage.backend": "floppy"}},
		{name: "file without passphrase", overrides: map[string]any{"storage.backend": "file"}},
		{name: "bad base url", overrides: map[string]any{"api.baseurl": "::"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig("http://localhost", tt.overrides)
			_, err := app.New(context.Background(), cfg, zerolog.Nop(), app.WithRegistry(prometheus.NewRegistry()))
			require.Error(t, err)
		})
	}
}
