// Package session owns the access/refresh token lifecycle of the signed-in member.
//
// Every API call made through Session.Do carries the stored access token. A 401
// triggers one shared renewal: the refresh token is exchanged for a new access
// token, falling back to a silent login with the saved username and password.
// The original request is then replayed exactly once. When the server rejects
// both, the stored credentials are erased and the session ends; when it cannot be
// reached, everything is left in place for a later retry.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MensaSverige/swagapp-sub001/apiclient"
	"github.com/MensaSverige/swagapp-sub001/clock"
	"github.com/MensaSverige/swagapp-sub001/credentials"
	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
	"github.com/MensaSverige/swagapp-sub001/internal/metrics"
	"github.com/MensaSverige/swagapp-sub001/internal/utils"
	"github.com/MensaSverige/swagapp-sub001/users"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const defaultStartupTimeout = 3 * time.Second

// Sink receives the session fields the UI renders from.
type Sink interface {
	SetCurrentUser(user *users.Profile)
	SetLoginInProgress(inProgress bool)
}

// Transport is the raw API client: authentication endpoints plus unauthenticated calls.
type Transport interface {
	apiclient.Requester
	Login(ctx context.Context, username, password string) (*apiclient.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	IsAuthPath(path string) bool
	Paths() apiclient.Paths
}

var _ Transport = (*apiclient.Client)(nil)

type Session struct {
	transport      Transport
	vault          *credentials.Vault
	sink           Sink
	log            zerolog.Logger
	metrics        *metrics.Metrics
	clock          clock.Clock
	startupTimeout time.Duration
	onStateChange  func(State)

	renewals singleflight.Group
	renewMu  sync.Mutex

	mu    sync.Mutex
	state State
	// epoch changes whenever the session is ended. A renewal started in an older
	// epoch must not write tokens, the user or the state.
	epoch uint64
}

var _ apiclient.Requester = (*Session)(nil)

type Option func(*Session)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithStartupTimeout bounds the silent login performed by Startup.
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.startupTimeout = d
		}
	}
}

// WithStateListener is called after every state transition.
func WithStateListener(fn func(State)) Option {
	return func(s *Session) {
		s.onStateChange = fn
	}
}

func New(transport Transport, vault *credentials.Vault, sink Sink, options ...Option) (*Session, error) {
	if transport == nil {
		return nil, errors.New("[session.New] transport is required")
	}
	if vault == nil {
		return nil, errors.New("[session.New] vault is required")
	}
	if sink == nil {
		return nil, errors.New("[session.New] sink is required")
	}

	s := &Session{
		transport:      transport,
		vault:          vault,
		sink:           sink,
		log:            zerolog.Nop(),
		clock:          clock.Real{},
		startupTimeout: defaultStartupTimeout,
		state:          StateLoggedOut,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) bumpEpoch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
}

// setStateIn transitions only while epoch is still current.
func (s *Session) setStateIn(epoch uint64, next State) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	s.setState(next)
	return true
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	if prev == next {
		return
	}
	s.log.Debug().Stringer("from", prev).Stringer("to", next).Msg("session state")
	if s.onStateChange != nil {
		s.onStateChange(next)
	}
}

// Login signs in with a username and password. When remember is set the pair is
// kept for silent re-login; otherwise any previously saved pair is erased.
func (s *Session) Login(ctx context.Context, username, password string, remember bool) (*users.Profile, error) {
	s.setState(StateLoggingIn)

	result, err := s.transport.Login(ctx, username, password)
	if err != nil {
		s.setState(StateLoggedOut)
		if isRejection(err) {
			return nil, fmt.Errorf("[Session.Login] %w", errors.Join(apperrors.ErrAuthRejected, err))
		}
		return nil, fmt.Errorf("[Session.Login] %w", err)
	}

	if err := s.vault.SaveToken(ctx, result.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist tokens after login")
	}
	if remember {
		if err := s.vault.SaveLogin(ctx, credentials.Login{Username: username, Password: password}); err != nil {
			s.log.Warn().Err(err).Msg("failed to save login")
		}
	} else if err := s.vault.Erase(ctx, credentials.KindLogin); err != nil {
		s.log.Warn().Err(err).Msg("failed to erase previously saved login")
	}

	user := result.User
	s.sink.SetCurrentUser(&user)
	s.setState(StateLoggedIn)
	return &user, nil
}

// Logout clears the current user immediately and erases all stored credentials in
// the background. A renewal still running is discarded and finishes before the
// erase, so it cannot bring tokens back. The returned channel receives the erase
// result.
func (s *Session) Logout(ctx context.Context) <-chan error {
	s.bumpEpoch()
	s.sink.SetCurrentUser(nil)
	s.setState(StateLoggedOut)

	done := make(chan error, 1)
	go func() {
		s.renewMu.Lock()
		defer s.renewMu.Unlock()

		err := s.vault.EraseAll(context.WithoutCancel(ctx))
		if err != nil {
			s.log.Warn().Err(err).Msg("logout could not erase every credential")
		}
		done <- err
	}()
	return done
}

// Startup validates stored credentials when the process starts. It is a no-op when
// nothing is stored. The attempt is bounded by the startup timeout; running out of
// time counts as a network failure and keeps the credentials for a later retry.
// Any other failure erases them.
func (s *Session) Startup(ctx context.Context) (*users.Profile, error) {
	has, err := s.vault.HasAny(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read stored credentials")
	}
	if !has {
		s.setState(StateLoggedOut)
		return nil, nil
	}

	s.sink.SetLoginInProgress(true)
	defer s.sink.SetLoginInProgress(false)
	s.setState(StateLoggingIn)

	ctx, cancel := context.WithTimeout(ctx, s.startupTimeout)
	defer cancel()

	user, err := apiclient.NewAPI(s, s.transport.Paths()).CurrentUser(ctx)
	switch {
	case err == nil:
		s.sink.SetCurrentUser(user)
		s.setState(StateLoggedIn)
		s.metrics.ObserveAuth("startup", "success")
		return user, nil
	case errors.Is(err, apperrors.ErrNetwork) || errors.Is(err, context.DeadlineExceeded):
		s.log.Info().Err(err).Msg("startup login deferred, server unreachable")
		s.setState(StateLoggedOut)
		s.metrics.ObserveAuth("startup", "network")
		return nil, fmt.Errorf("[Session.Startup] %w", errors.Join(apperrors.ErrNetwork, err))
	default:
		s.log.Info().Err(err).Msg("startup login failed, clearing credentials")
		s.end(ctx)
		s.metrics.ObserveAuth("startup", "rejected")
		return nil, fmt.Errorf("[Session.Startup] %w", err)
	}
}

// Do sends req with the stored access token and recovers from one 401 by renewing
// the token and replaying the request. Calls to the login and refresh endpoints
// pass straight through.
func (s *Session) Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error) {
	if s.transport.IsAuthPath(req.Path) {
		return s.transport.Do(ctx, req)
	}

	token := s.accessToken(ctx)
	if token != "" && s.expired(token) {
		renewed, err := s.renew(ctx, token)
		if err != nil {
			return nil, err
		}
		token = renewed
	}

	resp, err := s.send(ctx, req, token)
	if !apiclient.IsUnauthorized(err) {
		return resp, err
	}
	if req.Retried {
		return nil, fmt.Errorf("[Session.Do] %w", err)
	}

	renewed, err := s.renew(ctx, token)
	if err != nil {
		return nil, err
	}

	req.Retried = true
	resp, err = s.send(ctx, req, renewed)
	if err != nil {
		return nil, fmt.Errorf("[Session.Do] replay: %w", err)
	}
	return resp, nil
}

func (s *Session) send(ctx context.Context, req apiclient.Request, token string) (*apiclient.Response, error) {
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	req.Header = header
	return s.transport.Do(ctx, req)
}

func (s *Session) accessToken(ctx context.Context) string {
	token, _, err := s.vault.LoadAccessToken(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load access token, sending request without it")
	}
	return token
}

// renew obtains a replacement for the stale access token. Concurrent callers
// holding the same stale token share one attempt, and attempts never overlap.
func (s *Session) renew(ctx context.Context, stale string) (string, error) {
	ch := s.renewals.DoChan(stale, func() (any, error) {
		return s.runRenewal(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("[Session.renew] %w", errors.Join(apperrors.ErrNetwork, ctx.Err()))
	}
}

func (s *Session) runRenewal(ctx context.Context, stale string) (string, error) {
	s.renewMu.Lock()
	defer s.renewMu.Unlock()

	epoch := s.currentEpoch()

	// Another renewal may have replaced the token while we waited.
	if current := s.accessToken(ctx); current != "" && current != stale {
		return current, nil
	}

	prev := s.State()
	if prev == StateRefreshingToken {
		prev = StateLoggedIn
	}
	s.setStateIn(epoch, StateRefreshingToken)

	token, refreshErr := s.refresh(ctx, epoch)
	if refreshErr == nil {
		s.metrics.ObserveAuth("refresh", "success")
		return s.renewed(epoch, token)
	}
	if !errors.Is(refreshErr, errNoRefreshToken) {
		s.metrics.ObserveAuth("refresh", "failure")
	}
	s.log.Info().Err(refreshErr).Msg("token refresh failed, trying saved login")

	token, err := s.relogin(ctx, epoch)
	switch {
	case err == nil:
		s.metrics.ObserveAuth("relogin", "success")
		return s.renewed(epoch, token)
	case errors.Is(err, ErrNoSavedLogin) && refreshRecoverable(refreshErr):
		// Nothing to fall back to, but the refresh token itself was never refused.
		s.metrics.ObserveAuth("relogin", "skipped")
		s.log.Info().Err(refreshErr).Msg("no saved login, keeping refresh token for retry")
		s.setStateIn(epoch, prev)
		return "", fmt.Errorf("[Session.renew] %w", refreshErr)
	case isRejection(err):
		s.metrics.ObserveAuth("relogin", "rejected")
		if s.currentEpoch() != epoch {
			return "", fmt.Errorf("[Session.renew] %w", ErrSessionEnded)
		}
		s.log.Warn().Err(err).Msg("saved login rejected, ending session")
		s.end(ctx)
		return "", fmt.Errorf("[Session.renew] %w", errors.Join(ErrSessionEnded, err))
	default:
		s.metrics.ObserveAuth("relogin", "failure")
		s.log.Info().Err(err).Msg("saved login failed, keeping credentials for retry")
		s.setStateIn(epoch, prev)
		return "", fmt.Errorf("[Session.renew] %w", err)
	}
}

// renewed publishes a successful renewal unless the session ended meanwhile.
func (s *Session) renewed(epoch uint64, token string) (string, error) {
	if !s.setStateIn(epoch, StateLoggedIn) {
		s.log.Info().Msg("discarding renewal that finished after logout")
		return "", fmt.Errorf("[Session.renew] %w", ErrSessionEnded)
	}
	return token, nil
}

func (s *Session) refresh(ctx context.Context, epoch uint64) (string, error) {
	refreshToken, ok, err := s.vault.LoadRefreshToken(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load refresh token")
	}
	if !ok {
		return "", errNoRefreshToken
	}

	token, err := s.transport.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	if s.currentEpoch() != epoch {
		return token.AccessToken, nil
	}
	if err := s.vault.SaveToken(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist refreshed token")
	}
	return token.AccessToken, nil
}

func (s *Session) relogin(ctx context.Context, epoch uint64) (string, error) {
	login, ok, err := s.vault.LoadLogin(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load saved login")
	}
	if !ok {
		return "", ErrNoSavedLogin
	}

	result, err := s.transport.Login(ctx, login.Username, login.Password)
	if err != nil {
		return "", err
	}
	if s.currentEpoch() != epoch {
		return result.Token.AccessToken, nil
	}
	if err := s.vault.SaveToken(ctx, result.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist tokens after silent login")
	}
	if result.User.ID != "" {
		s.sink.SetCurrentUser(utils.Ptr(result.User))
	}
	return result.Token.AccessToken, nil
}

// end erases every credential and clears the current user.
func (s *Session) end(ctx context.Context) {
	s.bumpEpoch()
	if err := s.vault.EraseAll(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn().Err(err).Msg("could not erase every credential")
	}
	s.sink.SetCurrentUser(nil)
	s.setState(StateLoggedOut)
}
