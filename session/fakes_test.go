package session_test

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/MensaSverige/swagapp-sub001/apiclient"
	"github.com/MensaSverige/swagapp-sub001/users"
	"golang.org/x/oauth2"
)

// fakeTransport answers every domain request with the current user when the bearer
// token is in validTokens, and with 401 otherwise.
type fakeTransport struct {
	mu           sync.Mutex
	validTokens  map[string]bool
	refreshFn    func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	loginFn      func(ctx context.Context, username, password string) (*apiclient.AuthResult, error)
	doFn         func(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
	refreshCalls int
	loginCalls   int
	requests     []apiclient.Request
}

func newFakeTransport(valid ...string) *fakeTransport {
	f := &fakeTransport{validTokens: make(map[string]bool)}
	for _, v := range valid {
		f.validTokens[v] = true
	}
	return f
}

func (f *fakeTransport) Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	doFn := f.doFn
	token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	valid := f.validTokens[token]
	f.mu.Unlock()

	if doFn != nil {
		return doFn(ctx, req)
	}
	if !valid {
		return nil, &apiclient.HTTPStatusError{Method: req.Method, Path: req.Path, Status: http.StatusUnauthorized}
	}
	return &apiclient.Response{Status: http.StatusOK, Body: []byte(`{"userId":"42","firstName":"Ada"}`)}, nil
}

func (f *fakeTransport) Login(ctx context.Context, username, password string) (*apiclient.AuthResult, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &apiclient.HTTPStatusError{Method: http.MethodPost, Path: "/auth", Status: http.StatusUnauthorized}
	}
	return fn(ctx, username, password)
}

func (f *fakeTransport) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &apiclient.HTTPStatusError{Method: http.MethodPost, Path: "/refresh_token", Status: http.StatusUnauthorized}
	}
	return fn(ctx, refreshToken)
}

func (f *fakeTransport) IsAuthPath(path string) bool {
	return path == "/auth" || path == "/refresh_token"
}

func (f *fakeTransport) Paths() apiclient.Paths {
	return apiclient.DefaultPaths()
}

func (f *fakeTransport) validate(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validTokens[token] = true
}

func (f *fakeTransport) counts() (requests, refreshes, logins int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests), f.refreshCalls, f.loginCalls
}

func (f *fakeTransport) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	headers := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		headers = append(headers, r.Header.Get("Authorization"))
	}
	return headers
}

type recordingSink struct {
	mu              sync.Mutex
	user            *users.Profile
	loginInProgress bool
	progressHistory []bool
}

func (s *recordingSink) SetCurrentUser(user *users.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *recordingSink) SetLoginInProgress(inProgress bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginInProgress = inProgress
	s.progressHistory = append(s.progressHistory, inProgress)
}

func (s *recordingSink) currentUser() *users.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *recordingSink) inProgress() (bool, []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginInProgress, append([]bool(nil), s.progressHistory...)
}
