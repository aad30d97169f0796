package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/MensaSverige/swagapp-sub001/internal/utils"
	"github.com/MensaSverige/swagapp-sub001/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// AuthResult is a successful login.
type AuthResult struct {
	Token *oauth2.Token
	User  users.Profile
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenResponse is the body of both the login and the refresh endpoint.
type tokenResponse struct {
	AccessToken       string         `json:"accessToken"`
	RefreshToken      string         `json:"refreshToken,omitempty"`
	AccessTokenExpiry *time.Time     `json:"accessTokenExpiry,omitempty"`
	User              *users.Profile `json:"user,omitempty"`
}

func (t tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.AccessTokenExpiry != nil {
		tok.Expiry = *t.AccessTokenExpiry
	}
	return tok
}

// Login exchanges a username and password for tokens and the member profile.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   c.paths.Auth,
		Body:   loginRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}

	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	if body.AccessToken == "" {
		return nil, errors.New("[Client.Login] response carried no access token")
	}

	return &AuthResult{Token: body.token(), User: utils.Value(body.User)}, nil
}

// Refresh exchanges a refresh token for a new access token. The returned token
// carries a rotated refresh token only when the server issued one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   c.paths.Refresh,
		Body:   refreshRequest{RefreshToken: refreshToken},
	})
	if err != nil {
		return nil, err
	}

	var body tokenResponse
	if err := resp.Decode(&body); err != nil {
		return nil, errors.Wrap(err, "[Client.Refresh]")
	}
	if body.AccessToken == "" {
		return nil, errors.New("[Client.Refresh] response carried no access token")
	}
	return body.token(), nil
}
