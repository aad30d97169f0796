// Package credentials persists the three secrets of a signed-in member: the saved
// username/password pair, the access token and the refresh token.
package credentials

import (
	"context"
	"errors"
)

// Kind names a secret. The value doubles as the storage service key.
type Kind string

const (
	KindLogin        Kind = "credentials"
	KindAccessToken  Kind = "accessToken"
	KindRefreshToken Kind = "refreshToken"
)

// Kinds lists every secret kind, in erase order.
var Kinds = []Kind{KindLogin, KindAccessToken, KindRefreshToken}

// ErrNotFound is returned by Store.Load when nothing is stored under a kind.
var ErrNotFound = errors.New("credential not found")

// Store is a secure key-value backend. Implementations must be safe for concurrent
// use; concurrent writes to the same kind are last-writer-wins.
type Store interface {
	// Save stores secret under kind, replacing any previous value.
	Save(ctx context.Context, kind Kind, secret string) error

	// Load returns the secret stored under kind, or ErrNotFound.
	Load(ctx context.Context, kind Kind) (string, error)

	// Erase removes the secret stored under kind. Erasing an absent kind is not an error.
	Erase(ctx context.Context, kind Kind) error
}
