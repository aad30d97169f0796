package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Login is the username/password pair a member opted to keep for silent re-login.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Vault is the typed view over a Store used by the session. Every backend failure
// it returns wraps apperrors.ErrStorage.
type Vault struct {
	store Store
	log   zerolog.Logger
}

type VaultOption func(*Vault)

func WithLogger(log zerolog.Logger) VaultOption {
	return func(v *Vault) {
		v.log = log
	}
}

func NewVault(store Store, options ...VaultOption) *Vault {
	v := &Vault{
		store: store,
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

func storageErr(op string, kind Kind, err error) error {
	return fmt.Errorf("[Vault.%s] %s: %w", op, kind, errors.Join(apperrors.ErrStorage, err))
}

// Load returns the secret under kind. ok is false when it is absent.
func (v *Vault) Load(ctx context.Context, kind Kind) (secret string, ok bool, err error) {
	secret, err = v.store.Load(ctx, kind)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("Load", kind, err)
	}
	return secret, secret != "", nil
}

func (v *Vault) Save(ctx context.Context, kind Kind, secret string) error {
	if err := v.store.Save(ctx, kind, secret); err != nil {
		return storageErr("Save", kind, err)
	}
	return nil
}

func (v *Vault) Erase(ctx context.Context, kind Kind) error {
	if err := v.store.Erase(ctx, kind); err != nil {
		return storageErr("Erase", kind, err)
	}
	return nil
}

// EraseAll erases every kind. A failure on one kind does not stop the others; all
// failures are returned together.
func (v *Vault) EraseAll(ctx context.Context) error {
	var errs []error
	for _, kind := range Kinds {
		if err := v.Erase(ctx, kind); err != nil {
			v.log.Warn().Err(err).Str("kind", string(kind)).Msg("failed to erase credential")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasAny reports whether at least one secret is stored.
func (v *Vault) HasAny(ctx context.Context) (bool, error) {
	var errs []error
	for _, kind := range Kinds {
		_, ok, err := v.Load(ctx, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func (v *Vault) SaveLogin(ctx context.Context, login Login) error {
	data, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("[Vault.SaveLogin] marshal: %w", err)
	}
	return v.Save(ctx, KindLogin, string(data))
}

// LoadLogin returns the saved username/password. ok is false when none is saved or
// the stored value is incomplete.
func (v *Vault) LoadLogin(ctx context.Context) (login Login, ok bool, err error) {
	raw, ok, err := v.Load(ctx, KindLogin)
	if err != nil || !ok {
		return Login{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &login); err != nil {
		v.log.Warn().Err(err).Msg("discarding unreadable saved login")
		return Login{}, false, nil
	}
	if login.Username == "" || login.Password == "" {
		return Login{}, false, nil
	}
	return login, true, nil
}

// SaveToken persists the access token and, when present, the refresh token.
func (v *Vault) SaveToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("[Vault.SaveToken] access token is required")
	}
	if err := v.Save(ctx, KindAccessToken, token.AccessToken); err != nil {
		return err
	}
	if token.RefreshToken != "" {
		if err := v.Save(ctx, KindRefreshToken, token.RefreshToken); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vault) LoadAccessToken(ctx context.Context) (string, bool, error) {
	return v.Load(ctx, KindAccessToken)
}

func (v *Vault) LoadRefreshToken(ctx context.Context) (string, bool, error) {
	return v.Load(ctx, KindRefreshToken)
}
