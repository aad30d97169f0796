// Package filevault stores credentials in a single passphrase-encrypted file.
// Each secret is sealed separately with XChaCha20-Poly1305 under a key derived
// from the passphrase with Argon2id, and the file is replaced atomically on write.
package filevault

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/MensaSverige/swagapp-sub001/credentials"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	fileVersion = 1
	saltLength  = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var _ credentials.Store = (*Store)(nil)

// ErrDecrypt is returned when a stored secret cannot be opened with the derived key.
var ErrDecrypt = errors.New("decryption failed (wrong passphrase or tampered data)")

type fileContents struct {
	Version int               `json:"version"`
	Salt    string            `json:"salt"`
	Entries map[string]string `json:"entries"`
}

type Store struct {
	path    string
	key     []byte
	salt    []byte
	entries map[string]string
	mu      sync.Mutex
}

// Open loads the vault at path, creating an empty one in memory if the file does
// not exist yet. The file itself is written on the first Save.
func Open(path, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("[filevault.Open] passphrase is required")
	}

	s := &Store{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.salt = make([]byte, saltLength)
		if _, err := rand.Read(s.salt); err != nil {
			return nil, pkgerrors.Wrap(err, "[filevault.Open] rand.Read")
		}
	case err != nil:
		return nil, pkgerrors.Wrap(err, "[filevault.Open] ReadFile")
	default:
		var contents fileContents
		if err := json.Unmarshal(data, &contents); err != nil {
			return nil, pkgerrors.Wrap(err, "[filevault.Open] corrupt vault file")
		}
		if contents.Version != fileVersion {
			return nil, fmt.Errorf("[filevault.Open] unsupported vault version %d", contents.Version)
		}
		if s.salt, err = hex.DecodeString(contents.Salt); err != nil || len(s.salt) != saltLength {
			return nil, errors.New("[filevault.Open] corrupt vault salt")
		}
		for k, v := range contents.Entries {
			s.entries[k] = v
		}
	}

	s.key = argon2.IDKey([]byte(passphrase), s.salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	return s, nil
}

func (s *Store) Save(_ context.Context, kind credentials.Kind, secret string) error {
	sealed, err := s.seal(kind, secret)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, had := s.entries[string(kind)]
	s.entries[string(kind)] = sealed
	if err := s.persist(); err != nil {
		if had {
			s.entries[string(kind)] = previous
		} else {
			delete(s.entries, string(kind))
		}
		return err
	}
	return nil
}

func (s *Store) Load(_ context.Context, kind credentials.Kind) (string, error) {
	s.mu.Lock()
	sealed, ok := s.entries[string(kind)]
	s.mu.Unlock()

	if !ok {
		return "", credentials.ErrNotFound
	}
	return s.open(kind, sealed)
}

func (s *Store) Erase(_ context.Context, kind credentials.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, had := s.entries[string(kind)]
	if !had {
		return nil
	}
	delete(s.entries, string(kind))
	if err := s.persist(); err != nil {
		s.entries[string(kind)] = previous
		return err
	}
	return nil
}

// seal encrypts secret with the kind as additional data, so an entry copied under
// another kind fails to open.
func (s *Store) seal(kind credentials.Kind, secret string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[filevault.seal] NewX")
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(secret)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", pkgerrors.Wrap(err, "[filevault.seal] rand.Read")
	}
	return hex.EncodeToString(aead.Seal(nonce, nonce, []byte(secret), []byte(kind))), nil
}

func (s *Store) open(kind credentials.Kind, sealed string) (string, error) {
	ciphertext, err := hex.DecodeString(sealed)
	if err != nil {
		return "", ErrDecrypt
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[filevault.open] NewX")
	}
	if len(ciphertext) < aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, body := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, body, []byte(kind))
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// persist writes the vault to a temporary file and renames it over the old one.
// Callers hold s.mu.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return pkgerrors.Wrap(err, "[filevault.persist] MkdirAll")
	}

	data, err := json.MarshalIndent(fileContents{
		Version: fileVersion,
		Salt:    hex.EncodeToString(s.salt),
		Entries: s.entries,
	}, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "[filevault.persist] marshal")
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return pkgerrors.Wrap(err, "[filevault.persist] WriteFile")
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return pkgerrors.Wrap(err, "[filevault.persist] Rename")
	}
	return nil
}
