// Package redisstore keeps credentials in Redis, for headless clients that share
// a session across processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MensaSverige/swagapp-sub001/credentials"
	red "github.com/redis/go-redis/v9"
)

const defaultPrefix = "swag"

var _ credentials.Store = (*Store)(nil)

type Store struct {
	client *red.Client
	prefix string
}

// New wires a Redis client into a credential store. Keys are "<prefix>:credentials:<kind>".
func New(client *red.Client, keyPrefix string) *Store {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(kind credentials.Kind) string {
	return fmt.Sprintf("%s:credentials:%s", s.prefix, kind)
}

func (s *Store) Save(ctx context.Context, kind credentials.Kind, secret string) error {
	if err := s.client.Set(ctx, s.key(kind), secret, 0).Err(); err != nil {
		return fmt.Errorf("redis set credential: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, kind credentials.Kind) (string, error) {
	value, err := s.client.Get(ctx, s.key(kind)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", credentials.ErrNotFound
		}
		return "", fmt.Errorf("redis get credential: %w", err)
	}
	return value, nil
}

func (s *Store) Erase(ctx context.Context, kind credentials.Kind) error {
	if err := s.client.Del(ctx, s.key(kind)).Err(); err != nil {
		return fmt.Errorf("redis del credential: %w", err)
	}
	return nil
}
