package memstore

import (
	"context"
	"sync"

	"github.com/MensaSverige/swagapp-sub001/credentials"
)

var _ credentials.Store = (*Store)(nil)

type Op string

const (
	OpSave  Op = "save"
	OpLoad  Op = "load"
	OpErase Op = "erase"
)

type failure struct {
	op   Op
	kind credentials.Kind
}

// Store keeps secrets in memory. It is used in tests and for runs that must not
// touch disk.
type Store struct {
	secrets  map[credentials.Kind]string
	failures map[failure]error
	calls    map[Op]int
	lock     sync.RWMutex
}

func New() *Store {
	return &Store{
		secrets:  make(map[credentials.Kind]string),
		failures: make(map[failure]error),
		calls:    make(map[Op]int),
	}
}

// Seed stores secrets without counting calls.
func (s *Store) Seed(secrets map[credentials.Kind]string) *Store {
	s.lock.Lock()
	defer s.lock.Unlock()
	for k, v := range secrets {
		s.secrets[k] = v
	}
	return s
}

// FailOn makes every op on kind return err until cleared with a nil err.
func (s *Store) FailOn(op Op, kind credentials.Kind, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err == nil {
		delete(s.failures, failure{op, kind})
		return
	}
	s.failures[failure{op, kind}] = err
}

func (s *Store) Save(_ context.Context, kind credentials.Kind, secret string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[OpSave]++
	if err := s.failures[failure{OpSave, kind}]; err != nil {
		return err
	}
	s.secrets[kind] = secret
	return nil
}

func (s *Store) Load(_ context.Context, kind credentials.Kind) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[OpLoad]++
	if err := s.failures[failure{OpLoad, kind}]; err != nil {
		return "", err
	}
	secret, ok := s.secrets[kind]
	if !ok {
		return "", credentials.ErrNotFound
	}
	return secret, nil
}

func (s *Store) Erase(_ context.Context, kind credentials.Kind) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[OpErase]++
	if err := s.failures[failure{OpErase, kind}]; err != nil {
		return err
	}
	delete(s.secrets, kind)
	return nil
}

// Get returns the stored secret without going through the failure hooks.
func (s *Store) Get(kind credentials.Kind) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	secret, ok := s.secrets[kind]
	return secret, ok
}

// Len is the number of stored secrets.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.secrets)
}

// Calls is the number of times op was invoked.
func (s *Store) Calls(op Op) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls[op]
}
