// Package memory implementa el snapshot store in-memory (dev y tests).
package memory

import (
	"context"
	"sync"

	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

type Store struct {
	mu       sync.Mutex
	byKind   map[string]snapshot.State
	settings *snapshot.Settings

	// FailSaves fuerza errores de Save (tests de best-effort persistence).
	FailSaves error
}

func New() *Store {
	return &Store{byKind: make(map[string]snapshot.State)}
}

func (s *Store) Load(ctx context.Context, kind string) (snapshot.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.byKind[kind]
	return st, ok, nil
}

func (s *Store) Save(ctx context.Context, kind string, st snapshot.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves != nil {
		return s.FailSaves
	}
	s.byKind[kind] = st
	return nil
}

func (s *Store) LoadSettings(ctx context.Context) (snapshot.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings == nil {
		return snapshot.Settings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *Store) SaveSettings(ctx context.Context, st snapshot.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves != nil {
		return s.FailSaves
	}
	s.settings = &st
	return nil
}
