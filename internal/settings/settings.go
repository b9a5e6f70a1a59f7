// Package settings maneja los toggles persistidos que gatean el schedule
// engine: un registro plano aparte de los snapshots de entidades.
package settings

import (
	"context"
	"sync"

	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

type Service struct {
	mu    sync.Mutex
	store snapshot.SettingsStore
	log   logger.Logger
	cur   snapshot.Settings

	// onChange corre después de persistir un cambio; el wiring lo usa para
	// resincronizar el set de triggers cuando el gate se abre o cierra.
	onChange func(ctx context.Context, s snapshot.Settings)
}

func NewService(store snapshot.SettingsStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store: store,
		log:   log.With(map[string]any{"component": "settings"}),
		// Defaults de primer arranque: reminders activos.
		cur: snapshot.Settings{PushEnabled: true, RemindersEnabled: true},
	}
}

func (s *Service) Init(ctx context.Context) error {
	loaded, found, err := s.store.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if found {
		s.mu.Lock()
		s.cur = loaded
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) SetOnChange(fn func(ctx context.Context, st snapshot.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Service) Get() snapshot.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// RemindersAllowed es el gate del schedule engine.
func (s *Service) RemindersAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.PushEnabled && s.cur.RemindersEnabled
}

func (s *Service) Set(ctx context.Context, st snapshot.Settings) error {
	s.mu.Lock()
	if st == s.cur {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// Persistir primero: si el save falla, el estado vivo no cambió y el
	// gate sigue reflejando lo que el caller ve.
	if err := s.store.SaveSettings(ctx, st); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = st
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(ctx, st)
	}
	return nil
}
