// Package memory implementa la tabla de triggers in-memory (dev y tests).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
)

type Scheduler struct {
	mu      sync.Mutex
	byKey   map[notify.Key]notify.Trigger
	handles map[notify.Key]string
	subs    map[string]notify.Subscription

	// Deny, si está seteado, rechaza triggers selectivamente (tests de
	// degradación parcial por permiso denegado).
	Deny func(t notify.Trigger) error
}

func New() *Scheduler {
	return &Scheduler{
		byKey:   make(map[notify.Key]notify.Trigger),
		handles: make(map[notify.Key]string),
		subs:    make(map[string]notify.Subscription),
	}
}

func (s *Scheduler) Schedule(ctx context.Context, t notify.Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Deny != nil {
		if err := s.Deny(t); err != nil {
			return "", err
		}
	}

	// Re-registrar la misma key reemplaza.
	h := uuid.NewString()
	s.byKey[t.Key] = t
	s.handles[t.Key] = h
	return h, nil
}

func (s *Scheduler) CancelByReminder(ctx context.Context, reminderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.byKey {
		if k.ReminderID == reminderID {
			delete(s.byKey, k)
			delete(s.handles, k)
			n++
		}
	}
	return n, nil
}

func (s *Scheduler) ListAll(ctx context.Context) ([]notify.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notify.Trigger, 0, len(s.byKey))
	for _, t := range s.byKey {
		out = append(out, t)
	}
	// Orden estable para asserts.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.ReminderID != out[j].Key.ReminderID {
			return out[i].Key.ReminderID < out[j].Key.ReminderID
		}
		return out[i].Key.Weekday < out[j].Key.Weekday
	})
	return out, nil
}

func (s *Scheduler) SaveSubscription(ctx context.Context, sub notify.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *Scheduler) RemoveSubscription(ctx context.Context, endpoint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[endpoint]; !ok {
		return false, nil
	}
	delete(s.subs, endpoint)
	return true, nil
}

// Subscriptions devuelve las suscripciones registradas (asserts en tests).
func (s *Scheduler) Subscriptions() []notify.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notify.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}
