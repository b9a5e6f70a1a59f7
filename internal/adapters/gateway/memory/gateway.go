// Package memory implementa un backend fake in-memory para dev y tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

var errOffline = errors.New("gateway offline")

type record struct {
	id   string
	data map[string]any
}

// Gateway guarda registros por kind con ids canónicos uuid. SetOnline(false)
// hace que toda llamada falle con TransientError, igual que un device sin
// red. Validate permite inyectar rechazos de validación.
type Gateway struct {
	mu      sync.Mutex
	byKind  map[gateway.Kind][]*record
	online  bool
	now     func() time.Time

	// Validate, si está seteado, corre antes de cada create/update; un
	// error se reporta como ValidationError.
	Validate func(kind gateway.Kind, record map[string]any) error

	// Calls cuenta llamadas por operación (para asserts de idempotencia).
	Calls map[string]int
}

func New() *Gateway {
	return &Gateway{
		byKind: make(map[gateway.Kind][]*record),
		online: true,
		now:    time.Now,
		Calls:  make(map[string]int),
	}
}

func (g *Gateway) SetOnline(online bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.online = online
}

func (g *Gateway) count(op string) { g.Calls[op]++ }

func (g *Gateway) FetchAll(ctx context.Context, kind gateway.Kind, filters map[string]string) ([]json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("fetch")

	if !g.online {
		return nil, gateway.Transient(errOffline)
	}

	out := make([]json.RawMessage, 0)
	for _, r := range g.byKind[kind] {
		if !matches(r.data, filters) {
			continue
		}
		b, err := json.Marshal(r.data)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (g *Gateway) Create(ctx context.Context, kind gateway.Kind, rec map[string]any) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("create")

	if !g.online {
		return nil, gateway.Transient(errOffline)
	}
	if g.Validate != nil {
		if err := g.Validate(kind, rec); err != nil {
			return nil, gateway.Invalid(err.Error(), err)
		}
	}

	now := g.now().UTC()
	data := make(map[string]any, len(rec)+3)
	for k, v := range rec {
		data[k] = v
	}
	id := uuid.NewString()
	data["id"] = id
	data["created_at"] = now
	data["updated_at"] = now

	g.byKind[kind] = append(g.byKind[kind], &record{id: id, data: data})
	return json.Marshal(data)
}

func (g *Gateway) Update(ctx context.Context, kind gateway.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("update")

	if !g.online {
		return nil, gateway.Transient(errOffline)
	}

	for _, r := range g.byKind[kind] {
		if r.id != id {
			continue
		}
		if g.Validate != nil {
			if err := g.Validate(kind, patch); err != nil {
				return nil, gateway.Invalid(err.Error(), err)
			}
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			r.data[k] = v
		}
		r.data["updated_at"] = g.now().UTC()
		return json.Marshal(r.data)
	}
	return nil, gateway.ErrUnknownID
}

func (g *Gateway) Remove(ctx context.Context, kind gateway.Kind, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("remove")

	if !g.online {
		return gateway.Transient(errOffline)
	}

	recs := g.byKind[kind]
	for i, r := range recs {
		if r.id == id {
			g.byKind[kind] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return gateway.ErrUnknownID
}

// Len es para asserts en tests.
func (g *Gateway) Len(kind gateway.Kind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byKind[kind])
}

func matches(data map[string]any, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := data[k]
		if !ok {
			return false
		}
		if s, ok := got.(string); !ok || s != want {
			return false
		}
	}
	return true
}
