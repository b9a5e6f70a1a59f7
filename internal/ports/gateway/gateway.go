package gateway

import (
	"context"
	"encoding/json"
)

// Kind es la colección remota sobre la que opera una llamada.
type Kind string

const (
	KindPets         Kind = "pets"
	KindAppointments Kind = "appointments"
	KindReminders    Kind = "reminders"
)

// Gateway es el contrato contra el backend multi-tenant. Toda implementación
// está implícitamente scoped a un user autenticado y un tenant fijo; los
// registros viajan como JSON en el formato wire del backend (ids canónicos
// planos, nunca ids locales).
type Gateway interface {
	FetchAll(ctx context.Context, kind Kind, filters map[string]string) ([]json.RawMessage, error)
	Create(ctx context.Context, kind Kind, record map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, kind Kind, id string, patch map[string]any) (json.RawMessage, error)
	Remove(ctx context.Context, kind Kind, id string) error
}
