package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/offline"
	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Store struct {
	*offline.Store[*Appointment]

	now func() time.Time
}

type Deps struct {
	Gateway   gateway.Gateway
	Snapshots snapshot.Store
	Log       logger.Logger
	Now       func() time.Time
}

func NewStore(d Deps) (*Store, error) {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	inner, err := offline.NewStore(offline.Config[*Appointment]{
		Kind:       gateway.KindAppointments,
		Gateway:    d.Gateway,
		Snapshots:  d.Snapshots,
		Log:        d.Log,
		Now:        now,
		New:        func() *Appointment { return &Appointment{} },
		ToWire:     appointmentToWire,
		FromWire:   appointmentFromWire,
		ApplyPatch: applyAppointmentPatch(now),
		ParentRef:  func(a *Appointment) identity.ID { return a.PetID },
		SetParentRef: func(a *Appointment, id identity.ID) {
			a.PetID = id
		},
	})
	if err != nil {
		return nil, err
	}
	return &Store{Store: inner, now: now}, nil
}

type CreateInput struct {
	PetID    identity.ID
	Type     string
	Title    string
	StartsAt time.Time

	Vet      string
	Clinic   string
	Location string
	Notes    string

	ReminderEnabled bool
}

func (s *Store) CreateAppointment(ctx context.Context, in CreateInput) (identity.ID, error) {
	if in.PetID.IsZero() {
		return identity.ID{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Type) == "" {
		return identity.ID{}, ErrInvalidInput
	}
	if in.StartsAt.IsZero() {
		return identity.ID{}, ErrInvalidInput
	}

	now := s.now()
	a := &Appointment{
		PetID:           in.PetID,
		Type:            Type(strings.TrimSpace(in.Type)),
		Title:           strings.TrimSpace(in.Title),
		StartsAt:        in.StartsAt,
		Vet:             strings.TrimSpace(in.Vet),
		Clinic:          strings.TrimSpace(in.Clinic),
		Location:        strings.TrimSpace(in.Location),
		Notes:           strings.TrimSpace(in.Notes),
		ReminderEnabled: in.ReminderEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.Create(ctx, a)
}

// ListByPet filtra las citas visibles de una mascota, orden de creación.
func (s *Store) ListByPet(petID identity.ID) []*Appointment {
	out := make([]*Appointment, 0)
	for _, a := range s.List() {
		if a.PetID == petID {
			out = append(out, a)
		}
	}
	return out
}

// --- wire mapping ---

type wireAppointment struct {
	ID    string `json:"id,omitempty"`
	PetID string `json:"pet_id"`

	Type     string    `json:"type"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`

	Vet      string `json:"vet,omitempty"`
	Clinic   string `json:"clinic,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`

	ReminderEnabled bool `json:"reminder_enabled"`
	IsCompleted     bool `json:"is_completed"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func appointmentToWire(a *Appointment) map[string]any {
	return map[string]any{
		"pet_id":           a.PetID.Canonical(),
		"type":             string(a.Type),
		"title":            a.Title,
		"starts_at":        a.StartsAt,
		"vet":              a.Vet,
		"clinic":           a.Clinic,
		"location":         a.Location,
		"notes":            a.Notes,
		"reminder_enabled": a.ReminderEnabled,
		"is_completed":     a.IsCompleted,
	}
}

func appointmentFromWire(raw json.RawMessage) (*Appointment, error) {
	var w wireAppointment
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.PetID) == "" {
		return nil, ErrInvalidInput
	}
	return &Appointment{
		ID:              identity.Remote(w.ID),
		PetID:           identity.Remote(w.PetID),
		Type:            Type(w.Type),
		Title:           w.Title,
		StartsAt:        w.StartsAt,
		Vet:             w.Vet,
		Clinic:          w.Clinic,
		Location:        w.Location,
		Notes:           w.Notes,
		ReminderEnabled: w.ReminderEnabled,
		IsCompleted:     w.IsCompleted,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}, nil
}

func applyAppointmentPatch(now func() time.Time) func(*Appointment, map[string]any) error {
	return func(a *Appointment, patch map[string]any) error {
		touched := false
		for k, v := range patch {
			switch k {
			case "type":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				a.Type = Type(s)
			case "title":
				s, ok := v.(string)
				if !ok || strings.TrimSpace(s) == "" {
					return ErrInvalidInput
				}
				a.Title = strings.TrimSpace(s)
			case "starts_at":
				t, ok := asTime(v)
				if !ok {
					return ErrInvalidInput
				}
				a.StartsAt = t
			case "vet":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				a.Vet = s
			case "clinic":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				a.Clinic = s
			case "location":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				a.Location = s
			case "notes":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				a.Notes = s
			case "reminder_enabled":
				b, ok := v.(bool)
				if !ok {
					return ErrInvalidInput
				}
				a.ReminderEnabled = b
			case "is_completed":
				b, ok := v.(bool)
				if !ok {
					return ErrInvalidInput
				}
				a.IsCompleted = b
			default:
				continue
			}
			touched = true
		}
		if touched {
			a.UpdatedAt = now()
		}
		return nil
	}
}

// asTime acepta time.Time o string RFC3339 (los patches vienen de JSON).
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
