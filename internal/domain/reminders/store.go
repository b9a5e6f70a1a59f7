package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
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
	*offline.Store[*Reminder]

	now func() time.Time
}

type Deps struct {
	Gateway   gateway.Gateway
	Snapshots snapshot.Store
	Log       logger.Logger
	Now       func() time.Time

	// OnCommit/OnRemove conectan el schedule engine; los inyecta el wiring
	// para no acoplar este package al engine.
	OnCommit func(ctx context.Context, r *Reminder, prev identity.ID)
	OnRemove func(ctx context.Context, r *Reminder)
}

func NewStore(d Deps) (*Store, error) {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	inner, err := offline.NewStore(offline.Config[*Reminder]{
		Kind:       gateway.KindReminders,
		Gateway:    d.Gateway,
		Snapshots:  d.Snapshots,
		Log:        d.Log,
		Now:        now,
		New:        func() *Reminder { return &Reminder{} },
		ToWire:     reminderToWire,
		FromWire:   reminderFromWire,
		ApplyPatch: applyReminderPatch(now),
		ParentRef:  func(r *Reminder) identity.ID { return r.PetID },
		SetParentRef: func(r *Reminder, id identity.ID) {
			r.PetID = id
		},
		OnCommit: d.OnCommit,
		OnRemove: d.OnRemove,
	})
	if err != nil {
		return nil, err
	}
	return &Store{Store: inner, now: now}, nil
}

type CreateInput struct {
	PetID   identity.ID
	PetName string

	Type  string
	Title string
	Body  string

	Hour       int
	Minute     int
	DaysOfWeek []int

	Enabled bool
}

func (s *Store) CreateReminder(ctx context.Context, in CreateInput) (identity.ID, error) {
	if in.PetID.IsZero() {
		return identity.ID{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Type) == "" {
		return identity.ID{}, ErrInvalidInput
	}
	if in.Hour < 0 || in.Hour > 23 || in.Minute < 0 || in.Minute > 59 {
		return identity.ID{}, ErrInvalidInput
	}
	days, ok := normalizeDays(in.DaysOfWeek)
	if !ok || len(days) == 0 {
		return identity.ID{}, ErrInvalidInput
	}

	now := s.now()
	r := &Reminder{
		PetID:      in.PetID,
		PetName:    strings.TrimSpace(in.PetName),
		Type:       Type(strings.TrimSpace(in.Type)),
		Title:      strings.TrimSpace(in.Title),
		Body:       strings.TrimSpace(in.Body),
		Hour:       in.Hour,
		Minute:     in.Minute,
		DaysOfWeek: days,
		Enabled:    in.Enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.Create(ctx, r)
}

// ListByPet filtra los reminders visibles de una mascota.
func (s *Store) ListByPet(petID identity.ID) []*Reminder {
	out := make([]*Reminder, 0)
	for _, r := range s.List() {
		if r.PetID == petID {
			out = append(out, r)
		}
	}
	return out
}

// normalizeDays deduplica, ordena y valida el set de días (0..6, dom=0).
func normalizeDays(in []int) ([]int, bool) {
	seen := map[int]bool{}
	out := make([]int, 0, len(in))
	for _, d := range in {
		if d < 0 || d > 6 {
			return nil, false
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out, true
}

// --- wire mapping ---

type wireReminder struct {
	ID      string `json:"id,omitempty"`
	PetID   string `json:"pet_id"`
	PetName string `json:"pet_name"`

	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`

	Hour       int   `json:"hour"`
	Minute     int   `json:"minute"`
	DaysOfWeek []int `json:"days_of_week"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func reminderToWire(r *Reminder) map[string]any {
	return map[string]any{
		"pet_id":       r.PetID.Canonical(),
		"pet_name":     r.PetName,
		"type":         string(r.Type),
		"title":        r.Title,
		"body":         r.Body,
		"hour":         r.Hour,
		"minute":       r.Minute,
		"days_of_week": r.DaysOfWeek,
		"enabled":      r.Enabled,
	}
}

func reminderFromWire(raw json.RawMessage) (*Reminder, error) {
	var w wireReminder
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.ID) == "" || strings.TrimSpace(w.PetID) == "" {
		return nil, ErrInvalidInput
	}
	days, ok := normalizeDays(w.DaysOfWeek)
	if !ok {
		return nil, ErrInvalidInput
	}
	return &Reminder{
		ID:         identity.Remote(w.ID),
		PetID:      identity.Remote(w.PetID),
		PetName:    w.PetName,
		Type:       Type(w.Type),
		Title:      w.Title,
		Body:       w.Body,
		Hour:       w.Hour,
		Minute:     w.Minute,
		DaysOfWeek: days,
		Enabled:    w.Enabled,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}, nil
}

func applyReminderPatch(now func() time.Time) func(*Reminder, map[string]any) error {
	return func(r *Reminder, patch map[string]any) error {
		touched := false
		for k, v := range patch {
			switch k {
			case "pet_name":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				r.PetName = s
			case "type":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				r.Type = Type(s)
			case "title":
				s, ok := v.(string)
				if !ok || strings.TrimSpace(s) == "" {
					return ErrInvalidInput
				}
				r.Title = strings.TrimSpace(s)
			case "body":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				r.Body = s
			case "hour":
				n, ok := asInt(v)
				if !ok || n < 0 || n > 23 {
					return ErrInvalidInput
				}
				r.Hour = n
			case "minute":
				n, ok := asInt(v)
				if !ok || n < 0 || n > 59 {
					return ErrInvalidInput
				}
				r.Minute = n
			case "days_of_week":
				ds, ok := asIntSlice(v)
				if !ok {
					return ErrInvalidInput
				}
				norm, ok := normalizeDays(ds)
				if !ok || len(norm) == 0 {
					return ErrInvalidInput
				}
				r.DaysOfWeek = norm
			case "enabled":
				b, ok := v.(bool)
				if !ok {
					return ErrInvalidInput
				}
				r.Enabled = b
			default:
				continue
			}
			touched = true
		}
		if touched {
			r.UpdatedAt = now()
		}
		return nil
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// asIntSlice acepta []int o []any de números (patches que vienen de JSON).
func asIntSlice(v any) ([]int, bool) {
	switch xs := v.(type) {
	case []int:
		return xs, true
	case []any:
		out := make([]int, 0, len(xs))
		for _, x := range xs {
			n, ok := asInt(x)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}
