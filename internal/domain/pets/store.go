package pets

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

// Store es el entity store de pets: un offline.Store tipado más la
// validación de inputs del dominio.
type Store struct {
	*offline.Store[*Pet]

	ownerID string
	now     func() time.Time
}

type Deps struct {
	Gateway     gateway.Gateway
	Snapshots   snapshot.Store
	Log         logger.Logger
	OwnerUserID string
	Now         func() time.Time
}

func NewStore(d Deps) (*Store, error) {
	if strings.TrimSpace(d.OwnerUserID) == "" {
		return nil, ErrInvalidInput
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	inner, err := offline.NewStore(offline.Config[*Pet]{
		Kind:       gateway.KindPets,
		Gateway:    d.Gateway,
		Snapshots:  d.Snapshots,
		Log:        d.Log,
		Now:        now,
		New:        func() *Pet { return &Pet{} },
		ToWire:     petToWire,
		FromWire:   petFromWire,
		ApplyPatch: applyPetPatch(now),
	})
	if err != nil {
		return nil, err
	}
	return &Store{Store: inner, ownerID: d.OwnerUserID, now: now}, nil
}

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	AgeYears  int
	WeightKg  float64
	Gender    string
	Color     string
	Microchip string
	Notes     string
}

func (s *Store) CreatePet(ctx context.Context, in CreateInput) (identity.ID, error) {
	if strings.TrimSpace(in.Name) == "" {
		return identity.ID{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Species) == "" {
		return identity.ID{}, ErrInvalidInput
	}
	if in.AgeYears < 0 || in.WeightKg < 0 {
		return identity.ID{}, ErrInvalidInput
	}

	now := s.now()
	p := &Pet{
		OwnerUserID: s.ownerID,
		Name:        strings.TrimSpace(in.Name),
		Species:     Species(strings.TrimSpace(in.Species)),
		Breed:       strings.TrimSpace(in.Breed),
		AgeYears:    in.AgeYears,
		WeightKg:    in.WeightKg,
		Gender:      Gender(strings.TrimSpace(in.Gender)),
		Color:       strings.TrimSpace(in.Color),
		Microchip:   strings.TrimSpace(in.Microchip),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.Create(ctx, p)
}

// --- wire mapping ---

type wirePet struct {
	ID          string  `json:"id,omitempty"`
	OwnerUserID string  `json:"owner_user_id"`
	Name        string  `json:"name"`
	Species     string  `json:"species"`
	Breed       string  `json:"breed"`
	AgeYears    int     `json:"age_years"`
	WeightKg    float64 `json:"weight_kg"`
	Gender      string  `json:"gender,omitempty"`
	Color       string  `json:"color,omitempty"`
	Microchip   string  `json:"microchip,omitempty"`
	Notes       string  `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func petToWire(p *Pet) map[string]any {
	return map[string]any{
		"owner_user_id": p.OwnerUserID,
		"name":          p.Name,
		"species":       string(p.Species),
		"breed":         p.Breed,
		"age_years":     p.AgeYears,
		"weight_kg":     p.WeightKg,
		"gender":        string(p.Gender),
		"color":         p.Color,
		"microchip":     p.Microchip,
		"notes":         p.Notes,
	}
}

func petFromWire(raw json.RawMessage) (*Pet, error) {
	var w wirePet
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	if strings.TrimSpace(w.ID) == "" {
		return nil, ErrInvalidInput
	}
	return &Pet{
		ID:          identity.Remote(w.ID),
		OwnerUserID: w.OwnerUserID,
		Name:        w.Name,
		Species:     Species(w.Species),
		Breed:       w.Breed,
		AgeYears:    w.AgeYears,
		WeightKg:    w.WeightKg,
		Gender:      Gender(w.Gender),
		Color:       w.Color,
		Microchip:   w.Microchip,
		Notes:       w.Notes,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}, nil
}

func applyPetPatch(now func() time.Time) func(*Pet, map[string]any) error {
	return func(p *Pet, patch map[string]any) error {
		touched := false
		for k, v := range patch {
			switch k {
			case "name":
				s, ok := v.(string)
				if !ok || strings.TrimSpace(s) == "" {
					return ErrInvalidInput
				}
				p.Name = strings.TrimSpace(s)
			case "species":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Species = Species(s)
			case "breed":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Breed = s
			case "age_years":
				n, ok := asInt(v)
				if !ok || n < 0 {
					return ErrInvalidInput
				}
				p.AgeYears = n
			case "weight_kg":
				f, ok := asFloat(v)
				if !ok || f < 0 {
					return ErrInvalidInput
				}
				p.WeightKg = f
			case "gender":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Gender = Gender(s)
			case "color":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Color = s
			case "microchip":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Microchip = s
			case "notes":
				s, ok := v.(string)
				if !ok {
					return ErrInvalidInput
				}
				p.Notes = s
			default:
				// Keys desconocidas (incl. refs inmutables) se ignoran.
				continue
			}
			touched = true
		}
		if touched {
			p.UpdatedAt = now()
		}
		return nil
	}
}

// asInt acepta int o float64 (los patches vienen de JSON).
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

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
