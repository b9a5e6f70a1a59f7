package pets

import (
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
)

// Species define las especies soportadas.
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesBird  Species = "bird"
	SpeciesOther Species = "other"
)

// Gender define el sexo de la mascota.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Pet representa el perfil básico de una mascota. Es la raíz del grafo de
// dependencias: appointments y reminders la referencian por id.
type Pet struct {
	ID          identity.ID `json:"id"`
	OwnerUserID string      `json:"owner_user_id"`

	Name    string  `json:"name"`
	Species Species `json:"species"`
	Breed   string  `json:"breed"`

	AgeYears int     `json:"age_years"`
	WeightKg float64 `json:"weight_kg"`

	Gender    Gender `json:"gender,omitempty"`
	Color     string `json:"color,omitempty"`
	Microchip string `json:"microchip,omitempty"`
	Notes     string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Pet) RecordID() identity.ID      { return p.ID }
func (p *Pet) SetRecordID(id identity.ID) { p.ID = id }
