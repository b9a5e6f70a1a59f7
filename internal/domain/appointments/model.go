package appointments

import (
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
)

// Type define los tipos de cita soportados.
type Type string

const (
	TypeVetVisit    Type = "vet_visit"
	TypeVaccination Type = "vaccination"
	TypeGrooming    Type = "grooming"
	TypeSurgery     Type = "surgery"
	TypeCheckup     Type = "checkup"
	TypeOther       Type = "other"
)

// Appointment es una cita puntual de una mascota. Hijo de Pet en el grafo
// de dependencias: se borra en cascada con la mascota.
type Appointment struct {
	ID    identity.ID `json:"id"`
	PetID identity.ID `json:"pet_id"`

	Type     Type      `json:"type"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`

	Vet      string `json:"vet,omitempty"`
	Clinic   string `json:"clinic,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`

	ReminderEnabled bool `json:"reminder_enabled"`
	IsCompleted     bool `json:"is_completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Appointment) RecordID() identity.ID      { return a.ID }
func (a *Appointment) SetRecordID(id identity.ID) { a.ID = id }
