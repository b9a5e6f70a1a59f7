package reminders

import (
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
)

// Type define los tipos de reminder soportados.
type Type string

const (
	TypeFeeding    Type = "feeding"
	TypeWalk       Type = "walk"
	TypeMedication Type = "medication"
	TypeGrooming   Type = "grooming"
	TypeVet        Type = "vet"
	TypeOther      Type = "other"
)

// Reminder es una rutina recurrente de una mascota: una hora del día sobre
// un set de días de la semana (0..6, domingo=0). Hijo de Pet en el grafo
// de dependencias. Cada mutación commiteada dispara sincrónicamente el
// schedule engine, que mantiene los triggers del scheduler en línea con
// los reminders habilitados.
type Reminder struct {
	ID    identity.ID `json:"id"`
	PetID identity.ID `json:"pet_id"`

	// PetName está denormalizado para mostrar sin ir al store de pets.
	PetName string `json:"pet_name"`

	Type  Type   `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`

	Hour       int   `json:"hour"`   // 0..23
	Minute     int   `json:"minute"` // 0..59
	DaysOfWeek []int `json:"days_of_week"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Reminder) RecordID() identity.ID      { return r.ID }
func (r *Reminder) SetRecordID(id identity.ID) { r.ID = id }
