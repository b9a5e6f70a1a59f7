package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

// PetResolver traduce un id crudo de la URL a un id de mascota conocido.
type PetResolver func(raw string) (identity.ID, bool)

func RegisterRoutes(r chi.Router, store *Store, resolvePet PetResolver) {
	r.Route("/pets/{petID}/appointments", func(pr chi.Router) {
		pr.Post("/", createAppointmentHandler(store, resolvePet))
		pr.Get("/", listAppointmentsHandler(store, resolvePet))
	})
	r.Route("/appointments/{appointmentID}", func(ar chi.Router) {
		ar.Get("/", getAppointmentHandler(store))
		ar.Patch("/", updateAppointmentHandler(store))
		ar.Delete("/", deleteAppointmentHandler(store))
	})
}

type createAppointmentRequest struct {
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`

	Vet      string `json:"vet"`
	Clinic   string `json:"clinic"`
	Location string `json:"location"`
	Notes    string `json:"notes"`

	ReminderEnabled bool `json:"reminder_enabled"`
}

type appointmentResponse struct {
	ID       string    `json:"id"`
	Pending  bool      `json:"pending"`
	PetID    string    `json:"pet_id"`
	Type     string    `json:"type"`
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

func toAppointmentResponse(a *Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID.String(),
		Pending:         a.ID.IsLocal(),
		PetID:           a.PetID.String(),
		Type:            string(a.Type),
		Title:           a.Title,
		StartsAt:        a.StartsAt,
		Vet:             a.Vet,
		Clinic:          a.Clinic,
		Location:        a.Location,
		Notes:           a.Notes,
		ReminderEnabled: a.ReminderEnabled,
		IsCompleted:     a.IsCompleted,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type updateAppointmentRequest struct {
	Type     *string    `json:"type"`
	Title    *string    `json:"title"`
	StartsAt *time.Time `json:"starts_at"`

	Vet      *string `json:"vet"`
	Clinic   *string `json:"clinic"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`

	ReminderEnabled *bool `json:"reminder_enabled"`
	IsCompleted     *bool `json:"is_completed"`
}

func (req updateAppointmentRequest) patch() map[string]any {
	p := map[string]any{}
	if req.Type != nil {
		p["type"] = *req.Type
	}
	if req.Title != nil {
		p["title"] = *req.Title
	}
	if req.StartsAt != nil {
		p["starts_at"] = *req.StartsAt
	}
	if req.Vet != nil {
		p["vet"] = *req.Vet
	}
	if req.Clinic != nil {
		p["clinic"] = *req.Clinic
	}
	if req.Location != nil {
		p["location"] = *req.Location
	}
	if req.Notes != nil {
		p["notes"] = *req.Notes
	}
	if req.ReminderEnabled != nil {
		p["reminder_enabled"] = *req.ReminderEnabled
	}
	if req.IsCompleted != nil {
		p["is_completed"] = *req.IsCompleted
	}
	return p
}

func createAppointmentHandler(store *Store, resolvePet PetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := resolvePet(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		var req createAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		id, err := store.CreateAppointment(r.Context(), CreateInput{
			PetID:           petID,
			Type:            req.Type,
			Title:           req.Title,
			StartsAt:        req.StartsAt,
			Vet:             req.Vet,
			Clinic:          req.Clinic,
			Location:        req.Location,
			Notes:           req.Notes,
			ReminderEnabled: req.ReminderEnabled,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		a, _ := store.GetByID(id)
		writeJSON(w, http.StatusCreated, toAppointmentResponse(a))
	}
}

func listAppointmentsHandler(store *Store, resolvePet PetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := resolvePet(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		out := make([]appointmentResponse, 0)
		for _, a := range store.ListByPet(petID) {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getAppointmentHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "appointmentID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		a, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toAppointmentResponse(a))
	}
}

func updateAppointmentHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "appointmentID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req updateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ok, err := store.Update(r.Context(), id, req.patch())
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		a, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toAppointmentResponse(a))
	}
}

func deleteAppointmentHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "appointmentID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		ok, err := store.Remove(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case gateway.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
