package reminders

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
	r.Route("/pets/{petID}/reminders", func(pr chi.Router) {
		pr.Post("/", createReminderHandler(store, resolvePet))
		pr.Get("/", listRemindersHandler(store, resolvePet))
	})
	r.Route("/reminders/{reminderID}", func(rr chi.Router) {
		rr.Get("/", getReminderHandler(store))
		rr.Patch("/", updateReminderHandler(store))
		rr.Delete("/", deleteReminderHandler(store))
	})
}

type createReminderRequest struct {
	PetName string `json:"pet_name"`

	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`

	Hour       int   `json:"hour"`
	Minute     int   `json:"minute"`
	DaysOfWeek []int `json:"days_of_week"`

	Enabled bool `json:"enabled"`
}

type reminderResponse struct {
	ID      string `json:"id"`
	Pending bool   `json:"pending"`
	PetID   string `json:"pet_id"`
	PetName string `json:"pet_name,omitempty"`

	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`

	Hour       int   `json:"hour"`
	Minute     int   `json:"minute"`
	DaysOfWeek []int `json:"days_of_week"`

	// DaysLabel y TimeLabel son los textos que muestra la UI.
	DaysLabel string `json:"days_label"`
	TimeLabel string `json:"time_label"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toReminderResponse(rm *Reminder) reminderResponse {
	return reminderResponse{
		ID:         rm.ID.String(),
		Pending:    rm.ID.IsLocal(),
		PetID:      rm.PetID.String(),
		PetName:    rm.PetName,
		Type:       string(rm.Type),
		Title:      rm.Title,
		Body:       rm.Body,
		Hour:       rm.Hour,
		Minute:     rm.Minute,
		DaysOfWeek: rm.DaysOfWeek,
		DaysLabel:  FormatDays(rm.DaysOfWeek),
		TimeLabel:  FormatTime12(rm.Hour, rm.Minute),
		Enabled:    rm.Enabled,
		CreatedAt:  rm.CreatedAt,
		UpdatedAt:  rm.UpdatedAt,
	}
}

type updateReminderRequest struct {
	PetName *string `json:"pet_name"`

	Type  *string `json:"type"`
	Title *string `json:"title"`
	Body  *string `json:"body"`

	Hour       *int   `json:"hour"`
	Minute     *int   `json:"minute"`
	DaysOfWeek *[]int `json:"days_of_week"`

	Enabled *bool `json:"enabled"`
}

func (req updateReminderRequest) patch() map[string]any {
	p := map[string]any{}
	if req.PetName != nil {
		p["pet_name"] = *req.PetName
	}
	if req.Type != nil {
		p["type"] = *req.Type
	}
	if req.Title != nil {
		p["title"] = *req.Title
	}
	if req.Body != nil {
		p["body"] = *req.Body
	}
	if req.Hour != nil {
		p["hour"] = *req.Hour
	}
	if req.Minute != nil {
		p["minute"] = *req.Minute
	}
	if req.DaysOfWeek != nil {
		p["days_of_week"] = *req.DaysOfWeek
	}
	if req.Enabled != nil {
		p["enabled"] = *req.Enabled
	}
	return p
}

func createReminderHandler(store *Store, resolvePet PetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := resolvePet(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		var req createReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		id, err := store.CreateReminder(r.Context(), CreateInput{
			PetID:      petID,
			PetName:    req.PetName,
			Type:       req.Type,
			Title:      req.Title,
			Body:       req.Body,
			Hour:       req.Hour,
			Minute:     req.Minute,
			DaysOfWeek: req.DaysOfWeek,
			Enabled:    req.Enabled,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		rm, _ := store.GetByID(id)
		writeJSON(w, http.StatusCreated, toReminderResponse(rm))
	}
}

func listRemindersHandler(store *Store, resolvePet PetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, ok := resolvePet(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "pet not found", http.StatusNotFound)
			return
		}

		out := make([]reminderResponse, 0)
		for _, rm := range store.ListByPet(petID) {
			out = append(out, toReminderResponse(rm))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getReminderHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "reminderID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rm, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toReminderResponse(rm))
	}
}

func updateReminderHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "reminderID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req updateReminderRequest
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

		rm, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toReminderResponse(rm))
	}
}

func deleteReminderHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "reminderID"))
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
