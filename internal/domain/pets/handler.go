package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jarrodhale08/petpal-app/internal/middleware"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/pets", func(pr chi.Router) {
		pr.Post("/", createPetHandler(store))
		pr.Get("/", listPetsHandler(store))
		pr.Get("/{petID}", getPetHandler(store))
		pr.Patch("/{petID}", updatePetHandler(store))
		pr.Delete("/{petID}", deletePetHandler(store))
	})
}

type createPetRequest struct {
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Breed     string  `json:"breed"`
	AgeYears  int     `json:"age_years"`
	WeightKg  float64 `json:"weight_kg"`
	Gender    string  `json:"gender"`
	Color     string  `json:"color"`
	Microchip string  `json:"microchip"`
	Notes     string  `json:"notes"`
}

type petResponse struct {
	ID        string    `json:"id"`
	Pending   bool      `json:"pending"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed"`
	AgeYears  int       `json:"age_years"`
	WeightKg  float64   `json:"weight_kg"`
	Gender    string    `json:"gender,omitempty"`
	Color     string    `json:"color,omitempty"`
	Microchip string    `json:"microchip,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPetResponse(p *Pet) petResponse {
	return petResponse{
		ID:        p.ID.String(),
		Pending:   p.ID.IsLocal(),
		Name:      p.Name,
		Species:   string(p.Species),
		Breed:     p.Breed,
		AgeYears:  p.AgeYears,
		WeightKg:  p.WeightKg,
		Gender:    string(p.Gender),
		Color:     p.Color,
		Microchip: p.Microchip,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// updatePetRequest usa punteros para PATCH real: nil = no tocar.
type updatePetRequest struct {
	Name      *string  `json:"name"`
	Species   *string  `json:"species"`
	Breed     *string  `json:"breed"`
	AgeYears  *int     `json:"age_years"`
	WeightKg  *float64 `json:"weight_kg"`
	Gender    *string  `json:"gender"`
	Color     *string  `json:"color"`
	Microchip *string  `json:"microchip"`
	Notes     *string  `json:"notes"`
}

func (req updatePetRequest) patch() map[string]any {
	p := map[string]any{}
	if req.Name != nil {
		p["name"] = *req.Name
	}
	if req.Species != nil {
		p["species"] = *req.Species
	}
	if req.Breed != nil {
		p["breed"] = *req.Breed
	}
	if req.AgeYears != nil {
		p["age_years"] = *req.AgeYears
	}
	if req.WeightKg != nil {
		p["weight_kg"] = *req.WeightKg
	}
	if req.Gender != nil {
		p["gender"] = *req.Gender
	}
	if req.Color != nil {
		p["color"] = *req.Color
	}
	if req.Microchip != nil {
		p["microchip"] = *req.Microchip
	}
	if req.Notes != nil {
		p["notes"] = *req.Notes
	}
	return p
}

func createPetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetOwner(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		id, err := store.CreatePet(r.Context(), CreateInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			AgeYears:  req.AgeYears,
			WeightKg:  req.WeightKg,
			Gender:    req.Gender,
			Color:     req.Color,
			Microchip: req.Microchip,
			Notes:     req.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		p, _ := store.GetByID(id)
		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

func listPetsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]petResponse, 0)
		for _, p := range store.List() {
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		p, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

func updatePetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "petID"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req updatePetRequest
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

		p, _ := store.GetByID(id)
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

func deletePetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := store.Resolve(chi.URLParam(r, "petID"))
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
