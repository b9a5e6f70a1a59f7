package pets_test

import (
	"context"
	"errors"
	"testing"

	gwmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/memory"
	snapmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/memory"
	"github.com/Jarrodhale08/petpal-app/internal/domain/pets"
)

func newStore(t *testing.T, gw *gwmemory.Gateway) *pets.Store {
	t.Helper()
	s, err := pets.NewStore(pets.Deps{
		Gateway:     gw,
		Snapshots:   snapmemory.New(),
		OwnerUserID: "owner-1",
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestNewStoreRequiresOwner(t *testing.T) {
	_, err := pets.NewStore(pets.Deps{
		Gateway:   gwmemory.New(),
		Snapshots: snapmemory.New(),
	})
	if !errors.Is(err, pets.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without owner, got %v", err)
	}
}

func TestCreatePetValidation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, gwmemory.New())

	cases := []struct {
		name string
		in   pets.CreateInput
	}{
		{"empty name", pets.CreateInput{Species: "dog"}},
		{"blank name", pets.CreateInput{Name: "   ", Species: "dog"}},
		{"empty species", pets.CreateInput{Name: "Milo"}},
		{"negative age", pets.CreateInput{Name: "Milo", Species: "dog", AgeYears: -1}},
		{"negative weight", pets.CreateInput{Name: "Milo", Species: "dog", WeightKg: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreatePet(ctx, tc.in); !errors.Is(err, pets.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreatePetTrimsAndStampsOwner(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, gwmemory.New())

	id, err := store.CreatePet(ctx, pets.CreateInput{
		Name:    "  Milo ",
		Species: " dog ",
		Breed:   " mixed ",
	})
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}

	p, ok := store.GetByID(id)
	if !ok {
		t.Fatalf("pet not found after create")
	}
	if p.Name != "Milo" || p.Species != pets.SpeciesDog || p.Breed != "mixed" {
		t.Fatalf("fields not normalized: %+v", p)
	}
	if p.OwnerUserID != "owner-1" {
		t.Fatalf("owner not stamped: %q", p.OwnerUserID)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", p)
	}
}

func TestUpdatePetPatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, gwmemory.New())

	id, err := store.CreatePet(ctx, pets.CreateInput{Name: "Milo", Species: "dog", AgeYears: 2})
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}

	ok, err := store.Update(ctx, id, map[string]any{
		"name":      "Milo II",
		"age_years": 3,
		"weight_kg": 12.5,
		"unknown":   "ignored",
	})
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	p, _ := store.GetByID(id)
	if p.Name != "Milo II" || p.AgeYears != 3 || p.WeightKg != 12.5 {
		t.Fatalf("patch not applied: %+v", p)
	}

	// name vacío es inválido y no muta nada.
	if _, err := store.Update(ctx, id, map[string]any{"name": "  "}); !errors.Is(err, pets.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	p, _ = store.GetByID(id)
	if p.Name != "Milo II" {
		t.Fatalf("invalid patch must not mutate: %+v", p)
	}
}
