package reminders_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	gwmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/memory"
	notifymemory "github.com/Jarrodhale08/petpal-app/internal/adapters/notify/memory"
	snapmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/memory"
	"github.com/Jarrodhale08/petpal-app/internal/domain/reminders"
	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
	"github.com/Jarrodhale08/petpal-app/internal/schedule"
)

// newWiredStore arma el store con el schedule engine conectado por hooks,
// igual que el wiring real de la app.
func newWiredStore(t *testing.T, gw *gwmemory.Gateway) (*reminders.Store, *notifymemory.Scheduler) {
	t.Helper()

	sched := notifymemory.New()
	eng := schedule.New(sched, nil, nil)

	store, err := reminders.NewStore(reminders.Deps{
		Gateway:   gw,
		Snapshots: snapmemory.New(),
		OnCommit: func(ctx context.Context, r *reminders.Reminder, prev identity.ID) {
			eng.Apply(ctx, r, prev)
		},
		OnRemove: func(ctx context.Context, r *reminders.Reminder) {
			eng.Cancel(ctx, r)
		},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, sched
}

func countTriggers(t *testing.T, sched *notifymemory.Scheduler, reminderID string) int {
	t.Helper()
	all, err := sched.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	n := 0
	for _, tr := range all {
		if tr.Key.ReminderID == reminderID {
			n++
		}
	}
	return n
}

func TestCreateReminderValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newWiredStore(t, gwmemory.New())

	pet := identity.Remote("pet-1")
	cases := []struct {
		name string
		in   reminders.CreateInput
	}{
		{"missing pet", reminders.CreateInput{Type: "walk", Title: "x", DaysOfWeek: []int{1}}},
		{"missing title", reminders.CreateInput{PetID: pet, Type: "walk", DaysOfWeek: []int{1}}},
		{"hour too big", reminders.CreateInput{PetID: pet, Type: "walk", Title: "x", Hour: 24, DaysOfWeek: []int{1}}},
		{"negative minute", reminders.CreateInput{PetID: pet, Type: "walk", Title: "x", Minute: -1, DaysOfWeek: []int{1}}},
		{"day out of range", reminders.CreateInput{PetID: pet, Type: "walk", Title: "x", DaysOfWeek: []int{7}}},
		{"no days", reminders.CreateInput{PetID: pet, Type: "walk", Title: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateReminder(ctx, tc.in); !errors.Is(err, reminders.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateReminderNormalizesDays(t *testing.T) {
	ctx := context.Background()
	store, _ := newWiredStore(t, gwmemory.New())

	id, err := store.CreateReminder(ctx, reminders.CreateInput{
		PetID:      identity.Remote("pet-1"),
		Type:       "walk",
		Title:      "Paseo",
		DaysOfWeek: []int{5, 1, 3, 1},
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	r, _ := store.GetByID(id)
	if !reflect.DeepEqual(r.DaysOfWeek, []int{1, 3, 5}) {
		t.Fatalf("days not normalized: %v", r.DaysOfWeek)
	}
}

func TestEnabledReminderRegistersTriggersOnCreate(t *testing.T) {
	ctx := context.Background()
	store, sched := newWiredStore(t, gwmemory.New())

	id, err := store.CreateReminder(ctx, reminders.CreateInput{
		PetID:      identity.Remote("pet-1"),
		Type:       "medication",
		Title:      "Pastilla",
		Hour:       8,
		DaysOfWeek: []int{1, 2, 3, 4, 5},
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if n := countTriggers(t, sched, id.String()); n != 5 {
		t.Fatalf("expected 5 triggers, got %d", n)
	}

	// Deshabilitar via patch vacía el set sincrónicamente.
	if _, err := store.Update(ctx, id, map[string]any{"enabled": false}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n := countTriggers(t, sched, id.String()); n != 0 {
		t.Fatalf("disabled reminder must have 0 triggers, got %d", n)
	}

	// Borrar cancela lo que quede.
	if _, err := store.Update(ctx, id, map[string]any{"enabled": true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok, err := store.Remove(ctx, id); !ok || err != nil {
		t.Fatalf("Remove: ok=%v err=%v", ok, err)
	}
	if n := countTriggers(t, sched, id.String()); n != 0 {
		t.Fatalf("removed reminder must have 0 triggers, got %d", n)
	}
}

func TestIDSwapRekeysTriggers(t *testing.T) {
	ctx := context.Background()
	gw := gwmemory.New()
	store, sched := newWiredStore(t, gw)

	gw.SetOnline(false)
	localID, err := store.CreateReminder(ctx, reminders.CreateInput{
		PetID:      identity.Remote("pet-1"),
		Type:       "feeding",
		Title:      "Cena",
		Hour:       20,
		DaysOfWeek: []int{0, 6},
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if n := countTriggers(t, sched, localID.String()); n != 2 {
		t.Fatalf("expected 2 triggers under local id, got %d", n)
	}

	gw.SetOnline(true)
	if _, err := store.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	r := store.List()[0]
	if !r.ID.IsRemote() {
		t.Fatalf("id not swapped: %v", r.ID)
	}
	// Cero triggers bajo el token local viejo, el set completo bajo el nuevo.
	if n := countTriggers(t, sched, localID.String()); n != 0 {
		t.Fatalf("stale triggers under old local id: %d", n)
	}
	if n := countTriggers(t, sched, r.ID.String()); n != 2 {
		t.Fatalf("expected 2 triggers under remote id, got %d", n)
	}
}

func TestReplayRejectedCancelsTriggers(t *testing.T) {
	ctx := context.Background()
	gw := gwmemory.New()
	store, sched := newWiredStore(t, gw)

	gw.SetOnline(false)
	id, err := store.CreateReminder(ctx, reminders.CreateInput{
		PetID:      identity.Remote("pet-1"),
		Type:       "walk",
		Title:      "Paseo",
		Hour:       9,
		DaysOfWeek: []int{1, 2, 3},
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if n := countTriggers(t, sched, id.String()); n != 3 {
		t.Fatalf("expected 3 triggers before replay, got %d", n)
	}

	// El backend rechaza el replay de forma definitiva: el registro se
	// descarta y sus triggers con él.
	gw.SetOnline(true)
	gw.Validate = func(_ gateway.Kind, _ map[string]any) error {
		return errors.New("pet does not exist")
	}
	st, err := store.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if st.Dropped != 1 {
		t.Fatalf("expected 1 dropped, got %+v", st)
	}
	if n := len(store.List()); n != 0 {
		t.Fatalf("rejected reminder must be gone, got %d records", n)
	}
	if n := countTriggers(t, sched, id.String()); n != 0 {
		t.Fatalf("rejected reminder must have 0 triggers, got %d", n)
	}
}

func TestDeleteDuringReplayCancelsTriggers(t *testing.T) {
	ctx := context.Background()
	gw := gwmemory.New()
	store, sched := newWiredStore(t, gw)

	gw.SetOnline(false)
	id, err := store.CreateReminder(ctx, reminders.CreateInput{
		PetID:      identity.Remote("pet-1"),
		Type:       "feeding",
		Title:      "Cena",
		Hour:       20,
		DaysOfWeek: []int{0, 6},
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	// El delete llega mientras el create está en vuelo contra el backend.
	gw.SetOnline(true)
	gw.Validate = func(_ gateway.Kind, _ map[string]any) error {
		if ok, rerr := store.Remove(ctx, id); !ok || rerr != nil {
			t.Fatalf("Remove mid-replay: ok=%v err=%v", ok, rerr)
		}
		return nil
	}
	st, err := store.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if st.Removed != 1 || st.Created != 0 {
		t.Fatalf("expected the tombstone drained and no create committed, got %+v", st)
	}
	if n := len(store.List()); n != 0 {
		t.Fatalf("deleted reminder must be gone, got %d records", n)
	}
	all, err := sched.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("deleted reminder must have 0 triggers under any id, got %d", len(all))
	}
	if gw.Len(gateway.KindReminders) != 0 {
		t.Fatalf("backend copy must be removed after the tombstone drains")
	}
}
