package settings_test

import (
	"context"
	"errors"
	"testing"

	snapmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/memory"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
	"github.com/Jarrodhale08/petpal-app/internal/settings"
)

func TestDefaultsAllowReminders(t *testing.T) {
	svc := settings.NewService(snapmemory.New(), nil)
	if !svc.RemindersAllowed() {
		t.Fatalf("first boot must allow reminders")
	}
}

func TestGateRequiresBothToggles(t *testing.T) {
	ctx := context.Background()
	svc := settings.NewService(snapmemory.New(), nil)

	cases := []struct {
		st   snapshot.Settings
		want bool
	}{
		{snapshot.Settings{PushEnabled: true, RemindersEnabled: true}, true},
		{snapshot.Settings{PushEnabled: false, RemindersEnabled: true}, false},
		{snapshot.Settings{PushEnabled: true, RemindersEnabled: false}, false},
		{snapshot.Settings{}, false},
	}
	for _, tc := range cases {
		if err := svc.Set(ctx, tc.st); err != nil {
			t.Fatalf("Set(%+v): %v", tc.st, err)
		}
		if got := svc.RemindersAllowed(); got != tc.want {
			t.Fatalf("RemindersAllowed with %+v = %v, want %v", tc.st, got, tc.want)
		}
	}
}

func TestSetPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := snapmemory.New()
	svc := settings.NewService(store, nil)

	fired := 0
	svc.SetOnChange(func(ctx context.Context, st snapshot.Settings) { fired++ })

	next := snapshot.Settings{PushEnabled: true, RemindersEnabled: false}
	if err := svc.Set(ctx, next); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected onChange once, got %d", fired)
	}

	// Un set idéntico es no-op: ni persistencia ni callback.
	if err := svc.Set(ctx, next); err != nil {
		t.Fatalf("Set noop: %v", err)
	}
	if fired != 1 {
		t.Fatalf("noop set must not fire onChange, got %d", fired)
	}

	// Otro servicio sobre el mismo store carga lo persistido.
	again := settings.NewService(store, nil)
	if err := again.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := again.Get(); got != next {
		t.Fatalf("expected persisted settings %+v, got %+v", next, got)
	}
}

func TestSetPersistFailureKeepsCurrentState(t *testing.T) {
	ctx := context.Background()
	store := snapmemory.New()
	svc := settings.NewService(store, nil)

	fired := 0
	svc.SetOnChange(func(ctx context.Context, st snapshot.Settings) { fired++ })

	store.FailSaves = errors.New("disk full")
	err := svc.Set(ctx, snapshot.Settings{PushEnabled: false, RemindersEnabled: false})
	if err == nil {
		t.Fatalf("expected persist error")
	}
	// El estado vivo no cambia hasta que el save confirma: el gate y lo
	// que reporta Get siguen siendo coherentes.
	if !svc.RemindersAllowed() {
		t.Fatalf("gate must not flip on a failed save")
	}
	if got := svc.Get(); !got.PushEnabled || !got.RemindersEnabled {
		t.Fatalf("Get must report the pre-failure settings, got %+v", got)
	}
	if fired != 0 {
		t.Fatalf("onChange must not fire on a failed save, fired %d", fired)
	}

	// El retry con el disco sano aplica normalmente.
	store.FailSaves = nil
	if err := svc.Set(ctx, snapshot.Settings{PushEnabled: false, RemindersEnabled: false}); err != nil {
		t.Fatalf("Set retry: %v", err)
	}
	if svc.RemindersAllowed() || fired != 1 {
		t.Fatalf("retry must flip the gate and notify, allowed=%v fired=%d", svc.RemindersAllowed(), fired)
	}
}
