package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/sqlite"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

func TestLoadBeforeFirstSave(t *testing.T) {
	store, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, found, err := store.Load(context.Background(), "pets")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatalf("first boot must report not found")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	in := snapshot.State{
		Records:        []json.RawMessage{json.RawMessage(`{"record":{"id":{"local":"a"}},"state":"pending_local"}`)},
		LastSyncedAt:   &at,
		PendingChanges: true,
	}
	if err := store.Save(ctx, "pets", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Upsert sobre la misma key, no duplicado.
	if err := store.Save(ctx, "pets", in); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	store.Close()

	// Reabrir el archivo: el estado sobrevive.
	store, err = sqlite.Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	out, found, err := store.Load(ctx, "pets")
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if len(out.Records) != 1 || !out.PendingChanges {
		t.Fatalf("state mangled: %+v", out)
	}
	if out.LastSyncedAt == nil || !out.LastSyncedAt.Equal(at) {
		t.Fatalf("last synced mangled: %v", out.LastSyncedAt)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, found, err := store.LoadSettings(ctx); err != nil || found {
		t.Fatalf("expected empty settings, found=%v err=%v", found, err)
	}

	in := snapshot.Settings{PushEnabled: true, RemindersEnabled: false}
	if err := store.SaveSettings(ctx, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	out, found, err := store.LoadSettings(ctx)
	if err != nil || !found {
		t.Fatalf("LoadSettings: found=%v err=%v", found, err)
	}
	if out != in {
		t.Fatalf("settings mangled: %+v", out)
	}
}
