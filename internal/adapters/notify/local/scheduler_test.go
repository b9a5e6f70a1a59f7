package local_test

import (
	"context"
	"testing"

	"github.com/Jarrodhale08/petpal-app/internal/adapters/notify/local"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
)

func trigger(reminderID string, weekday int) notify.Trigger {
	return notify.Trigger{
		Key:    notify.Key{ReminderID: reminderID, Weekday: weekday},
		Hour:   8,
		Minute: 30,
		Title:  "Pastilla",
		Payload: notify.Payload{
			ReminderID: reminderID,
			PetID:      "pet-1",
			Type:       "medication",
		},
	}
}

func TestScheduleCancelListRoundTrip(t *testing.T) {
	ctx := context.Background()
	sched, err := local.Open(local.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sched.Close()

	for _, d := range []int{1, 3, 5} {
		if _, err := sched.Schedule(ctx, trigger("rem-1", d)); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if _, err := sched.Schedule(ctx, trigger("rem-2", 0)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	// Re-registrar la misma key reemplaza, no duplica.
	if _, err := sched.Schedule(ctx, trigger("rem-1", 3)); err != nil {
		t.Fatalf("Schedule replace: %v", err)
	}

	all, err := sched.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 triggers, got %d", len(all))
	}

	n, err := sched.CancelByReminder(ctx, "rem-1")
	if err != nil {
		t.Fatalf("CancelByReminder: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 cancelled, got %d", n)
	}
	// Cancelar lo inexistente es un no-op.
	if n, err := sched.CancelByReminder(ctx, "rem-1"); err != nil || n != 0 {
		t.Fatalf("second cancel: n=%d err=%v", n, err)
	}

	all, _ = sched.ListAll(ctx)
	if len(all) != 1 || all[0].Key.ReminderID != "rem-2" {
		t.Fatalf("expected only rem-2 left, got %+v", all)
	}
}

func TestTriggersSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sched, err := local.Open(local.Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := sched.Schedule(ctx, trigger("rem-9", 2)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	sched.Close()

	sched, err = local.Open(local.Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer sched.Close()

	all, err := sched.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || all[0].Key != (notify.Key{ReminderID: "rem-9", Weekday: 2}) {
		t.Fatalf("trigger did not survive reopen: %+v", all)
	}
}

func TestSubscriptionsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sched, err := local.Open(local.Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sub := notify.Subscription{
		Endpoint: "https://push.example/abc",
		P256dh:   "BPubKey",
		Auth:     "authSecret",
	}
	if err := sched.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("SaveSubscription: %v", err)
	}
	if err := sched.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sched, err = local.Open(local.Options{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer sched.Close()

	found, err := sched.RemoveSubscription(ctx, sub.Endpoint)
	if err != nil {
		t.Fatalf("RemoveSubscription: %v", err)
	}
	if !found {
		t.Fatalf("subscription must survive a reopen")
	}
	if found, _ = sched.RemoveSubscription(ctx, sub.Endpoint); found {
		t.Fatalf("second remove must be a no-op")
	}
}
