package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gwmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/memory"
	notifymemory "github.com/Jarrodhale08/petpal-app/internal/adapters/notify/memory"
	"github.com/Jarrodhale08/petpal-app/internal/app"
	"github.com/Jarrodhale08/petpal-app/internal/router"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.App, *gwmemory.Gateway) {
	t.Helper()

	a, err := app.New(app.Config{OwnerUserID: "owner-1"})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("app.Init: %v", err)
	}

	gw, ok := a.Gateway.(*gwmemory.Gateway)
	if !ok {
		t.Fatalf("expected memory gateway without backend config")
	}

	ts := httptest.NewServer(router.New(a, "owner-1"))
	t.Cleanup(ts.Close)
	return ts, a, gw
}

func doReq(t *testing.T, baseURL, method, path string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func decode(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func TestHTTPEndToEndOfflineLifecycle(t *testing.T) {
	ts, _, gw := newTestServer(t)

	// 1) Crear mascota offline: responde igual, marcada pending.
	gw.SetOnline(false)
	st, body := doReq(t, ts.URL, "POST", "/api/v1/pets", map[string]any{
		"name":    "Milo",
		"species": "dog",
		"breed":   "mixed",
	})
	if st != http.StatusCreated {
		t.Fatalf("create pet: %d body=%s", st, body)
	}
	var pet struct {
		ID      string `json:"id"`
		Pending bool   `json:"pending"`
	}
	decode(t, body, &pet)
	if !pet.Pending || pet.ID == "" {
		t.Fatalf("offline create must return a pending local id: %+v", pet)
	}

	// 2) Read-your-writes por el mismo id.
	st, body = doReq(t, ts.URL, "GET", "/api/v1/pets/"+pet.ID, nil)
	if st != http.StatusOK {
		t.Fatalf("get pet: %d body=%s", st, body)
	}

	// 3) Cita bajo la mascota pending.
	st, body = doReq(t, ts.URL, "POST", "/api/v1/pets/"+pet.ID+"/appointments", map[string]any{
		"type":      "vet_visit",
		"title":     "Control",
		"starts_at": "2026-09-15T10:00:00Z",
	})
	if st != http.StatusCreated {
		t.Fatalf("create appointment: %d body=%s", st, body)
	}

	// 4) Status refleja el trabajo pendiente.
	st, body = doReq(t, ts.URL, "GET", "/api/v1/sync/status", nil)
	if st != http.StatusOK {
		t.Fatalf("sync status: %d", st)
	}
	var status map[string]struct {
		Pending int `json:"pending"`
	}
	decode(t, body, &status)
	if status["pets"].Pending != 1 || status["appointments"].Pending != 1 {
		t.Fatalf("unexpected pending counts: %+v", status)
	}

	// 5) Sync con red: todo converge y los ids quedan canónicos.
	gw.SetOnline(true)
	st, body = doReq(t, ts.URL, "POST", "/api/v1/sync", nil)
	if st != http.StatusOK {
		t.Fatalf("sync: %d body=%s", st, body)
	}

	st, body = doReq(t, ts.URL, "GET", "/api/v1/sync/status", nil)
	decode(t, body, &status)
	if status["pets"].Pending != 0 || status["appointments"].Pending != 0 {
		t.Fatalf("expected convergence, got %+v", status)
	}

	// 6) El id local viejo sigue resolviendo al registro swappeado.
	st, body = doReq(t, ts.URL, "GET", "/api/v1/pets/"+pet.ID, nil)
	if st != http.StatusOK {
		t.Fatalf("get pet by old local id: %d body=%s", st, body)
	}
	var swapped struct {
		ID      string `json:"id"`
		Pending bool   `json:"pending"`
	}
	decode(t, body, &swapped)
	if swapped.Pending || swapped.ID == pet.ID {
		t.Fatalf("expected swapped remote id, got %+v", swapped)
	}
}

func TestHTTPRemindersAndTriggers(t *testing.T) {
	ts, _, _ := newTestServer(t)

	st, body := doReq(t, ts.URL, "POST", "/api/v1/pets", map[string]any{
		"name": "Nina", "species": "cat",
	})
	if st != http.StatusCreated {
		t.Fatalf("create pet: %d body=%s", st, body)
	}
	var pet struct {
		ID string `json:"id"`
	}
	decode(t, body, &pet)

	st, body = doReq(t, ts.URL, "POST", "/api/v1/pets/"+pet.ID+"/reminders", map[string]any{
		"type":         "medication",
		"title":        "Pastilla",
		"hour":         8,
		"minute":       0,
		"days_of_week": []int{1, 2, 3, 4, 5},
		"enabled":      true,
	})
	if st != http.StatusCreated {
		t.Fatalf("create reminder: %d body=%s", st, body)
	}
	var rem struct {
		ID        string `json:"id"`
		DaysLabel string `json:"days_label"`
		TimeLabel string `json:"time_label"`
	}
	decode(t, body, &rem)
	if rem.DaysLabel != "Weekdays" || rem.TimeLabel != "8:00 AM" {
		t.Fatalf("unexpected labels: %+v", rem)
	}

	st, body = doReq(t, ts.URL, "GET", "/api/v1/triggers", nil)
	if st != http.StatusOK {
		t.Fatalf("triggers: %d", st)
	}
	var triggers []struct {
		ReminderID string `json:"reminder_id"`
		Weekday    int    `json:"weekday"`
	}
	decode(t, body, &triggers)
	if len(triggers) != 5 {
		t.Fatalf("expected 5 triggers, got %d: %+v", len(triggers), triggers)
	}

	// Apagar el toggle global vacía la tabla de triggers.
	st, _ = doReq(t, ts.URL, "PUT", "/api/v1/settings", map[string]any{
		"push_enabled":      true,
		"reminders_enabled": false,
	})
	if st != http.StatusOK {
		t.Fatalf("put settings: %d", st)
	}
	_, body = doReq(t, ts.URL, "GET", "/api/v1/triggers", nil)
	decode(t, body, &triggers)
	if len(triggers) != 0 {
		t.Fatalf("expected 0 triggers with gate closed, got %d", len(triggers))
	}

	// Y volver a prenderlo los repone.
	doReq(t, ts.URL, "PUT", "/api/v1/settings", map[string]any{
		"push_enabled":      true,
		"reminders_enabled": true,
	})
	_, body = doReq(t, ts.URL, "GET", "/api/v1/triggers", nil)
	decode(t, body, &triggers)
	if len(triggers) != 5 {
		t.Fatalf("expected 5 triggers after reopening gate, got %d", len(triggers))
	}

	// Borrar la mascota cascadea al reminder y a sus triggers.
	st, _ = doReq(t, ts.URL, "DELETE", "/api/v1/pets/"+pet.ID, nil)
	if st != http.StatusNoContent {
		t.Fatalf("delete pet: %d", st)
	}
	_, body = doReq(t, ts.URL, "GET", "/api/v1/triggers", nil)
	decode(t, body, &triggers)
	if len(triggers) != 0 {
		t.Fatalf("expected 0 triggers after cascade delete, got %d", len(triggers))
	}
	st, _ = doReq(t, ts.URL, "GET", "/api/v1/reminders/"+rem.ID, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for cascaded reminder, got %d", st)
	}
}

func TestHTTPValidationErrors(t *testing.T) {
	ts, _, _ := newTestServer(t)

	st, _ := doReq(t, ts.URL, "POST", "/api/v1/pets", map[string]any{"species": "dog"})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "GET", "/api/v1/pets/unknown-id", nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown pet, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "POST", "/api/v1/pets/unknown-id/reminders", map[string]any{
		"type": "walk", "title": "x", "days_of_week": []int{1},
	})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 creating reminder under unknown pet, got %d", st)
	}
}

func TestHTTPPushSubscriptions(t *testing.T) {
	ts, a, _ := newTestServer(t)

	sched, ok := a.Subscriptions.(*notifymemory.Scheduler)
	if !ok {
		t.Fatalf("expected memory scheduler without data dir")
	}

	// Sin las tres keys no hay a quién empujar: 400.
	st, _ := doReq(t, ts.URL, "POST", "/api/v1/push/subscriptions", map[string]string{
		"endpoint": "https://push.example/abc",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("incomplete subscription: status %d", st)
	}

	sub := map[string]string{
		"endpoint": "https://push.example/abc",
		"p256dh":   "BPubKey",
		"auth":     "authSecret",
	}
	st, _ = doReq(t, ts.URL, "POST", "/api/v1/push/subscriptions", sub)
	if st != http.StatusCreated {
		t.Fatalf("register subscription: status %d", st)
	}
	subs := sched.Subscriptions()
	if len(subs) != 1 || subs[0].Endpoint != "https://push.example/abc" {
		t.Fatalf("subscription not stored: %+v", subs)
	}

	// Re-registrar el mismo endpoint reemplaza, no duplica.
	st, _ = doReq(t, ts.URL, "POST", "/api/v1/push/subscriptions", sub)
	if st != http.StatusCreated {
		t.Fatalf("re-register subscription: status %d", st)
	}
	if n := len(sched.Subscriptions()); n != 1 {
		t.Fatalf("expected 1 subscription after re-register, got %d", n)
	}

	st, _ = doReq(t, ts.URL, "DELETE", "/api/v1/push/subscriptions", map[string]string{
		"endpoint": "https://push.example/abc",
	})
	if st != http.StatusNoContent {
		t.Fatalf("unregister subscription: status %d", st)
	}
	if n := len(sched.Subscriptions()); n != 0 {
		t.Fatalf("expected 0 subscriptions after delete, got %d", n)
	}

	st, _ = doReq(t, ts.URL, "DELETE", "/api/v1/push/subscriptions", map[string]string{
		"endpoint": "https://push.example/abc",
	})
	if st != http.StatusNotFound {
		t.Fatalf("unknown subscription: status %d", st)
	}
}
