package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Jarrodhale08/petpal-app/internal/app"
	"github.com/Jarrodhale08/petpal-app/internal/domain/appointments"
	"github.com/Jarrodhale08/petpal-app/internal/domain/pets"
	"github.com/Jarrodhale08/petpal-app/internal/domain/reminders"
	"github.com/Jarrodhale08/petpal-app/internal/middleware"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

// New arma el router HTTP local: CRUD de los tres stores, el endpoint de
// sync manual, los toggles de settings y un listado de triggers para debug.
func New(a *app.App, ownerUserID string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OwnerContext(ownerUserID))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		pets.RegisterRoutes(api, a.Pets)
		appointments.RegisterRoutes(api, a.Appointments, a.Pets.Resolve)
		reminders.RegisterRoutes(api, a.Reminders, a.Pets.Resolve)

		api.Post("/sync", syncHandler(a))
		api.Get("/sync/status", syncStatusHandler(a))

		api.Get("/settings", getSettingsHandler(a))
		api.Put("/settings", putSettingsHandler(a))

		api.Get("/triggers", listTriggersHandler(a))

		api.Post("/push/subscriptions", saveSubscriptionHandler(a))
		api.Delete("/push/subscriptions", removeSubscriptionHandler(a))
	})

	return r
}

type syncResponse struct {
	RemoteCalls int                     `json:"remote_calls"`
	Stats       map[string]syncKindStat `json:"stats"`
}

type syncKindStat struct {
	Created  int `json:"created"`
	Patched  int `json:"patched"`
	Removed  int `json:"removed"`
	Deferred int `json:"deferred"`
	Failed   int `json:"failed"`
	Dropped  int `json:"dropped"`
}

func syncHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := a.Sync(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out := syncResponse{
			RemoteCalls: report.RemoteCalls(),
			Stats:       map[string]syncKindStat{},
		}
		for kind, st := range report.Stats {
			out.Stats[string(kind)] = syncKindStat{
				Created:  st.Created,
				Patched:  st.Patched,
				Removed:  st.Removed,
				Deferred: st.Deferred,
				Failed:   st.Failed,
				Dropped:  st.Dropped,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type storeStatus struct {
	Pending      int        `json:"pending"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

func syncStatusHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]storeStatus{
			"pets": {
				Pending:      a.Pets.PendingCount(),
				LastSyncedAt: a.Pets.LastSyncedAt(),
			},
			"appointments": {
				Pending:      a.Appointments.PendingCount(),
				LastSyncedAt: a.Appointments.LastSyncedAt(),
			},
			"reminders": {
				Pending:      a.Reminders.PendingCount(),
				LastSyncedAt: a.Reminders.LastSyncedAt(),
			},
		})
	}
}

func getSettingsHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, a.Settings.Get())
	}
}

func putSettingsHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st snapshot.Settings
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := a.Settings.Set(r.Context(), st); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, a.Settings.Get())
	}
}

type triggerResponse struct {
	ReminderID string `json:"reminder_id"`
	Weekday    int    `json:"weekday"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
	Title      string `json:"title"`
}

func listTriggersHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		triggers, err := a.Scheduler.ListAll(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]triggerResponse, 0, len(triggers))
		for _, t := range triggers {
			out = append(out, triggerResponse{
				ReminderID: t.Key.ReminderID,
				Weekday:    t.Key.Weekday,
				Hour:       t.Hour,
				Minute:     t.Minute,
				Title:      t.Title,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// saveSubscriptionHandler registra la suscripción web push del cliente;
// sin ella el delivery loop no tiene a quién empujar.
func saveSubscriptionHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Subscriptions == nil {
			http.Error(w, "push not supported", http.StatusNotImplemented)
			return
		}
		var sub notify.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			http.Error(w, "endpoint, p256dh and auth are required", http.StatusBadRequest)
			return
		}
		if err := a.Subscriptions.SaveSubscription(r.Context(), sub); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"endpoint": sub.Endpoint})
	}
}

func removeSubscriptionHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Subscriptions == nil {
			http.Error(w, "push not supported", http.StatusNotImplemented)
			return
		}
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Endpoint == "" {
			http.Error(w, "endpoint is required", http.StatusBadRequest)
			return
		}
		found, err := a.Subscriptions.RemoveSubscription(r.Context(), body.Endpoint)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "unknown subscription", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
