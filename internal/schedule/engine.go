// Package schedule mantiene el set de triggers del notification scheduler
// igual al set implicado por los reminders habilitados: un trigger por
// (reminder, weekday). Corre sincrónicamente después de cada commit del
// store de reminders.
package schedule

import (
	"context"
	"sync"

	"github.com/Jarrodhale08/petpal-app/internal/domain/reminders"
	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
)

// Engine es el único writer de la tabla de triggers. La estrategia es
// cancel-then-recreate: en cada cambio se cancelan todos los triggers del
// reminder y, si corresponde, se registra el set nuevo completo. Sin diffing
// de sets viejos/nuevos: ningún trigger stale sobrevive una edición.
type Engine struct {
	mu    sync.Mutex
	log   logger.Logger
	sched notify.Scheduler

	// gate: toggle global de settings. Con el gate cerrado el engine
	// registra cero triggers; los cambios de estado quedan en el store y
	// Resync repone el set vivo cuando el gate se abre.
	gate func() bool
}

func New(sched notify.Scheduler, gate func() bool, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if gate == nil {
		gate = func() bool { return true }
	}
	return &Engine{
		log:   log.With(map[string]any{"component": "schedule"}),
		sched: sched,
		gate:  gate,
	}
}

// Apply reconcilia los triggers de un reminder tras un commit. prev es el
// id anterior del registro: tras un id-swap de la reconciliación difiere
// del actual y sus triggers (keyed por el token local viejo) también se
// cancelan. Las fallas por trigger (p.ej. permiso denegado) degradan a
// "menos triggers que los pedidos"; nunca fallan el save del reminder.
func (e *Engine) Apply(ctx context.Context, r *reminders.Reminder, prev identity.ID) (requested, registered int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !prev.IsZero() && prev != r.ID {
		_, _ = e.sched.CancelByReminder(ctx, prev.String())
	}
	// Cancelar lo inexistente es no-op, no error.
	_, _ = e.sched.CancelByReminder(ctx, r.ID.String())

	if !r.Enabled || !e.gate() {
		return 0, 0
	}
	return e.register(ctx, r)
}

// Cancel borra todos los triggers de un reminder (delete / cascade).
func (e *Engine) Cancel(ctx context.Context, r *reminders.Reminder) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n, err := e.sched.CancelByReminder(ctx, r.ID.String()); err != nil {
		e.log.Warn("cancel triggers", map[string]any{"reminder": r.ID.String(), "err": err.Error()})
	} else if n > 0 {
		e.log.Debug("triggers cancelled", map[string]any{"reminder": r.ID.String(), "count": n})
	}
}

// Resync repone el invariante completo contra la lista viva de reminders:
// se usa al abrir/cerrar el gate y al arrancar. Cancela también triggers
// huérfanos de reminders que ya no existen.
func (e *Engine) Resync(ctx context.Context, live []*reminders.Reminder) (requested, registered int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	known := make(map[string]bool, len(live))
	for _, r := range live {
		known[r.ID.String()] = true
	}

	if existing, err := e.sched.ListAll(ctx); err == nil {
		seen := map[string]bool{}
		for _, t := range existing {
			if !known[t.Key.ReminderID] && !seen[t.Key.ReminderID] {
				seen[t.Key.ReminderID] = true
				_, _ = e.sched.CancelByReminder(ctx, t.Key.ReminderID)
			}
		}
	}

	open := e.gate()
	for _, r := range live {
		_, _ = e.sched.CancelByReminder(ctx, r.ID.String())
		if !open || !r.Enabled {
			continue
		}
		req, reg := e.register(ctx, r)
		requested += req
		registered += reg
	}
	return requested, registered
}

// register asume mu tomado y gate abierto.
func (e *Engine) register(ctx context.Context, r *reminders.Reminder) (requested, registered int) {
	for _, day := range r.DaysOfWeek {
		requested++
		t := notify.Trigger{
			Key:    notify.Key{ReminderID: r.ID.String(), Weekday: day},
			Hour:   r.Hour,
			Minute: r.Minute,
			Title:  r.Title,
			Body:   r.Body,
			Payload: notify.Payload{
				ReminderID: r.ID.String(),
				PetID:      r.PetID.String(),
				Type:       string(r.Type),
			},
		}
		if _, err := e.sched.Schedule(ctx, t); err != nil {
			// Degradación parcial: se registra lo que se pueda.
			e.log.Warn("trigger rejected by scheduler", map[string]any{
				"reminder": r.ID.String(), "weekday": day, "err": err.Error(),
			})
			continue
		}
		registered++
	}
	if registered < requested {
		e.log.Info("partial trigger registration", map[string]any{
			"reminder": r.ID.String(), "requested": requested, "registered": registered,
		})
	}
	return requested, registered
}
