// Package app arma el grafo completo: adapters según config, entity
// stores con sus hooks, schedule engine gateado por settings y el
// reconcile engine con el orden padre/hijo.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/memory"
	"github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/postgres"
	"github.com/Jarrodhale08/petpal-app/internal/adapters/gateway/rest"
	notifylocal "github.com/Jarrodhale08/petpal-app/internal/adapters/notify/local"
	notifymemory "github.com/Jarrodhale08/petpal-app/internal/adapters/notify/memory"
	snapmemory "github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/memory"
	snapsqlite "github.com/Jarrodhale08/petpal-app/internal/adapters/snapshot/sqlite"
	"github.com/Jarrodhale08/petpal-app/internal/domain/appointments"
	"github.com/Jarrodhale08/petpal-app/internal/domain/pets"
	"github.com/Jarrodhale08/petpal-app/internal/domain/reminders"
	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
	"github.com/Jarrodhale08/petpal-app/internal/ports/notify"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
	"github.com/Jarrodhale08/petpal-app/internal/reconcile"
	"github.com/Jarrodhale08/petpal-app/internal/schedule"
	"github.com/Jarrodhale08/petpal-app/internal/settings"
)

type Config struct {
	OwnerUserID string

	// DataDir habilita persistencia local (sqlite + bbolt). Vacío = todo
	// en memoria, útil para tests y para el modo efímero.
	DataDir string

	// Backend remoto: DSN de postgres directo, o la API REST multi-tenant.
	// Con ambos vacíos se usa el gateway en memoria.
	PostgresDSN    string
	GatewayURL     string
	GatewayAPIKey  string
	GatewayToken   string
	TenantID       string
	GatewayTimeout time.Duration

	VAPIDSubject    string
	VAPIDPublicKey  string
	VAPIDPrivateKey string

	Log logger.Logger
	Now func() time.Time
}

type App struct {
	Log logger.Logger

	Pets         *pets.Store
	Appointments *appointments.Store
	Reminders    *reminders.Store

	Settings      *settings.Service
	Schedule      *schedule.Engine
	Reconciler    *reconcile.Engine
	Scheduler     notify.Scheduler
	Subscriptions notify.SubscriptionStore

	Gateway gateway.Gateway

	closers []io.Closer
}

func New(cfg Config) (*App, error) {
	log := cfg.Log
	if log == nil {
		log = logger.NewFromEnv()
	}

	a := &App{Log: log}

	gw, err := a.buildGateway(cfg)
	if err != nil {
		return nil, err
	}
	a.Gateway = gw

	snaps, sstore, err := a.buildSnapshots(cfg)
	if err != nil {
		return nil, err
	}

	sched, err := a.buildScheduler(cfg, log)
	if err != nil {
		return nil, err
	}
	a.Scheduler = sched
	// Los dos adapters guardan suscripciones; el router expone el endpoint
	// de registro contra esta interface.
	a.Subscriptions, _ = sched.(notify.SubscriptionStore)

	a.Settings = settings.NewService(sstore, log)
	a.Schedule = schedule.New(sched, a.Settings.RemindersAllowed, log)

	a.Pets, err = pets.NewStore(pets.Deps{
		Gateway:     gw,
		Snapshots:   snaps,
		Log:         log,
		OwnerUserID: cfg.OwnerUserID,
		Now:         cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("pets store: %w", err)
	}

	a.Appointments, err = appointments.NewStore(appointments.Deps{
		Gateway:   gw,
		Snapshots: snaps,
		Log:       log,
		Now:       cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("appointments store: %w", err)
	}

	a.Reminders, err = reminders.NewStore(reminders.Deps{
		Gateway:   gw,
		Snapshots: snaps,
		Log:       log,
		Now:       cfg.Now,
		OnCommit: func(ctx context.Context, r *reminders.Reminder, prev identity.ID) {
			a.Schedule.Apply(ctx, r, prev)
		},
		OnRemove: func(ctx context.Context, r *reminders.Reminder) {
			a.Schedule.Cancel(ctx, r)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reminders store: %w", err)
	}

	// Cascade: borrar una mascota borra sus citas y reminders.
	a.Pets.AddChild(a.Appointments)
	a.Pets.AddChild(a.Reminders)

	// Los toggles cerrando/abriendo el gate recomputan el set de triggers
	// entero contra los reminders vivos.
	a.Settings.SetOnChange(func(ctx context.Context, _ snapshot.Settings) {
		a.Schedule.Resync(ctx, a.Reminders.List())
	})

	a.Reconciler = reconcile.New(reconcile.Options{
		Log:      log,
		Parents:  []reconcile.Syncable{a.Pets},
		Children: []reconcile.Syncable{a.Appointments, a.Reminders},
	})

	return a, nil
}

func (a *App) buildGateway(cfg Config) (gateway.Gateway, error) {
	switch {
	case cfg.PostgresDSN != "":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres gateway: %w", err)
		}
		a.closers = append(a.closers, db)
		return postgres.New(db, cfg.TenantID, cfg.OwnerUserID), nil
	case cfg.GatewayURL != "":
		c, err := rest.NewClient(rest.Config{
			BaseURL:  cfg.GatewayURL,
			APIKey:   cfg.GatewayAPIKey,
			Token:    cfg.GatewayToken,
			TenantID: cfg.TenantID,
			Timeout:  cfg.GatewayTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("rest gateway: %w", err)
		}
		return c, nil
	default:
		return memory.New(), nil
	}
}

func (a *App) buildSnapshots(cfg Config) (snapshot.Store, snapshot.SettingsStore, error) {
	if cfg.DataDir == "" {
		st := snapmemory.New()
		return st, st, nil
	}
	st, err := snapsqlite.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite snapshots: %w", err)
	}
	a.closers = append(a.closers, st)
	return st, st, nil
}

func (a *App) buildScheduler(cfg Config, log logger.Logger) (notify.Scheduler, error) {
	if cfg.DataDir == "" {
		return notifymemory.New(), nil
	}
	s, err := notifylocal.Open(notifylocal.Options{
		DataDir:         cfg.DataDir,
		Log:             log,
		VAPIDSubject:    cfg.VAPIDSubject,
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("local scheduler: %w", err)
	}
	a.closers = append(a.closers, s)
	return s, nil
}

// InitLocal levanta los snapshots y settings a memoria, sin tocar red.
func (a *App) InitLocal(ctx context.Context) error {
	if err := a.Pets.Init(ctx); err != nil {
		return fmt.Errorf("pets init: %w", err)
	}
	if err := a.Appointments.Init(ctx); err != nil {
		return fmt.Errorf("appointments init: %w", err)
	}
	if err := a.Reminders.Init(ctx); err != nil {
		return fmt.Errorf("reminders init: %w", err)
	}
	if err := a.Settings.Init(ctx); err != nil {
		return fmt.Errorf("settings init: %w", err)
	}
	return nil
}

// Init es el arranque completo: snapshots, settings, una hidratación
// contra el backend (best-effort: offline no es error) y la reposición
// del set de triggers.
func (a *App) Init(ctx context.Context) error {
	if err := a.InitLocal(ctx); err != nil {
		return err
	}

	if err := a.Pets.Hydrate(ctx); err != nil {
		a.Log.Warn("pets hydrate", map[string]any{"err": err.Error()})
	}
	if err := a.Appointments.Hydrate(ctx); err != nil {
		a.Log.Warn("appointments hydrate", map[string]any{"err": err.Error()})
	}
	if err := a.Reminders.Hydrate(ctx); err != nil {
		a.Log.Warn("reminders hydrate", map[string]any{"err": err.Error()})
	}

	a.Schedule.Resync(ctx, a.Reminders.List())
	return nil
}

// Sync corre una pasada de reconciliación completa.
func (a *App) Sync(ctx context.Context) (reconcile.Report, error) {
	return a.Reconciler.Run(ctx)
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
