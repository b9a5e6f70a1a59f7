// Package reconcile drena los writes pendientes de los entity stores contra
// el gateway remoto, en orden de dependencia: padres (pets) antes que hijos
// (appointments, reminders).
package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Jarrodhale08/petpal-app/internal/offline"
	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

// Syncable es lo que el engine necesita de un store para drenarlo.
type Syncable interface {
	Kind() gateway.Kind
	PendingCount() int
	Drain(ctx context.Context) (offline.DrainStats, error)
}

// Report agrega las stats de una pasada completa.
type Report struct {
	Stats map[gateway.Kind]offline.DrainStats
}

func (r Report) RemoteCalls() int {
	n := 0
	for _, st := range r.Stats {
		n += st.RemoteCalls
	}
	return n
}

// Engine corre pasadas de reconciliación. El orden de procesamiento sale
// del grafo de dependencias, no del orden de creación: primero se drenan
// los stores padre (que reescriben los refs de sus hijos al swappear ids)
// y recién después los hijos, esos sí en paralelo entre sí.
type Engine struct {
	log logger.Logger

	parents  []Syncable
	children []Syncable

	mu sync.Mutex // una pasada a la vez
}

type Options struct {
	Log logger.Logger

	// Parents se drenan secuencialmente, en el orden dado.
	Parents []Syncable
	// Children se drenan después de todos los parents, en paralelo.
	Children []Syncable
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		log:      log.With(map[string]any{"component": "reconcile"}),
		parents:  opts.Parents,
		children: opts.Children,
	}
}

// Run ejecuta una pasada. Es idempotente: sin trabajo nuevo, cero llamadas
// al gateway. Puede interrumpirse por ctx entre ítems sin corromper nada;
// lo no procesado queda pending para la próxima pasada.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := Report{Stats: make(map[gateway.Kind]offline.DrainStats)}
	var repMu sync.Mutex

	record := func(kind gateway.Kind, st offline.DrainStats) {
		repMu.Lock()
		rep.Stats[kind] = st
		repMu.Unlock()

		if st.RemoteCalls > 0 {
			e.log.Info("store drained", map[string]any{
				"kind": string(kind), "created": st.Created, "patched": st.Patched,
				"removed": st.Removed, "deferred": st.Deferred,
				"failed": st.Failed, "dropped": st.Dropped,
			})
		}
	}

	for _, p := range e.parents {
		st, err := p.Drain(ctx)
		record(p.Kind(), st)
		if err != nil {
			return rep, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range e.children {
		c := c
		g.Go(func() error {
			st, err := c.Drain(gctx)
			record(c.Kind(), st)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	return rep, nil
}

// PendingTotal suma lo pendiente en todos los stores registrados.
func (e *Engine) PendingTotal() int {
	n := 0
	for _, s := range e.parents {
		n += s.PendingCount()
	}
	for _, s := range e.children {
		n += s.PendingCount()
	}
	return n
}
