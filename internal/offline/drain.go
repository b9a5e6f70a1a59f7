package offline

import (
	"context"
	"errors"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

// DrainStats resume una pasada de reconciliación sobre un store.
type DrainStats struct {
	Created  int // creates locales confirmados (id swapped)
	Patched  int // patches dirty aplicados
	Removed  int // tombstones confirmados
	Deferred int // hijos con padre aún Local; quedan pending
	Failed   int // fallas transitorias; quedan pending
	Dropped  int // rechazos de validación; descartados

	RemoteCalls int
}

// Drain procesa la cola pendiente del store: creates locales en orden de
// creación, después patches dirty, después tombstones. Cada ítem es
// atómico bajo el mutex del store; una falla por ítem no aborta la pasada.
// lastSyncedAt se actualiza una sola vez al terminar la cola, haya o no
// fallas. Correr dos veces sin trabajo nuevo no hace llamadas al gateway.
func (s *Store[T]) Drain(ctx context.Context) (DrainStats, error) {
	var st DrainStats

	for _, id := range s.pendingCreates() {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.drainCreate(ctx, id, &st)
	}

	for _, it := range s.pendingPatches() {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.drainPatch(ctx, it.id, it.canonical, it.patch, &st)
	}

	for _, id := range s.pendingRemovals() {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.drainRemoval(ctx, id, &st)
	}

	s.finishPass(ctx)
	return st, nil
}

func (s *Store[T]) pendingCreates() []identity.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []identity.ID
	for _, r := range s.rows {
		if r.deleted {
			continue
		}
		if r.state == identity.StatePendingLocal && r.rec.RecordID().IsLocal() {
			out = append(out, r.rec.RecordID())
		}
	}
	return out
}

func (s *Store[T]) drainCreate(ctx context.Context, id identity.ID, st *DrainStats) {
	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok || r.deleted || r.state != identity.StatePendingLocal {
		s.mu.Unlock()
		return
	}
	// Orden de dependencia: si el padre sigue Local acá, su propio create
	// falló; diferir en vez de replicar un ref colgante.
	if s.cfg.ParentRef != nil && s.cfg.ParentRef(r.rec).IsLocal() {
		s.mu.Unlock()
		st.Deferred++
		return
	}
	r.state = identity.StateReconciling
	wire := s.cfg.ToWire(r.rec)
	s.mu.Unlock()

	raw, err := s.cfg.Gateway.Create(ctx, s.cfg.Kind, wire)
	st.RemoteCalls++

	if err != nil {
		s.mu.Lock()
		if gateway.IsValidation(err) {
			// Permanentemente inválido: no puede quedar pending-forever.
			s.log.Warn("replay rejected, dropping record", map[string]any{
				"id": id.String(), "err": err.Error(),
			})
			s.drop(r)
			rec := r.rec
			s.mu.Unlock()
			st.Dropped++
			// El registro nunca existió para el backend, pero sus side
			// effects del create optimista (triggers) sí: se cancelan.
			s.retire(ctx, rec)
		} else {
			r.state = identity.StatePendingLocal
			s.mu.Unlock()
			st.Failed++
		}
		return
	}

	canonical, derr := s.cfg.FromWire(raw)
	if derr != nil {
		s.mu.Lock()
		r.state = identity.StatePendingLocal
		s.mu.Unlock()
		s.log.Error("decode replay response", map[string]any{"err": derr.Error()})
		st.Failed++
		return
	}
	newID := canonical.RecordID()

	s.mu.Lock()
	// Swap in place sobre el registro existente; nunca un objeto nuevo.
	// El id Local queda como alias en el índice (grace window) para
	// callers con handles viejos.
	r.rec.SetRecordID(newID)
	s.byID[newID] = r
	deleted := r.deleted
	switch {
	case deleted:
		// Borrado mientras el create estaba en vuelo: el tombstone (ya
		// con id Remote) se drena en la pasada de removals de abajo.
	case len(r.patch) > 0:
		// Editado mientras el create estaba en vuelo.
		r.state = identity.StateDirtyRemote
	default:
		r.state = identity.StateSynced
	}
	rec := r.rec
	children := s.children
	s.mu.Unlock()

	// Los refs de los hijos se reescriben antes de que esos stores drenen.
	for _, c := range children {
		c.ReparentRefs(ctx, id, newID)
	}

	if deleted {
		// Sin commit: el caller ya vio el delete, y un commit acá
		// registraría side effects de un registro muerto. Se cancela
		// también bajo el id nuevo post-swap.
		s.retire(ctx, rec)
		return
	}

	st.Created++
	s.commit(ctx, rec, id)
}

type pendingPatch struct {
	id        identity.ID
	canonical string
	patch     map[string]any
}

func (s *Store[T]) pendingPatches() []pendingPatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []pendingPatch
	for _, r := range s.rows {
		if r.deleted || r.state != identity.StateDirtyRemote || len(r.patch) == 0 {
			continue
		}
		if !r.rec.RecordID().IsRemote() {
			continue
		}
		out = append(out, pendingPatch{
			id:        r.rec.RecordID(),
			canonical: r.rec.RecordID().Canonical(),
			patch:     r.patch,
		})
	}
	return out
}

func (s *Store[T]) drainPatch(ctx context.Context, id identity.ID, canonical string, patch map[string]any, st *DrainStats) {
	_, err := s.cfg.Gateway.Update(ctx, s.cfg.Kind, canonical, patch)
	st.RemoteCalls++

	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	var (
		gone    T
		dropped bool
	)
	switch {
	case err == nil:
		r.state = identity.StateSynced
		r.patch = nil
		st.Patched++
	case errors.Is(err, gateway.ErrUnknownID):
		// Borrado en el backend mientras estábamos offline: last-write-wins
		// del lado remoto para registros ya sincronizados.
		s.log.Warn("record gone remotely, dropping local copy", map[string]any{"id": id.String()})
		s.drop(r)
		gone, dropped = r.rec, true
		st.Dropped++
	case gateway.IsValidation(err):
		s.log.Warn("dirty patch rejected, discarding patch", map[string]any{
			"id": id.String(), "err": err.Error(),
		})
		r.state = identity.StateSynced
		r.patch = nil
		st.Dropped++
	default:
		st.Failed++
	}
	s.mu.Unlock()

	if dropped {
		s.retire(ctx, gone)
	}
}

func (s *Store[T]) pendingRemovals() []identity.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []identity.ID
	for _, r := range s.rows {
		if r.deleted && r.rec.RecordID().IsRemote() {
			out = append(out, r.rec.RecordID())
		}
	}
	return out
}

func (s *Store[T]) drainRemoval(ctx context.Context, id identity.ID, st *DrainStats) {
	err := s.cfg.Gateway.Remove(ctx, s.cfg.Kind, id.Canonical())
	st.RemoteCalls++

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || !r.deleted {
		return
	}
	switch {
	case err == nil || errors.Is(err, gateway.ErrUnknownID):
		s.drop(r)
		st.Removed++
	case gateway.IsValidation(err):
		s.log.Warn("remote remove rejected, discarding tombstone", map[string]any{
			"id": id.String(), "err": err.Error(),
		})
		s.drop(r)
		st.Dropped++
	default:
		st.Failed++
	}
}

func (s *Store[T]) finishPass(ctx context.Context) {
	now := s.cfg.Now()
	s.mu.Lock()
	s.lastSync = &now
	s.mu.Unlock()
	s.persist(ctx)
}
