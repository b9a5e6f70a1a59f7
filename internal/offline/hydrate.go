package offline

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

// Hydrate trae el estado remoto y lo mergea con el snapshot local:
//   - registros locales pending ganan (todavía no se replicaron);
//   - registros Synced se refrescan con la copia remota;
//   - registros Synced ausentes en el backend se descartan (el backend es
//     autoritativo para lo ya sincronizado);
//   - registros remotos nuevos se insertan como Synced.
//
// Offline no es error: la hidratación simplemente se salta.
func (s *Store[T]) Hydrate(ctx context.Context) error {
	raws, err := s.cfg.Gateway.FetchAll(ctx, s.cfg.Kind, nil)
	if err != nil {
		if gateway.IsTransient(err) {
			s.log.Debug("hydrate skipped, gateway unreachable", map[string]any{"err": err.Error()})
			return nil
		}
		return fmt.Errorf("hydrate %s: %w", s.cfg.Kind, err)
	}

	s.mu.Lock()
	seen := make(map[identity.ID]bool, len(raws))
	for _, raw := range raws {
		rec, derr := s.cfg.FromWire(raw)
		if derr != nil {
			s.log.Warn("skip undecodable remote record", map[string]any{"err": derr.Error()})
			continue
		}
		id := rec.RecordID()
		seen[id] = true

		r, ok := s.byID[id]
		if !ok {
			r = &row[T]{rec: rec, state: identity.StateSynced}
			s.rows = append(s.rows, r)
			s.byID[id] = r
			continue
		}
		if r.state == identity.StateSynced && !r.deleted {
			// Refresh in place: los handles repartidos por List/GetByID
			// apuntan al mismo objeto y tienen que ver la copia nueva.
			refresh(r.rec, rec)
		}
	}

	// Synced + ausente remotamente => borrado desde otro device.
	var gone []*row[T]
	for _, r := range s.rows {
		if r.state == identity.StateSynced && !r.deleted && r.rec.RecordID().IsRemote() && !seen[r.rec.RecordID()] {
			gone = append(gone, r)
		}
	}
	recs := make([]T, 0, len(gone))
	for _, r := range gone {
		s.drop(r)
		recs = append(recs, r.rec)
	}
	s.mu.Unlock()

	for _, rec := range recs {
		s.retire(ctx, rec)
	}

	s.persist(ctx)
	return nil
}

// refresh copia los campos de src sobre dst sin reemplazar el puntero.
// Record se implementa sobre punteros a struct (ver el contrato del
// interface), así que el set por reflection siempre aplica.
func refresh[T Record](dst, src T) {
	dv := reflect.ValueOf(dst)
	sv := reflect.ValueOf(src)
	if dv.Kind() != reflect.Pointer || sv.Kind() != reflect.Pointer || dv.IsNil() || sv.IsNil() {
		return
	}
	dv.Elem().Set(sv.Elem())
}
