// Package offline implementa el entity store offline-first: writes locales
// optimistas que siempre completan sincrónicamente, con replay posterior
// contra el gateway remoto (ver package reconcile).
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/identity"
	"github.com/Jarrodhale08/petpal-app/internal/platform/logger"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

const defaultRemoteTimeout = 3 * time.Second

var (
	ErrInvalidConfig = errors.New("invalid store config")
)

// Record es lo mínimo que el store necesita de una entidad. Se implementa
// sobre punteros: el swap de id durante la reconciliación es in place, y
// cualquier caller que tenga el handle lo observa.
type Record interface {
	RecordID() identity.ID
	SetRecordID(id identity.ID)
}

// ChildSet es el lado hijo del grafo de dependencias (Pet -> Appointments,
// Pet -> Reminders). Una sola rutina de cascade lo recorre; nada de lógica
// de borrado repartida por los stores.
type ChildSet interface {
	RemoveByParent(ctx context.Context, parent identity.ID) int
	ReparentRefs(ctx context.Context, oldID, newID identity.ID) int
}

type Config[T Record] struct {
	Kind      gateway.Kind
	Gateway   gateway.Gateway
	Snapshots snapshot.Store
	Log       logger.Logger

	Now           func() time.Time
	RemoteTimeout time.Duration

	// New aloca un registro vacío para decodificar snapshots.
	New func() T
	// ToWire produce el shape que espera el backend (refs canónicos, sin id).
	ToWire func(T) map[string]any
	// FromWire decodifica un registro canónico del backend (id Remote seteado).
	FromWire func(json.RawMessage) (T, error)
	// ApplyPatch aplica un patch parcial (keys en nombres wire) al registro.
	ApplyPatch func(T, map[string]any) error

	// ParentRef/SetParentRef son opcionales; solo para kinds hijos.
	ParentRef    func(T) identity.ID
	SetParentRef func(T, identity.ID)

	// OnCommit corre sincrónicamente después de cada commit local
	// (create/update y el id-swap de la reconciliación). prev es el id
	// anterior del registro: igual al actual salvo tras un swap.
	OnCommit func(ctx context.Context, rec T, prev identity.ID)
	// OnRemove corre después de un borrado (directo o por cascade).
	OnRemove func(ctx context.Context, rec T)
}

type row[T Record] struct {
	rec     T
	state   identity.SyncState
	patch   map[string]any
	deleted bool // tombstone: falta el remove remoto
}

// Store es un entity store por kind. Mutaciones son secciones críticas
// cortas sobre la colección in-memory; el side effect remoto usa un timeout
// corto y una falla transitoria degrada a pending, nunca bloquea al caller
// más allá de ese timeout.
type Store[T Record] struct {
	cfg Config[T]
	log logger.Logger

	mu       sync.Mutex
	rows     []*row[T]               // orden de creación
	byID     map[identity.ID]*row[T] // incluye aliases post-swap (grace window)
	lastSync *time.Time
	children []ChildSet
}

func NewStore[T Record](cfg Config[T]) (*Store[T], error) {
	if cfg.Kind == "" || cfg.Gateway == nil || cfg.Snapshots == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.New == nil || cfg.ToWire == nil || cfg.FromWire == nil || cfg.ApplyPatch == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = defaultRemoteTimeout
	}
	return &Store[T]{
		cfg:  cfg,
		log:  cfg.Log.With(map[string]any{"store": string(cfg.Kind)}),
		byID: make(map[identity.ID]*row[T]),
	}, nil
}

func (s *Store[T]) Kind() gateway.Kind { return s.cfg.Kind }

// AddChild registra un link padre->hijo del grafo de dependencias.
func (s *Store[T]) AddChild(c ChildSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, c)
}

// Init carga el snapshot persistido. Un registro que quedó Reconciling
// (pasada interrumpida) vuelve a PendingLocal.
func (s *Store[T]) Init(ctx context.Context) error {
	st, found, err := s.cfg.Snapshots.Load(ctx, string(s.cfg.Kind))
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", s.cfg.Kind, err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = s.rows[:0]
	s.byID = make(map[identity.ID]*row[T])
	for _, raw := range st.Records {
		var rj rowJSON
		if err := json.Unmarshal(raw, &rj); err != nil {
			return fmt.Errorf("decode snapshot row %s: %w", s.cfg.Kind, err)
		}
		rec := s.cfg.New()
		if err := json.Unmarshal(rj.Record, rec); err != nil {
			return fmt.Errorf("decode snapshot record %s: %w", s.cfg.Kind, err)
		}
		state := parseState(rj.State)
		if state == identity.StateReconciling {
			state = identity.StatePendingLocal
		}
		r := &row[T]{rec: rec, state: state, patch: rj.Patch, deleted: rj.Deleted}
		s.rows = append(s.rows, r)
		s.byID[rec.RecordID()] = r
	}
	s.lastSync = st.LastSyncedAt
	return nil
}

// Reset descarta todo el estado in-memory (tests / logout).
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	s.byID = make(map[identity.ID]*row[T])
	s.lastSync = nil
}

// List devuelve los registros visibles en orden de creación. Son los
// punteros compartidos: un id-swap posterior se observa en el handle.
func (s *Store[T]) List() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, len(s.rows))
	for _, r := range s.rows {
		if r.deleted {
			continue
		}
		out = append(out, r.rec)
	}
	return out
}

func (s *Store[T]) GetByID(id identity.ID) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	r, ok := s.byID[id]
	if !ok || r.deleted {
		return zero, false
	}
	return r.rec, true
}

// Resolve mapea un id crudo (path param, payload) al ID vigente del store,
// probando el tag Remote y después el Local. Gracias a los aliases del
// índice, un token local viejo resuelve al registro ya swappeado.
func (s *Store[T]) Resolve(raw string) (identity.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.byID[identity.Remote(raw)]; ok && !r.deleted {
		return r.rec.RecordID(), true
	}
	if r, ok := s.byID[identity.Local(raw)]; ok && !r.deleted {
		return r.rec.RecordID(), true
	}
	return identity.ID{}, false
}

func (s *Store[T]) LastSyncedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// PendingCount cuenta registros que aún deben trabajo al backend
// (creates locales, patches dirty y tombstones).
func (s *Store[T]) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.rows {
		if r.state.Pending() || r.deleted {
			n++
		}
	}
	return n
}

// Create intenta el write remoto con timeout corto. Si el backend acepta,
// guarda el registro canónico (pending=false). Offline o falla transitoria:
// id Local fresco, guardado inmediato, pending=true. Rechazo de validación:
// el registro NO se guarda y el caller recibe el error — nada queda
// pending-forever si es inválido de forma permanente.
func (s *Store[T]) Create(ctx context.Context, rec T) (identity.ID, error) {
	// Un hijo cuyo padre todavía es Local no puede ir al backend aún:
	// queda pending y la reconciliación lo resuelve en orden de dependencia.
	remoteable := s.cfg.ParentRef == nil || !s.cfg.ParentRef(rec).IsLocal()

	var (
		raw json.RawMessage
		err error
	)
	if remoteable {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		raw, err = s.cfg.Gateway.Create(rctx, s.cfg.Kind, s.cfg.ToWire(rec))
		cancel()

		if err != nil && gateway.IsValidation(err) {
			return identity.ID{}, err
		}
	}

	state := identity.StatePendingLocal
	if remoteable && err == nil {
		canonical, derr := s.cfg.FromWire(raw)
		if derr == nil {
			rec = canonical
			state = identity.StateSynced
		} else {
			// Respuesta indecodificable: degradar a pending, no perder el write.
			s.log.Warn("decode create response failed, keeping local", map[string]any{"err": derr.Error()})
		}
	}
	if state == identity.StatePendingLocal {
		rec.SetRecordID(identity.NewLocal())
	}

	s.mu.Lock()
	r := &row[T]{rec: rec, state: state}
	s.rows = append(s.rows, r)
	s.byID[rec.RecordID()] = r
	s.mu.Unlock()

	s.persist(ctx)
	s.commit(ctx, rec, rec.RecordID())
	return rec.RecordID(), nil
}

// Update aplica el patch localmente y, si el id es Remote, intenta el
// update remoto. Falla transitoria: la mutación local queda y el registro
// pasa a DirtyRemote. Id desconocido: (false, nil) sin side effects.
func (s *Store[T]) Update(ctx context.Context, id identity.ID, patch map[string]any) (bool, error) {
	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok || r.deleted {
		s.mu.Unlock()
		return false, nil
	}

	before, merr := json.Marshal(r.rec)
	if merr != nil {
		s.mu.Unlock()
		return false, merr
	}
	if err := s.cfg.ApplyPatch(r.rec, patch); err != nil {
		s.mu.Unlock()
		return false, err
	}

	switch {
	case r.state == identity.StatePendingLocal:
		// Local puro; el create replay ya llevará los campos nuevos.
		s.mu.Unlock()

	case r.state == identity.StateReconciling:
		// El create está en vuelo con la versión anterior: acumular el
		// patch para replay después del swap.
		r.patch = mergePatch(r.patch, patch)
		s.mu.Unlock()

	default:
		canonical := r.rec.RecordID().Canonical()
		s.mu.Unlock()

		rctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		_, err := s.cfg.Gateway.Update(rctx, s.cfg.Kind, canonical, patch)
		cancel()

		s.mu.Lock()
		switch {
		case err == nil:
			r.state = identity.StateSynced
			r.patch = nil
		case gateway.IsValidation(err) || errors.Is(err, gateway.ErrUnknownID):
			// Rechazo definitivo: revertir la mutación local y avisar.
			restored := s.cfg.New()
			if uerr := json.Unmarshal(before, restored); uerr == nil {
				if rerr := s.cfg.ApplyPatch(r.rec, recordAsPatch(restored, s.cfg.ToWire)); rerr != nil {
					s.log.Warn("rollback failed", map[string]any{"err": rerr.Error()})
				}
			}
			s.mu.Unlock()
			return false, err
		default:
			r.patch = mergePatch(r.patch, patch)
			r.state = identity.StateDirtyRemote
		}
		s.mu.Unlock()
	}

	s.persist(ctx)
	s.commit(ctx, r.rec, id)
	return true, nil
}

// Remove borra el registro y cascadea a los hijos declarados. Id Local que
// nunca llegó al backend: se descarta sin más. Id Remote: se intenta el
// remove remoto; falla transitoria deja un tombstone para la reconciliación.
func (s *Store[T]) Remove(ctx context.Context, id identity.ID) (bool, error) {
	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok || r.deleted {
		s.mu.Unlock()
		return false, nil
	}
	rec := r.rec
	children := s.children
	s.mu.Unlock()

	// Cascade primero: los hijos cancelan sus propios side effects
	// (triggers) vía sus hooks.
	for _, c := range children {
		c.RemoveByParent(ctx, id)
	}

	s.mu.Lock()
	switch {
	case r.state == identity.StatePendingLocal:
		s.drop(r)
		s.mu.Unlock()

	case r.state == identity.StateReconciling:
		// El create está en vuelo: marcar; el drain descarta el resultado
		// del swap y encola el remove remoto.
		r.deleted = true
		s.mu.Unlock()

	default:
		r.deleted = true
		canonical := rec.RecordID().Canonical()
		s.mu.Unlock()

		rctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		err := s.cfg.Gateway.Remove(rctx, s.cfg.Kind, canonical)
		cancel()

		s.mu.Lock()
		switch {
		case err == nil || errors.Is(err, gateway.ErrUnknownID):
			s.drop(r)
		case gateway.IsValidation(err):
			// El backend se niega: restaurar visibilidad y propagar.
			r.deleted = false
			s.mu.Unlock()
			return false, err
		default:
			// Tombstone pendiente para la próxima pasada.
		}
		s.mu.Unlock()
	}

	s.persist(ctx)
	if s.cfg.OnRemove != nil {
		s.cfg.OnRemove(ctx, rec)
	}
	return true, nil
}

// RemoveByParent implementa ChildSet: borra todos los registros cuyo ref
// de padre coincide. Cada borrado pasa por Remove para que los side effects
// remotos y los hooks corran igual que en un borrado directo.
func (s *Store[T]) RemoveByParent(ctx context.Context, parent identity.ID) int {
	if s.cfg.ParentRef == nil {
		return 0
	}

	s.mu.Lock()
	var ids []identity.ID
	for _, r := range s.rows {
		if r.deleted {
			continue
		}
		if s.cfg.ParentRef(r.rec) == parent {
			ids = append(ids, r.rec.RecordID())
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if ok, _ := s.Remove(ctx, id); ok {
			n++
		}
	}
	return n
}

// ReparentRefs implementa ChildSet: reescribe los refs de padre tras el
// id-swap del padre, antes de que este store drene sus propios creates.
func (s *Store[T]) ReparentRefs(ctx context.Context, oldID, newID identity.ID) int {
	if s.cfg.ParentRef == nil || s.cfg.SetParentRef == nil {
		return 0
	}

	s.mu.Lock()
	n := 0
	for _, r := range s.rows {
		if s.cfg.ParentRef(r.rec) == oldID {
			s.cfg.SetParentRef(r.rec, newID)
			n++
		}
	}
	s.mu.Unlock()

	if n > 0 {
		s.persist(ctx)
	}
	return n
}

// drop saca la row de la colección; requiere mu tomado.
func (s *Store[T]) drop(r *row[T]) {
	for i, cur := range s.rows {
		if cur == r {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			break
		}
	}
	for id, cur := range s.byID {
		if cur == r {
			delete(s.byID, id)
		}
	}
}

func (s *Store[T]) commit(ctx context.Context, rec T, prev identity.ID) {
	if s.cfg.OnCommit != nil {
		s.cfg.OnCommit(ctx, rec, prev)
	}
}

// retire corre el hook de remove para una row ya dropeada de la colección.
// Todo drop pasa por acá: un registro descartado sin hook dejaría sus side
// effects (triggers) vivos para siempre. Llamar sin mu tomado.
func (s *Store[T]) retire(ctx context.Context, rec T) {
	if s.cfg.OnRemove != nil {
		s.cfg.OnRemove(ctx, rec)
	}
}

// persist guarda el snapshot. Best-effort: una falla de disco no puede
// romper el write que el caller ya observó.
func (s *Store[T]) persist(ctx context.Context) {
	s.mu.Lock()
	st := snapshot.State{
		Records:      make([]json.RawMessage, 0, len(s.rows)),
		LastSyncedAt: s.lastSync,
	}
	for _, r := range s.rows {
		raw, err := json.Marshal(r.rec)
		if err != nil {
			s.log.Error("marshal record for snapshot", map[string]any{"err": err.Error()})
			continue
		}
		rj := rowJSON{Record: raw, State: r.state.String(), Patch: r.patch, Deleted: r.deleted}
		b, err := json.Marshal(rj)
		if err != nil {
			continue
		}
		st.Records = append(st.Records, b)
		if r.state.Pending() || r.deleted {
			st.PendingChanges = true
		}
	}
	s.mu.Unlock()

	if err := s.cfg.Snapshots.Save(ctx, string(s.cfg.Kind), st); err != nil {
		s.log.Error("save snapshot", map[string]any{"err": err.Error()})
	}
}

type rowJSON struct {
	Record  json.RawMessage `json:"record"`
	State   string          `json:"state"`
	Patch   map[string]any  `json:"patch,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
}

func parseState(s string) identity.SyncState {
	switch s {
	case "pending_local":
		return identity.StatePendingLocal
	case "reconciling":
		return identity.StateReconciling
	case "dirty_remote":
		return identity.StateDirtyRemote
	default:
		return identity.StateSynced
	}
}

func mergePatch(base, extra map[string]any) map[string]any {
	if base == nil {
		base = map[string]any{}
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// recordAsPatch convierte un registro completo en patch (para rollbacks).
func recordAsPatch[T Record](rec T, toWire func(T) map[string]any) map[string]any {
	return toWire(rec)
}
