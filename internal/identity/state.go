package identity

// SyncState es el estado de sincronización de un registro frente al backend.
//
// Transiciones:
//
//	create offline            => PendingLocal
//	drain start               => Reconciling
//	drain ok                  => Synced
//	drain fail (transitorio)  => PendingLocal
//	edit con remote caído     => DirtyRemote
//	edit durante Reconciling  => DirtyRemote (se replica en la siguiente pasada)
type SyncState int

const (
	StateSynced SyncState = iota
	StatePendingLocal
	StateReconciling
	StateDirtyRemote
)

func (s SyncState) String() string {
	switch s {
	case StatePendingLocal:
		return "pending_local"
	case StateReconciling:
		return "reconciling"
	case StateDirtyRemote:
		return "dirty_remote"
	default:
		return "synced"
	}
}

// Pending indica si el registro todavía debe trabajo al backend.
func (s SyncState) Pending() bool {
	return s == StatePendingLocal || s == StateReconciling || s == StateDirtyRemote
}
