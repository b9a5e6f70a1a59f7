package snapshot

import (
	"context"
	"encoding/json"
	"time"
)

// State es el blob persistido por cada entity store.
type State struct {
	Records        []json.RawMessage `json:"records"`
	LastSyncedAt   *time.Time        `json:"last_synced_at"`
	PendingChanges bool              `json:"pending_changes"`
}

// Store persiste un State por kind. Load retorna found=false si nunca
// se guardó nada para ese kind (primer arranque).
type Store interface {
	Load(ctx context.Context, kind string) (st State, found bool, err error)
	Save(ctx context.Context, kind string, st State) error
}

// Settings son los toggles que gatean el schedule engine.
type Settings struct {
	PushEnabled      bool `json:"push_enabled"`
	RemindersEnabled bool `json:"reminders_enabled"`
}

// SettingsStore persiste los toggles como registro plano aparte.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (s Settings, found bool, err error)
	SaveSettings(ctx context.Context, s Settings) error
}
