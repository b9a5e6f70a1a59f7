package identity

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidID = errors.New("invalid id")

// ID identifica un registro: Local (token generado en el device, aún sin
// confirmar por el backend) o Remote (id canónico del backend). La distinción
// es estructural, nunca un prefijo de string.
type ID struct {
	local  string
	remote string
}

// NewLocal genera un id local fresco. Nunca colisiona con un Remote:
// viven en tags distintos.
func NewLocal() ID {
	return ID{local: uuid.NewString()}
}

// Local envuelve un token local ya existente (p.ej. al cargar un snapshot).
func Local(token string) ID {
	return ID{local: strings.TrimSpace(token)}
}

// Remote envuelve un id canónico emitido por el backend.
func Remote(canonical string) ID {
	return ID{remote: strings.TrimSpace(canonical)}
}

func (id ID) IsZero() bool   { return id.local == "" && id.remote == "" }
func (id ID) IsLocal() bool  { return id.local != "" }
func (id ID) IsRemote() bool { return id.remote != "" }

// Token devuelve el token local ("" si es Remote).
func (id ID) Token() string { return id.local }

// Canonical devuelve el id canónico ("" si es Local).
func (id ID) Canonical() string { return id.remote }

// String es solo para logs/UI; nunca se parsea de vuelta.
func (id ID) String() string {
	if id.IsRemote() {
		return id.remote
	}
	return id.local
}

type idJSON struct {
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(idJSON{Local: id.local, Remote: id.remote})
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var v idJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.Local != "" && v.Remote != "" {
		return ErrInvalidID
	}
	id.local = v.Local
	id.remote = v.Remote
	return nil
}
