package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const ownerKey ctxKey = "owner"

// OwnerContext:
// - Setea el user dueño del device en el contexto (single-user local API).
// - Header X-Debug-User-ID lo overridea (modo dev, igual que antes de auth).
func OwnerContext(ownerUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(ownerUserID)
			if uid := strings.TrimSpace(r.Header.Get("X-Debug-User-ID")); uid != "" {
				owner = uid
			}
			if owner == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ownerKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOwner(ctx context.Context) (string, bool) {
	v := ctx.Value(ownerKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
