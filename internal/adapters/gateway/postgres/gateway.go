// Package postgres implementa el gateway contra un backend self-hosted:
// Postgres directo, una tabla por kind con el registro en una columna
// jsonb y el scoping multi-tenant por columnas.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Tablas permitidas; el kind nunca se interpola sin pasar por acá.
var tables = map[gateway.Kind]string{
	gateway.KindPets:         "pets",
	gateway.KindAppointments: "appointments",
	gateway.KindReminders:    "reminders",
}

type Gateway struct {
	db       *sql.DB
	tenantID string
	userID   string
}

func New(db *sql.DB, tenantID, userID string) *Gateway {
	return &Gateway{db: db, tenantID: tenantID, userID: userID}
}

func (g *Gateway) table(kind gateway.Kind) (string, error) {
	t, ok := tables[kind]
	if !ok {
		return "", gateway.Invalid(fmt.Sprintf("unknown kind %q", kind), nil)
	}
	return t, nil
}

func (g *Gateway) FetchAll(ctx context.Context, kind gateway.Kind, filters map[string]string) ([]json.RawMessage, error) {
	table, err := g.table(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, data, created_at, updated_at
		FROM %s
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`, table)

	rows, err := g.db.QueryContext(ctx, query, g.tenantID, g.userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var (
			id        string
			data      []byte
			createdAt time.Time
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
			return nil, classify(err)
		}
		rec, err := compose(id, data, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		if !matches(rec, filters) {
			continue
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (g *Gateway) Create(ctx context.Context, kind gateway.Kind, record map[string]any) (json.RawMessage, error) {
	table, err := g.table(kind)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, gateway.Invalid("unencodable record", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, user_id, data)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, table)

	var (
		id        string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := g.db.QueryRowContext(ctx, query, g.tenantID, g.userID, data).
		Scan(&id, &createdAt, &updatedAt); err != nil {
		return nil, classify(err)
	}

	rec, err := compose(id, data, createdAt, updatedAt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func (g *Gateway) Update(ctx context.Context, kind gateway.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	table, err := g.table(kind)
	if err != nil {
		return nil, err
	}

	pb, err := json.Marshal(patch)
	if err != nil {
		return nil, gateway.Invalid("unencodable patch", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET data = data || $4::jsonb, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
		RETURNING data, created_at, updated_at
	`, table)

	var (
		data      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err = g.db.QueryRowContext(ctx, query, id, g.tenantID, g.userID, pb).
		Scan(&data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.ErrUnknownID
	}
	if err != nil {
		return nil, classify(err)
	}

	rec, err := compose(id, data, createdAt, updatedAt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

func (g *Gateway) Remove(ctx context.Context, kind gateway.Kind, id string) error {
	table, err := g.table(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND tenant_id = $2 AND user_id = $3
	`, table)

	res, err := g.db.ExecContext(ctx, query, id, g.tenantID, g.userID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gateway.ErrUnknownID
	}
	return nil
}

// compose arma el registro canónico wire: data jsonb + columnas.
func compose(id string, data []byte, createdAt, updatedAt time.Time) (map[string]any, error) {
	rec := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode jsonb: %w", err)
		}
	}
	rec["id"] = id
	rec["created_at"] = createdAt
	rec["updated_at"] = updatedAt
	return rec, nil
}

func matches(rec map[string]any, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := rec[k]
		if !ok {
			return false
		}
		if s, ok := got.(string); !ok || s != want {
			return false
		}
	}
	return true
}

// classify: violaciones de constraint (clase 23) son rechazos definitivos;
// el resto (conn caída, timeout) se trata como offline.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return gateway.Invalid(pgErr.Message, err)
		}
	}
	return gateway.Transient(err)
}
