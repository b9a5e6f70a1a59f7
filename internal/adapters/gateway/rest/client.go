// Package rest implementa el gateway contra el backend multi-tenant vía su
// API REST (estilo PostgREST: una colección por kind, filtros por query
// string, writes con return=representation).
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jarrodhale08/petpal-app/internal/platform/httpclient"
	"github.com/Jarrodhale08/petpal-app/internal/ports/gateway"
)

var ErrNotConfigured = errors.New("rest gateway not configured")

// Config del cliente. BaseURL/APIKey/TenantID normalmente vienen de env
// vars en quien lo instancia.
type Config struct {
	BaseURL string
	APIKey  string
	// Token es el bearer del user autenticado; todo el tráfico queda
	// scoped a ese user del lado del backend.
	Token    string
	TenantID string

	Timeout time.Duration
}

type Client struct {
	http     *httpclient.Client
	apiKey   string
	token    string
	tenantID string
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.TenantID) == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:     hc,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		token:    strings.TrimSpace(cfg.Token),
		tenantID: strings.TrimSpace(cfg.TenantID),
	}, nil
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Prefer": "return=representation",
	}
	if c.apiKey != "" {
		h["apikey"] = c.apiKey
	}
	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

func (c *Client) FetchAll(ctx context.Context, kind gateway.Kind, filters map[string]string) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("tenant_id", "eq."+c.tenantID)
	for k, v := range filters {
		q.Set(k, "eq."+v)
	}

	var out []json.RawMessage
	err := c.http.DoJSON(ctx, http.MethodGet, "/rest/v1/"+string(kind)+"?"+q.Encode(), c.headers(), nil, &out)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, kind gateway.Kind, record map[string]any) (json.RawMessage, error) {
	body := make(map[string]any, len(record)+1)
	for k, v := range record {
		body[k] = v
	}
	body["tenant_id"] = c.tenantID

	var out []json.RawMessage
	err := c.http.DoJSON(ctx, http.MethodPost, "/rest/v1/"+string(kind), c.headers(), body, &out)
	if err != nil {
		return nil, classify(err)
	}
	if len(out) == 0 {
		return nil, gateway.Transient(fmt.Errorf("create %s: empty representation", kind))
	}
	return out[0], nil
}

func (c *Client) Update(ctx context.Context, kind gateway.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("tenant_id", "eq."+c.tenantID)

	var out []json.RawMessage
	err := c.http.DoJSON(ctx, http.MethodPatch, "/rest/v1/"+string(kind)+"?"+q.Encode(), c.headers(), patch, &out)
	if err != nil {
		return nil, classify(err)
	}
	// Representation vacía: el filtro no matcheó ninguna row.
	if len(out) == 0 {
		return nil, gateway.ErrUnknownID
	}
	return out[0], nil
}

func (c *Client) Remove(ctx context.Context, kind gateway.Kind, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("tenant_id", "eq."+c.tenantID)

	var out []json.RawMessage
	err := c.http.DoJSON(ctx, http.MethodDelete, "/rest/v1/"+string(kind)+"?"+q.Encode(), c.headers(), nil, &out)
	if err != nil {
		return classify(err)
	}
	if len(out) == 0 {
		return gateway.ErrUnknownID
	}
	return nil
}

// classify mapea errores de transporte/status a la taxonomía del gateway:
// red/timeout/5xx/429 => transitorio; 404 => unknown id; resto de 4xx =>
// rechazo de validación.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var he *httpclient.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusNotFound:
			return gateway.ErrUnknownID
		case he.StatusCode >= 500 || he.StatusCode == http.StatusTooManyRequests:
			return gateway.Transient(err)
		default:
			return gateway.Invalid(he.Body, err)
		}
	}
	if httpclient.IsTransient(err) {
		return gateway.Transient(err)
	}
	return gateway.Transient(err)
}
