// Package novedades keeps the case list of the novedades screen in sync with
// the portal API.
package novedades

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/internal/models"
	"github.com/hyperjump/montero/pkg/utils"
)

// API endpoints.
const (
	CasesPath    = "/api/novedades"
	EmpresasPath = "/api/empresas"
	UsuariosPath = "/api/usuarios"
)

// userHeader matches the server's acting-user header.
const userHeader = "X-Portal-User"

// APIError is a non-2xx answer from the portal.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Client calls the novedades API.
type Client struct {
	baseURL    string
	user       string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithUser names the acting user recorded in case history.
func WithUser(user string) ClientOption {
	return func(c *Client) { c.user = user }
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = utils.OrNop(l) }
}

// NewClient creates a client for the portal at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every case.
func (c *Client) List(ctx context.Context) ([]*models.Case, error) {
	var cases []*models.Case
	if err := c.do(ctx, http.MethodGet, CasesPath, nil, &cases); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

// Create stores a new case and returns it as saved.
func (c *Client) Create(ctx context.Context, in *models.CaseInput) (*models.Case, error) {
	var out models.Case
	if err := c.do(ctx, http.MethodPost, CasesPath, in, &out); err != nil {
		return nil, fmt.Errorf("failed to create case: %w", err)
	}
	return &out, nil
}

// Update applies patch to case id. It returns a nil case when the server
// reports there was nothing to change.
func (c *Client) Update(ctx context.Context, id int64, patch *models.CasePatch) (*models.Case, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, casePath(id), patch, &raw); err != nil {
		return nil, fmt.Errorf("failed to update case %d: %w", id, err)
	}
	var out models.Case
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode case %d: %w", id, err)
	}
	if out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

// AddComment appends a history comment to case id.
func (c *Client) AddComment(ctx context.Context, id int64, comment string) (*models.Case, error) {
	return c.Update(ctx, id, &models.CasePatch{NewComment: comment})
}

// Close resolves case id.
func (c *Client) Close(ctx context.Context, id int64) (*models.Case, error) {
	return c.Update(ctx, id, models.ClosePatch())
}

// Delete removes case id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, casePath(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete case %d: %w", id, err)
	}
	return nil
}

// Empresas returns the client companies.
func (c *Client) Empresas(ctx context.Context) ([]*models.Empresa, error) {
	var out []*models.Empresa
	if err := c.do(ctx, http.MethodGet, EmpresasPath, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list empresas: %w", err)
	}
	return out, nil
}

// Usuarios returns the usuarios of empresaNIT, or all of them when it is empty.
func (c *Client) Usuarios(ctx context.Context, empresaNIT string) ([]lookup.Entity, error) {
	path := UsuariosPath
	if empresaNIT != "" {
		path += "?empresa_nit=" + url.QueryEscape(empresaNIT)
	}
	var out []lookup.Entity
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list usuarios: %w", err)
	}
	return out, nil
}

func casePath(id int64) string {
	return CasesPath + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(userHeader, c.user)
	}
	id := uuid.New().String()
	req.Header.Set(lookup.RequestIDHeader, id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("novedades api",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", id))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
