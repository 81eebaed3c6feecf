package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Endpoints served by the portal.
const (
	UsuariosEndpoint = "/api/usuarios/buscar"
	CasesEndpoint    = "/api/depuraciones/buscar-usuario"
)

// RequestIDHeader carries a per-lookup correlation id.
const RequestIDHeader = "X-Request-ID"

// Client looks records up over HTTP.
type Client struct {
	endpoint    string
	baseURL     string
	typeParam   string
	numberParam string
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL resolves relative endpoints against base (e.g. "http://localhost:8080").
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// WithParams sets the query parameter names for the identifier type and number.
func WithParams(typeParam, numberParam string) ClientOption {
	return func(c *Client) {
		c.typeParam = typeParam
		c.numberParam = numberParam
	}
}

// WithHTTPClient sets the HTTP client. Timeouts are whatever that client enforces.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a logger for request tracing.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for endpoint using the tipoId/numeroId parameters.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		typeParam:   "tipoId",
		numberParam: "numeroId",
		httpClient:  http.DefaultClient,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCasesClient creates a client for the new-case form endpoint, which takes
// tipo/numero parameters.
func NewCasesClient(opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithParams("tipo", "numero")}, opts...)
	return NewClient(CasesEndpoint, opts...)
}

// URL returns the request URL for req. Parameters keep type-then-number order.
func (c *Client) URL(req Request) (string, error) {
	target := c.endpoint
	if c.baseURL != "" {
		base, err := url.Parse(c.baseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base url: %w", err)
		}
		ref, err := url.Parse(c.endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid endpoint: %w", err)
		}
		target = base.ResolveReference(ref).String()
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep +
		c.typeParam + "=" + url.QueryEscape(req.Type) + "&" +
		c.numberParam + "=" + url.QueryEscape(req.Number), nil
}

// Lookup issues the GET and classifies the response.
func (c *Client) Lookup(ctx context.Context, req Request) (Entity, error) {
	target, err := c.URL(req)
	if err != nil {
		return nil, newError(0, err.Error(), err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, newError(0, err.Error(), err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)

	c.logger.Debug("lookup request",
		zap.String("url", target),
		zap.String("request_id", requestID))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("lookup transport failed", zap.String("request_id", requestID), zap.Error(err))
		return nil, newError(0, err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(resp.StatusCode, fmt.Sprintf("failed to read response: %v", err), err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("lookup failed",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return nil, newError(resp.StatusCode, errorMessage(body), nil)
	}

	entity, err := decodeEntity(body)
	if err != nil {
		return nil, newError(resp.StatusCode, fmt.Sprintf("invalid response: %v", err), err)
	}
	return entity, nil
}

// errorMessage extracts {"error": "..."} from a failure body.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func decodeEntity(body []byte) (Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var entity Entity
	if err := dec.Decode(&entity); err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return entity, nil
}
