package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keyhaven/keyhaven-backend/pkg/config"
	pkgerrors "github.com/keyhaven/keyhaven-backend/pkg/errors"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/metrics"
)

var (
	errBaseURLRequired     = errors.New("record store base url is required")
	errCredentialsRequired = errors.New("record store admin credentials are required")
	errLoggerRequired      = errors.New("record store logger is required")
)

// Client talks to the managed record store's REST API with centralized
// auth, timeouts, logging, and error mapping. All mutating calls are plain
// HTTP; the store offers no conditional-write primitive.
type Client struct {
	http       *http.Client
	baseURL    string
	collection string
	timeout    time.Duration
	session    *Session
	logger     *logger.Logger
	metrics    *metrics.ReconcilerMetrics
}

// NewClient initializes the record store wrapper and validates configuration.
func NewClient(ctx context.Context, cfg config.RecordStoreConfig, logg *logger.Logger, m *metrics.ReconcilerMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" || cfg.AdminPassword == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	c := &Client{
		http:       httpClient,
		baseURL:    baseURL,
		collection: cfg.OrdersCollection,
		timeout:    timeout,
		logger:     logg,
		metrics:    m,
	}
	c.session = NewSession(httpClient, baseURL, cfg.AdminEmail, cfg.AdminPassword, timeout)

	logg.Info(ctx, "record store client initialized")
	return c, nil
}

// APIError is the decoded error payload of a failed record store call.
type APIError struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Endpoint string `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record store %s returned %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *APIError) UpstreamStatus() int      { return e.Status }
func (e *APIError) UpstreamEndpoint() string { return e.Endpoint }
func (e *APIError) UpstreamMessage() string  { return e.Message }

type listResponse struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	Items      []json.RawMessage `json:"items"`
}

// ListFirst runs a filtered query against the orders collection and decodes
// the first matching record into out. The boolean reports whether a match
// existed; no match is not an error.
func (c *Client) ListFirst(ctx context.Context, filter Filter, out any) (bool, error) {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("perPage", "1")
	query.Set("filter", filter.Encode())

	endpoint := fmt.Sprintf("/api/collections/%s/records?%s", url.PathEscape(c.collection), query.Encode())
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, "list")
	if err != nil {
		return false, err
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode list response")
	}
	if len(list.Items) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(list.Items[0], out); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode record")
	}
	return true, nil
}

// Create inserts a record into the orders collection and decodes the stored
// result (including the assigned id) into out.
func (c *Client) Create(ctx context.Context, record any, out any) error {
	endpoint := fmt.Sprintf("/api/collections/%s/records", url.PathEscape(c.collection))
	body, err := c.do(ctx, http.MethodPost, endpoint, record, "create")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode created record")
	}
	return nil
}

// Update applies a partial update to the record with the given id. Only the
// supplied fields are touched.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any, out any) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "record id required for update")
	}
	endpoint := fmt.Sprintf("/api/collections/%s/records/%s", url.PathEscape(c.collection), url.PathEscape(id))
	body, err := c.do(ctx, http.MethodPatch, endpoint, fields, "update")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode updated record")
	}
	return nil
}

// Ping verifies the store is reachable and the admin credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.session.Token(ctx)
	return err
}

// do issues one authenticated request, re-authenticating once when the store
// rejects the bearer token.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any, operation string) ([]byte, error) {
	body, err := c.request(ctx, method, endpoint, payload, operation, false)
	if err == nil {
		return body, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		c.session.Invalidate()
		return c.request(ctx, method, endpoint, payload, operation, true)
	}
	return nil, err
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload any, operation string, retried bool) ([]byte, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Authorization", token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveBackendCall(operation, time.Since(start))
	if err != nil {
		c.metrics.IncBackendFailure(operation)
		c.log(ctx, operation, map[string]any{"error": err.Error(), "retried": retried})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record store call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncBackendFailure(operation)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read record store response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.metrics.IncBackendFailure(operation)
		apiErr := decodeAPIError(resp.StatusCode, endpoint, raw)
		c.log(ctx, operation, map[string]any{
			"status":  resp.StatusCode,
			"message": apiErr.Message,
			"retried": retried,
		})
		if resp.StatusCode == http.StatusUnauthorized && retried {
			return nil, pkgerrors.Wrap(pkgerrors.CodeBackendAuth, apiErr, "record store rejected credentials")
		}
		return nil, pkgerrors.Wrap(codeForStatus(resp.StatusCode, retried), apiErr, "record store call failed")
	}

	return raw, nil
}

func codeForStatus(status int, retried bool) pkgerrors.Code {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if retried {
			return pkgerrors.CodeBackendAuth
		}
	}
	return pkgerrors.CodeDependency
}

func decodeAPIError(status int, endpoint string, raw []byte) *APIError {
	apiErr := &APIError{Status: status, Endpoint: endpoint}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func (c *Client) log(ctx context.Context, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	fields["operation"] = operation
	logCtx := c.logger.WithFields(ctx, fields)
	c.logger.Warn(logCtx, "recordstore.call")
}
