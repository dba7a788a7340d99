package payments

import (
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
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errBaseURLRequired = errors.New("payments base url is required")
	errAPIKeyRequired  = errors.New("payments api key is required")
	errInvalidEnv      = fmt.Errorf("payments environment must be %q or %q", testEnv, liveEnv)
	errLoggerRequired  = errors.New("payments logger is required")
	ErrInvoiceNotFound = errors.New("invoice not found")
)

// Client wraps the payment provider's invoice API plus env-specific metadata.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	environment string
	timeout     time.Duration
	logger      *logger.Logger
}

// NewClient initializes the payments wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logg.Info(ctx, fmt.Sprintf("payments client initialized (%s)", env))

	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		environment: env,
		timeout:     timeout,
		logger:      logg,
	}, nil
}

// Environment reports the normalized payments environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// InvoiceStatus fetches the provider's status string for an invoice. The
// value is the provider's own vocabulary (e.g. PAID, PAYMENT_PENDING) and is
// translated by the caller.
func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/invoices/%s", c.baseURL, url.PathEscape(invoiceID))
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build invoice request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice status call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read invoice response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrInvoiceNotFound, "invoice not found")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", pkgerrors.Wrap(pkgerrors.CodeBackendAuth, fmt.Errorf("provider returned %d", resp.StatusCode), "payment provider rejected credentials")
	case resp.StatusCode >= http.StatusBadRequest:
		c.log(ctx, invoiceID, resp.StatusCode, raw)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("provider returned %d", resp.StatusCode), "invoice status call failed")
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode invoice response")
	}
	return payload.Status, nil
}

func (c *Client) log(ctx context.Context, invoiceID string, status int, raw []byte) {
	if c.logger == nil {
		return
	}
	logCtx := c.logger.WithFields(ctx, map[string]any{
		"invoice_id": invoiceID,
		"status":     status,
		"body":       strings.TrimSpace(string(raw)),
	})
	c.logger.Warn(logCtx, "payments.invoice_status.failed")
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidEnv
	}
}
