// Package payment wraps the external payment gateway. The storefront only
// consumes a reference string and a success flag from it; verification is an
// opaque remote call with bounded retries.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"merchstore/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnknownReference means the gateway has no transaction for the
	// reference. Definitive outcome, never retried.
	ErrUnknownReference = errors.New("payment reference not found")

	// ErrUnauthorized means the configured secret key was rejected.
	ErrUnauthorized = errors.New("payment gateway rejected credentials")

	// ErrGatewayUnavailable is returned after retries are exhausted on
	// transient failures; callers may try again.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Verification is the gateway's answer for a reference.
type Verification struct {
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Paid      bool    `json:"paid"`
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status    string  `json:"status"`
		Reference string  `json:"reference"`
		Amount    float64 `json:"amount"` // minor currency units
	} `json:"data"`
}

// Client verifies payment references against the gateway.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	enabled bool
}

// NewClient builds a gateway client. Transient failures (connection errors,
// 429, 5xx) are retried with backoff up to the configured count; definitive
// responses (401/403/404) are never retried.
func NewClient(cfg config.PaymentConfig, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	if cfg.SecretKey != "" {
		httpClient.SetAuthToken(cfg.SecretKey)
	}

	return &Client{
		http:    httpClient,
		logger:  logger,
		enabled: cfg.SecretKey != "",
	}
}

// Enabled reports whether a secret key is configured. When disabled, the
// checkout path treats the popup's reference as opaque.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Verify resolves a payment reference to its transaction state.
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	var body verifyResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("reference", reference).
		Get("/transaction/verify/{reference}")

	if err != nil {
		c.logger.Warn("Payment verification failed after retries",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		// fall through to payload handling
	case http.StatusNotFound:
		return nil, ErrUnknownReference
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		c.logger.Warn("Payment verification returned unexpected status",
			zap.String("reference", reference),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode())
	}

	if !body.Status {
		return nil, fmt.Errorf("%w: gateway reported failure for %s", ErrGatewayUnavailable, reference)
	}

	return &Verification{
		Reference: body.Data.Reference,
		Status:    body.Data.Status,
		Amount:    body.Data.Amount / 100,
		Paid:      body.Data.Status == "success",
	}, nil
}
