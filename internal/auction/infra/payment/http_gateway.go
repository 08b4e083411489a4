package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/shopspring/decimal"
)

// HTTPGateway talks to the external payment authorization service over its
// capture endpoint. A 402 response maps to ErrPaymentDeclined; anything else
// non-2xx is an infrastructure error the caller retries with backoff.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type captureRequest struct {
	PaymentMethodRef string `json:"payment_method_ref"`
	Amount           string `json:"amount"`
}

func (g *HTTPGateway) Capture(ctx context.Context, paymentMethodRef string, amount decimal.Decimal) error {
	body, err := json.Marshal(captureRequest{
		PaymentMethodRef: paymentMethodRef,
		Amount:           amount.StringFixed(2),
	})
	if err != nil {
		return fmt.Errorf("payment capture: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/captures", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payment capture: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment capture: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return domain.ErrPaymentDeclined
	default:
		return fmt.Errorf("payment capture: gateway returned %d", resp.StatusCode)
	}
}
