package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPOrderService asks the external order service to create an order for a
// paid auction win.
type HTTPOrderService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPOrderService(baseURL string) *HTTPOrderService {
	return &HTTPOrderService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createOrderRequest struct {
	AuctionWinID string `json:"auction_win_id"`
}

type createOrderResponse struct {
	OrderID uuid.UUID `json:"order_id"`
}

func (s *HTTPOrderService) CreateOrder(ctx context.Context, winID uuid.UUID) (uuid.UUID, error) {
	body, err := json.Marshal(createOrderRequest{AuctionWinID: winID.String()})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uuid.Nil, fmt.Errorf("create order: order service returned %d", resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, fmt.Errorf("create order: decode response: %w", err)
	}
	return out.OrderID, nil
}
