package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
)

// RateRequest is the shipping-rate lookup payload. Field names are the rate
// service's contract.
type RateRequest struct {
	PickupPincode   string  `json:"pickupPincode"`
	DeliveryPincode string  `json:"deliveryPincode"`
	Weight          float64 `json:"weight"`
	CashOnDelivery  bool    `json:"cashOnDelivery"`
}

type rateResponse struct {
	Couriers []struct {
		CourierID     string  `json:"courier_id"`
		CourierName   string  `json:"courier_name"`
		Cost          float64 `json:"cost"`
		EstimatedDays int     `json:"estimated_days"`
	} `json:"couriers"`
}

// ShippingClient calls the external rate-lookup service.
type ShippingClient struct {
	baseURL string
	http    *http.Client
}

func NewShippingClient(baseURL string) *ShippingClient {
	return &ShippingClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Rates returns the courier options serving a delivery pincode. An empty
// slice is a valid outcome: the pincode is unserviceable and order placement
// must stay blocked, it is not defaulted to a zero-cost shipment.
func (c *ShippingClient) Rates(ctx context.Context, req RateRequest) ([]checkout.ShippingQuote, error) {
	if len(req.DeliveryPincode) != 6 {
		return nil, fmt.Errorf("delivery pincode must be 6 digits, got %q", req.DeliveryPincode)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal rate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rate lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate lookup returned status %d", resp.StatusCode)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}

	quotes := make([]checkout.ShippingQuote, 0, len(parsed.Couriers))
	for _, c := range parsed.Couriers {
		quotes = append(quotes, checkout.ShippingQuote{
			CourierID:     c.CourierID,
			CourierName:   c.CourierName,
			Cost:          c.Cost,
			EstimatedDays: c.EstimatedDays,
		})
	}
	return quotes, nil
}
