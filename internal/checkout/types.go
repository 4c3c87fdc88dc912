package checkout

import "time"

// CartItem is one line of the cart snapshot.
type CartItem struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	VariantLabel string  `json:"variant_label,omitempty"`
}

// CartSnapshot is the ordered set of line items captured when checkout
// begins. It is immutable for the duration of one checkout attempt.
type CartSnapshot struct {
	Items []CartItem `json:"items"`
}

// Subtotal returns the rupee sum of unit price * quantity across all lines,
// rounded to the minor unit.
func (c CartSnapshot) Subtotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return RoundMinor(sum)
}

// CustomerInfo is collected once per checkout attempt.
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// ShippingQuote is a single courier option from the rate lookup. Exactly one
// quote must be selected before an order can be placed.
type ShippingQuote struct {
	CourierID     string  `json:"courier_id"`
	CourierName   string  `json:"courier_name"`
	Cost          float64 `json:"cost"`
	EstimatedDays int     `json:"estimated_days"`
}

// Coupon as stored in the coupons table. MaxDiscount of zero means the
// discount is unbounded.
type Coupon struct {
	Code            string     `json:"code" dynamodbav:"code"`
	DiscountPercent float64    `json:"discount_percent" dynamodbav:"discount_percent"`
	IsActive        bool       `json:"is_active" dynamodbav:"is_active"`
	MinOrderValue   float64    `json:"min_order_value,omitempty" dynamodbav:"min_order_value,omitempty"`
	MaxDiscount     float64    `json:"max_discount,omitempty" dynamodbav:"max_discount,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty" dynamodbav:"expires_at,omitempty"`
}

// OrderDraft is the computed pricing breakdown for a checkout attempt.
// FinalTotal = Subtotal - DiscountAmount + ShippingCost; every component is
// non-negative and rounded to the minor unit.
type OrderDraft struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	ShippingCost   float64 `json:"shipping_cost"`
	FinalTotal     float64 `json:"final_total"`
	CouponCode     string  `json:"coupon_code,omitempty"`
}

// RoundMinor rounds a rupee amount to the nearest paisa.
func RoundMinor(v float64) float64 {
	return float64(ToMinorUnits(v)) / 100
}

// ToMinorUnits converts a rupee amount to integer paise, rounding to the
// nearest unit. Gateways take integer minor units; truncation here would
// silently lose a paisa.
func ToMinorUnits(v float64) int64 {
	if v >= 0 {
		return int64(v*100 + 0.5)
	}
	return -int64(-v*100 + 0.5)
}
