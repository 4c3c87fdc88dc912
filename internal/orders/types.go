package orders

import (
	"time"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
)

// Order statuses. PENDING/AWAITING_PAYMENT are set at creation, before any
// gateway interaction. PAYMENT_FAILED is not terminal: the customer may retry.
const (
	StatusPending         = "PENDING"
	StatusAwaitingPayment = "AWAITING_PAYMENT"
	StatusPaid            = "PAID"
	StatusPaymentFailed   = "PAYMENT_FAILED"
	StatusProcessing      = "PROCESSING"
	StatusShipped         = "SHIPPED"
	StatusDelivered       = "DELIVERED"
	StatusCancelled       = "CANCELLED"
)

// Payment methods accepted by the dispatcher.
const (
	MethodCOD            = "cod"
	MethodHostedCheckout = "hosted_checkout"
	MethodUPIDirect      = "upi_direct"
)

// PaymentReference is the structured record of a verified gateway payment.
// Stored whole on the order row; never flattened into a text blob.
type PaymentReference struct {
	PaymentID     string `dynamodbav:"payment_id" json:"payment_id"`
	RemoteOrderID string `dynamodbav:"remote_order_id" json:"remote_order_id"`
	Signature     string `dynamodbav:"signature" json:"signature"`
}

// Order represents the item stored in the orders table. Mutated only by the
// reconciliation engine; cancellation is a status transition, never a delete.
type Order struct {
	OrderID          string                `dynamodbav:"order_id"` // PK
	Customer         checkout.CustomerInfo `dynamodbav:"customer"`
	Subtotal         float64               `dynamodbav:"subtotal"`
	DiscountAmount   float64               `dynamodbav:"discount_amount"`
	ShippingCost     float64               `dynamodbav:"shipping_cost"`
	TotalAmount      float64               `dynamodbav:"total_amount"`
	CouponCode       string                `dynamodbav:"coupon_code,omitempty"`
	CourierID        string                `dynamodbav:"courier_id,omitempty"`
	PaymentMethod    string                `dynamodbav:"payment_method"`
	Status           string                `dynamodbav:"status"`
	PaymentReference *PaymentReference     `dynamodbav:"payment_reference,omitempty"`
	NotifiedAt       *time.Time            `dynamodbav:"notified_at,omitempty"`
	CreatedAt        time.Time             `dynamodbav:"created_at"`
	UpdatedAt        time.Time             `dynamodbav:"updated_at"`
}

// OrderItem is one row per cart line, keyed by order id + line number. The
// deterministic key means a replayed write overwrites the same row instead of
// duplicating it.
type OrderItem struct {
	OrderID     string  `dynamodbav:"order_id"` // PK
	LineNo      int     `dynamodbav:"line_no"`  // SK
	ProductID   string  `dynamodbav:"product_id"`
	ProductName string  `dynamodbav:"product_name"`
	Quantity    int     `dynamodbav:"quantity"`
	UnitPrice   float64 `dynamodbav:"unit_price"`
}

// Payment attempt states.
const (
	AttemptInitiated = "INITIATED"
	AttemptReturned  = "RETURNED"
	AttemptExpired   = "EXPIRED"
)

// PaymentAttempt is the persisted in-flight payment record, keyed by order
// id. It replaces ambient "payment in progress" flags: a UPI redirect that
// never returns leaves an inspectable row that ages out via the TTL.
type PaymentAttempt struct {
	OrderID       string    `dynamodbav:"order_id"` // PK
	Method        string    `dynamodbav:"method"`
	RemoteOrderID string    `dynamodbav:"remote_order_id,omitempty"`
	UPILink       string    `dynamodbav:"upi_link,omitempty"`
	State         string    `dynamodbav:"state"` // INITIATED | RETURNED | EXPIRED
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	ExpiresAt     int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}

// IsTerminal reports whether the status ends the payment phase for good.
func IsTerminal(status string) bool {
	switch status {
	case StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
