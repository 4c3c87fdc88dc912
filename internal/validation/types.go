package validation

// ItemPayload is a single cart line as submitted at checkout.
type ItemPayload struct {
	ProductID    string  `json:"product_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	UnitPrice    float64 `json:"unit_price" validate:"required,gt=0"` // price per unit, rupees
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	VariantLabel string  `json:"variant_label,omitempty"`
}

// CustomerPayload is the customer-information form. Everything is required;
// the pincode must be a 6-digit code.
type CustomerPayload struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=10"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
}

// ShippingPayload is the courier quote the customer selected.
type ShippingPayload struct {
	CourierID     string  `json:"courier_id" validate:"required"`
	CourierName   string  `json:"courier_name" validate:"required"`
	Cost          float64 `json:"cost" validate:"required,gt=0"`
	EstimatedDays int     `json:"estimated_days,omitempty"`
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	Customer      CustomerPayload `json:"customer" validate:"required"`
	Items         []ItemPayload   `json:"items" validate:"required,min=1,dive"`
	Subtotal      float64         `json:"subtotal" validate:"required,gt=0"` // client-claimed, must match items
	CouponCode    string          `json:"coupon_code,omitempty"`
	Shipping      ShippingPayload `json:"shipping" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cod hosted_checkout upi_direct"`
}

// VerifyPaymentRequest carries the hosted-checkout success callback. The
// razorpay_* field names are the gateway's contract.
type VerifyPaymentRequest struct {
	OrderID           string `json:"order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// DismissRequest reports the user closing the hosted checkout modal.
type DismissRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// UPIReturnRequest reports the user returning from a UPI deep link.
type UPIReturnRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
}

// RateLookupRequest is the payload for POST /shipping/rates.
type RateLookupRequest struct {
	DeliveryPincode string  `json:"delivery_pincode" validate:"required,len=6,numeric"`
	Weight          float64 `json:"weight" validate:"required,gt=0"`
	CashOnDelivery  bool    `json:"cash_on_delivery"`
}
