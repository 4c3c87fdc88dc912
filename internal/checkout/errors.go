package checkout

import (
	"errors"
	"fmt"
)

// Validation failures that block checkout before any order row exists.
var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrMissingShipping = errors.New("no shipping option selected")
	ErrInvalidCoupon   = errors.New("coupon is not valid")
	ErrUnknownMethod   = errors.New("unknown payment method")
)

// GatewayOrderError means the remote payment service rejected the order
// creation or was unreachable. The local order moves to PAYMENT_FAILED.
type GatewayOrderError struct {
	Err error
}

func (e *GatewayOrderError) Error() string {
	return fmt.Sprintf("payment gateway rejected order: %v", e.Err)
}

func (e *GatewayOrderError) Unwrap() error { return e.Err }

// SignatureVerificationError means a gateway callback could not be verified.
// Verification fails closed: any error here is treated as payment failure.
type SignatureVerificationError struct {
	OrderID string
	Reason  string
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("payment signature verification failed for order %s: %s", e.OrderID, e.Reason)
}

// StartupError means a payment path could not even begin (gateway not
// configured, no UPI app available). No order mutation has happened yet, so
// no compensating transition is needed.
type StartupError struct {
	Reason string
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("payment could not start: %s", e.Reason)
}

// PersistentPermissionError is surfaced after the one-shot permission
// recovery also failed. The message is user-facing.
type PersistentPermissionError struct {
	Operation string
	Err       error
}

func (e *PersistentPermissionError) Error() string {
	return fmt.Sprintf("%s was rejected by the store's access policy even after remediation; please contact support", e.Operation)
}

func (e *PersistentPermissionError) Unwrap() error { return e.Err }
