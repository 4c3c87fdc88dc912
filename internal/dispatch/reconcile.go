package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
	"github.com/imrishuroy/go-checkout-pipeline/internal/gateway"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
	"github.com/imrishuroy/go-checkout-pipeline/internal/recovery"
)

// ConfirmPayment applies a hosted-checkout success callback: verify the
// signature server-side, then transition AWAITING_PAYMENT -> PAID with the
// structured payment reference.
//
// Duplicate deliveries are safe: the conditional transition fails, the order
// is re-read, and an order already PAID by the same payment is reported as
// success without re-running side effects.
func (d *Dispatcher) ConfirmPayment(ctx context.Context, orderID, paymentID, remoteOrderID, signature string) (*orders.Order, error) {
	order, err := d.store.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if orders.IsTerminal(order.Status) {
		return nil, fmt.Errorf("order %s is %s and no longer accepts payment callbacks", orderID, order.Status)
	}

	if !d.gateway.VerifySignature(paymentID, remoteOrderID, signature) {
		d.failPayment(ctx, orderID)
		return nil, &checkout.SignatureVerificationError{OrderID: orderID, Reason: "signature mismatch"}
	}

	// The signature proves the gateway issued (remoteOrderID, paymentID), not
	// that the pair belongs to this order. Bind the callback to the remote
	// order recorded at dispatch; an authentic signature for some other
	// payment must not settle this one.
	attempt, err := d.store.GetAttempt(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment attempt: %w", err)
	}
	if attempt == nil || attempt.RemoteOrderID == "" {
		log.Printf("[reconcile] order=%s has no recorded remote order, accepting on signature alone", orderID)
	} else if attempt.RemoteOrderID != remoteOrderID {
		d.failPayment(ctx, orderID)
		return nil, &checkout.SignatureVerificationError{OrderID: orderID, Reason: "callback references a different gateway order"}
	}

	ref := orders.PaymentReference{
		PaymentID:     paymentID,
		RemoteOrderID: remoteOrderID,
		Signature:     signature,
	}
	err = recovery.WithPermissionRecovery(ctx, "mark order paid", d.remediator, func(ctx context.Context) error {
		return d.store.MarkPaid(ctx, orderID, ref)
	})
	if err == orders.ErrStatusMismatch {
		// Somebody got here first. Re-read and decide.
		current, getErr := d.store.Get(ctx, orderID)
		if getErr != nil {
			return nil, fmt.Errorf("re-read order after duplicate callback: %w", getErr)
		}
		if current != nil && current.Status == orders.StatusPaid {
			if current.PaymentReference == nil || current.PaymentReference.PaymentID != paymentID {
				log.Printf("[reconcile] order=%s already paid under a different payment id", orderID)
			}
			// Duplicate delivery of a settled payment: success, no second
			// notification.
			return current, nil
		}
		return nil, fmt.Errorf("order %s is not awaiting payment (status=%s)", orderID, statusOf(current))
	}
	if err != nil {
		return nil, err
	}

	if err := d.store.MarkAttemptState(ctx, orderID, orders.AttemptReturned); err != nil {
		log.Printf("[reconcile] mark attempt returned for order=%s: %v", orderID, err)
	}

	order.Status = orders.StatusPaid
	order.PaymentReference = &ref
	d.metrics.PaymentOutcome(ctx, "paid")
	d.notifyAndClear(ctx, order)
	return order, nil
}

// DismissCheckout handles the user closing the hosted checkout modal. It is
// a first-class outcome: the order moves to PAYMENT_FAILED instead of
// lingering in AWAITING_PAYMENT.
func (d *Dispatcher) DismissCheckout(ctx context.Context, orderID string) error {
	err := d.store.UpdateStatus(ctx, orderID, orders.StatusAwaitingPayment, orders.StatusPaymentFailed)
	if err == orders.ErrStatusMismatch {
		current, getErr := d.store.Get(ctx, orderID)
		if getErr != nil {
			return fmt.Errorf("re-read order after dismiss: %w", getErr)
		}
		switch statusOf(current) {
		case orders.StatusPaymentFailed:
			// already recorded; dismiss is idempotent
			return nil
		case orders.StatusPaid:
			// success callback won the race; a late dismiss must not undo it
			log.Printf("[reconcile] dismiss for already-paid order=%s ignored", orderID)
			return nil
		default:
			return fmt.Errorf("order %s cannot be dismissed from status %s", orderID, statusOf(current))
		}
	}
	if err != nil {
		return fmt.Errorf("dismiss checkout: %w", err)
	}
	d.metrics.PaymentOutcome(ctx, "failed")
	return nil
}

// ConfirmUPIReturn settles a direct-UPI attempt after the user returns to
// the app. UPI deep links give no signed callback, so the gateway is asked
// directly; only a captured payment marks the order paid.
func (d *Dispatcher) ConfirmUPIReturn(ctx context.Context, orderID, paymentID string) (*orders.Order, error) {
	order, err := d.store.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	if orders.IsTerminal(order.Status) {
		return nil, fmt.Errorf("order %s is %s and no longer accepts payment callbacks", orderID, order.Status)
	}

	status, err := d.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		d.failPayment(ctx, orderID)
		return nil, err
	}
	if status != gateway.PaymentCaptured {
		d.failPayment(ctx, orderID)
		return nil, &checkout.SignatureVerificationError{OrderID: orderID, Reason: "payment not captured: " + status}
	}

	attempt, err := d.store.GetAttempt(ctx, orderID)
	if err != nil {
		log.Printf("[reconcile] fetch attempt for order=%s: %v", orderID, err)
	}
	ref := orders.PaymentReference{PaymentID: paymentID}
	if attempt != nil {
		ref.RemoteOrderID = attempt.RemoteOrderID
	}

	err = recovery.WithPermissionRecovery(ctx, "mark order paid", d.remediator, func(ctx context.Context) error {
		return d.store.MarkPaid(ctx, orderID, ref)
	})
	if err == orders.ErrStatusMismatch {
		current, getErr := d.store.Get(ctx, orderID)
		if getErr != nil {
			return nil, fmt.Errorf("re-read order after duplicate return: %w", getErr)
		}
		if current != nil && current.Status == orders.StatusPaid {
			return current, nil
		}
		return nil, fmt.Errorf("order %s is not awaiting payment (status=%s)", orderID, statusOf(current))
	}
	if err != nil {
		return nil, err
	}

	if err := d.store.MarkAttemptState(ctx, orderID, orders.AttemptReturned); err != nil {
		log.Printf("[reconcile] mark attempt returned for order=%s: %v", orderID, err)
	}

	order.Status = orders.StatusPaid
	order.PaymentReference = &ref
	d.metrics.PaymentOutcome(ctx, "paid")
	d.notifyAndClear(ctx, order)
	return order, nil
}

func statusOf(o *orders.Order) string {
	if o == nil {
		return "<missing>"
	}
	return o.Status
}
