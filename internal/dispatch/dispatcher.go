package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
	"github.com/imrishuroy/go-checkout-pipeline/internal/recovery"
)

func defaultNewID() string { return uuid.NewString() }

// Dispatch creates the pending order for a priced draft and routes it to the
// selected payment strategy.
//
// Ordering: the local order row must exist (and have an id) before any
// gateway order is created, since the gateway order references it for
// correlation. Startup failures for UPI (no payee configured) are checked
// before persistence so they never leave a dangling order.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, draft checkout.OrderDraft, customer checkout.CustomerInfo, cart checkout.CartSnapshot, courierID string) (PaymentOutcome, error) {
	switch method {
	case orders.MethodCOD, orders.MethodHostedCheckout, orders.MethodUPIDirect:
	default:
		return PaymentOutcome{}, checkout.ErrUnknownMethod
	}

	// UPI startup preflight, before any order mutation.
	if method == orders.MethodUPIDirect && d.cfg.UPIVPA == "" {
		return PaymentOutcome{}, &checkout.StartupError{Reason: "no UPI payee address configured"}
	}

	now := d.nowFunc().UTC()
	order := orders.Order{
		OrderID:        d.newID(),
		Customer:       customer,
		Subtotal:       draft.Subtotal,
		DiscountAmount: draft.DiscountAmount,
		ShippingCost:   draft.ShippingCost,
		TotalAmount:    draft.FinalTotal,
		CouponCode:     draft.CouponCode,
		CourierID:      courierID,
		PaymentMethod:  method,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if method == orders.MethodCOD {
		// COD skips the payment phase entirely.
		order.Status = orders.StatusProcessing
	} else {
		order.Status = orders.StatusAwaitingPayment
	}

	items := make([]orders.OrderItem, 0, len(cart.Items))
	for i, line := range cart.Items {
		items = append(items, orders.OrderItem{
			OrderID:     order.OrderID,
			LineNo:      i + 1,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	err := recovery.WithPermissionRecovery(ctx, "create order", d.remediator, func(ctx context.Context) error {
		return d.store.CreateWithItems(ctx, order, items)
	})
	if err != nil {
		return PaymentOutcome{}, fmt.Errorf("create order: %w", err)
	}
	d.metrics.OrderPlaced(ctx, method)

	return d.startPayment(ctx, &order, customer)
}

// startPayment runs the per-method payment initiation against an already
// persisted order. Shared between first dispatch and retry.
func (d *Dispatcher) startPayment(ctx context.Context, order *orders.Order, customer checkout.CustomerInfo) (PaymentOutcome, error) {
	switch order.PaymentMethod {
	case orders.MethodCOD:
		d.notifyAndClear(ctx, order)
		return PaymentOutcome{OrderID: order.OrderID, Status: order.Status}, nil

	case orders.MethodHostedCheckout:
		remoteID, err := d.gateway.CreateRemoteOrder(ctx, order.TotalAmount, d.cfg.Currency, order.OrderID)
		if err != nil {
			// The local order exists; record the failure rather than leaving
			// it awaiting a payment that can never arrive.
			d.failPayment(ctx, order.OrderID)
			return PaymentOutcome{}, err
		}
		attempt := orders.PaymentAttempt{
			OrderID:       order.OrderID,
			Method:        orders.MethodHostedCheckout,
			RemoteOrderID: remoteID,
			State:         orders.AttemptInitiated,
		}
		if err := d.store.PutAttempt(ctx, attempt, d.cfg.AttemptTTL); err != nil {
			log.Printf("[dispatch] record attempt for order=%s failed: %v", order.OrderID, err)
		}
		return PaymentOutcome{
			OrderID:         order.OrderID,
			Status:          order.Status,
			RemoteOrderID:   remoteID,
			CheckoutOptions: d.gateway.CheckoutOptions(remoteID, order.TotalAmount, d.cfg.Currency, customer),
		}, nil

	case orders.MethodUPIDirect:
		link, err := d.gateway.UPILink(d.cfg.UPIVPA, d.cfg.UPIPayee, order.TotalAmount, d.cfg.Currency, order.OrderID)
		if err != nil {
			return PaymentOutcome{}, err
		}
		attempt := orders.PaymentAttempt{
			OrderID: order.OrderID,
			Method:  orders.MethodUPIDirect,
			UPILink: link,
			State:   orders.AttemptInitiated,
		}
		if err := d.store.PutAttempt(ctx, attempt, d.cfg.AttemptTTL); err != nil {
			log.Printf("[dispatch] record attempt for order=%s failed: %v", order.OrderID, err)
		}
		return PaymentOutcome{OrderID: order.OrderID, Status: order.Status, UPILink: link}, nil
	}

	return PaymentOutcome{}, checkout.ErrUnknownMethod
}

// RetryPayment re-enters the dispatcher for an existing order instead of
// creating a duplicate. Only PAYMENT_FAILED and AWAITING_PAYMENT orders can
// re-enter.
func (d *Dispatcher) RetryPayment(ctx context.Context, orderID string) (PaymentOutcome, error) {
	order, err := d.store.Get(ctx, orderID)
	if err != nil {
		return PaymentOutcome{}, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return PaymentOutcome{}, fmt.Errorf("order not found: %s", orderID)
	}

	switch order.Status {
	case orders.StatusPaymentFailed:
		if err := d.store.UpdateStatus(ctx, orderID, orders.StatusPaymentFailed, orders.StatusAwaitingPayment); err != nil {
			return PaymentOutcome{}, fmt.Errorf("reopen order for retry: %w", err)
		}
		order.Status = orders.StatusAwaitingPayment
	case orders.StatusAwaitingPayment:
		// fall through: a stale attempt is simply superseded
	default:
		return PaymentOutcome{}, fmt.Errorf("order %s cannot retry payment from status %s", orderID, order.Status)
	}

	return d.startPayment(ctx, order, order.Customer)
}

// failPayment moves an awaiting order to PAYMENT_FAILED, tolerating the case
// where a concurrent callback already settled it.
func (d *Dispatcher) failPayment(ctx context.Context, orderID string) {
	err := d.store.UpdateStatus(ctx, orderID, orders.StatusAwaitingPayment, orders.StatusPaymentFailed)
	if err != nil && err != orders.ErrStatusMismatch {
		log.Printf("[dispatch] mark order=%s payment_failed: %v", orderID, err)
	}
	d.metrics.PaymentOutcome(ctx, "failed")
}

// notifyAndClear runs the terminal-success side effects: notification is
// fire-and-forget, cart clearing failure is logged but the order stands.
func (d *Dispatcher) notifyAndClear(ctx context.Context, order *orders.Order) {
	if d.notifier != nil {
		n := aws.OrderNotification{
			OrderID:       order.OrderID,
			CustomerEmail: order.Customer.Email,
			CustomerName:  order.Customer.Name,
			Status:        order.Status,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
		}
		if err := d.notifier.SendOrderNotification(ctx, n, map[string]string{"order_id": order.OrderID}); err != nil {
			log.Printf("[dispatch] notification for order=%s failed: %v", order.OrderID, err)
		}
	}
	if d.cart != nil {
		if err := d.cart.Clear(ctx); err != nil {
			log.Printf("[dispatch] clear cart after order=%s failed: %v", order.OrderID, err)
		}
	}
}
