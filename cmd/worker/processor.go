package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
)

// Processor consumes notification-queue messages and sends the customer
// notification for orders that reached PAID or PROCESSING.
type Processor struct {
	orderStore *orders.Store
	nowFunc    func() time.Time
}

// NewProcessor creates a worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, ordersTable, itemsTable, attemptsTable string) *Processor {
	return &Processor{
		orderStore: orders.NewStore(clients.DynamoDB, ordersTable, itemsTable, attemptsTable),
		nowFunc:    time.Now,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg aws.OrderNotification
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received notification order=%s status=%s", msg.OrderID, msg.Status)

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		// Should never happen — DLQ if it does
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	// Only settled orders get a notification; stale messages for orders that
	// later failed are dropped.
	switch order.Status {
	case orders.StatusPaid, orders.StatusProcessing, orders.StatusShipped, orders.StatusDelivered:
	default:
		log.Printf("[worker] order=%s is %s, dropping notification", order.OrderID, order.Status)
		return nil
	}

	// Claim the notification before sending: a redelivered message loses the
	// conditional write and is swallowed here.
	err = p.orderStore.MarkNotified(ctx, order.OrderID)
	if err == orders.ErrStatusMismatch {
		log.Printf("[worker] order=%s already notified, skipping", order.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to claim notification: %w", err)
	}

	p.expireStaleAttempt(ctx, order.OrderID)

	// Actual mail delivery goes through the provider configured downstream;
	// here the send is recorded for the pipeline.
	log.Printf("[worker] notifying %s: order %s is %s (₹%.2f via %s)",
		order.Customer.Email, order.OrderID, order.Status, order.TotalAmount, order.PaymentMethod)
	return nil
}

// expireStaleAttempt flags payment-attempt rows that outlived their TTL
// window but have not been collected yet. Log-only: orders are never
// auto-cancelled here.
func (p *Processor) expireStaleAttempt(ctx context.Context, orderID string) {
	attempt, err := p.orderStore.GetAttempt(ctx, orderID)
	if err != nil {
		log.Printf("[worker] fetch attempt for order=%s: %v", orderID, err)
		return
	}
	if attempt == nil || attempt.State != orders.AttemptInitiated {
		return
	}
	if attempt.ExpiresAt > 0 && attempt.ExpiresAt < p.nowFunc().Unix() {
		log.Printf("[worker] payment attempt for order=%s expired while INITIATED", orderID)
		if err := p.orderStore.MarkAttemptState(ctx, orderID, orders.AttemptExpired); err != nil {
			log.Printf("[worker] mark attempt expired for order=%s: %v", orderID, err)
		}
	}
}
