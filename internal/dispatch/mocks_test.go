package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
)

// fakeStore is an in-memory OrderStore with the same conditional-transition
// semantics as the DynamoDB implementation.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]*orders.Order
	items    map[string][]orders.OrderItem
	attempts map[string]*orders.PaymentAttempt

	createErr error // returned once by the next CreateWithItems
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[string]*orders.Order{},
		items:    map[string][]orders.OrderItem{},
		attempts: map[string]*orders.PaymentAttempt{},
	}
}

func (f *fakeStore) CreateWithItems(ctx context.Context, order orders.Order, items []orders.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	if _, exists := f.orders[order.OrderID]; exists {
		return orders.ErrOrderExists
	}
	o := order
	f.orders[order.OrderID] = &o
	f.items[order.OrderID] = items
	return nil
}

func (f *fakeStore) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if o.Status != expectedStatus {
		return orders.ErrStatusMismatch
	}
	o.Status = newStatus
	return nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, orderID string, ref orders.PaymentReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if o.Status != orders.StatusAwaitingPayment {
		return orders.ErrStatusMismatch
	}
	o.Status = orders.StatusPaid
	r := ref
	o.PaymentReference = &r
	return nil
}

func (f *fakeStore) PutAttempt(ctx context.Context, attempt orders.PaymentAttempt, ttlWindow time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := attempt
	if a.ExpiresAt == 0 && ttlWindow > 0 {
		a.ExpiresAt = time.Now().Add(ttlWindow).Unix()
	}
	f.attempts[attempt.OrderID] = &a
	return nil
}

func (f *fakeStore) GetAttempt(ctx context.Context, orderID string) (*orders.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[orderID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) MarkAttemptState(ctx context.Context, orderID, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.attempts[orderID]; ok {
		a.State = state
	}
	return nil
}

// fakeGateway scripts gateway behavior per test.
type fakeGateway struct {
	remoteID    string
	createErr   error
	validSig    string
	fetchStatus string
	fetchErr    error

	createCalls int
}

func (g *fakeGateway) CreateRemoteOrder(ctx context.Context, amount float64, currency, localOrderID string) (string, error) {
	g.createCalls++
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.remoteID, nil
}

func (g *fakeGateway) CheckoutOptions(remoteOrderID string, amount float64, currency string, customer checkout.CustomerInfo) map[string]interface{} {
	return map[string]interface{}{
		"order_id": remoteOrderID,
		"amount":   checkout.ToMinorUnits(amount),
		"currency": currency,
	}
}

func (g *fakeGateway) UPILink(vpa, payeeName string, amount float64, currency, orderID string) (string, error) {
	if vpa == "" {
		return "", &checkout.StartupError{Reason: "no UPI payee address configured"}
	}
	return "upi://pay?pa=" + vpa + "&tr=" + orderID, nil
}

func (g *fakeGateway) VerifySignature(paymentID, remoteOrderID, signature string) bool {
	return signature != "" && signature == g.validSig
}

func (g *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (string, error) {
	if g.fetchErr != nil {
		return "", g.fetchErr
	}
	return g.fetchStatus, nil
}

// fakeCart counts clears.
type fakeCart struct {
	mu      sync.Mutex
	cleared int
}

func (c *fakeCart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	return nil
}

// fakeNotifier records sends and can fail on demand.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []aws.OrderNotification
	err  error
}

func (n *fakeNotifier) SendOrderNotification(ctx context.Context, msg aws.OrderNotification, attributes map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}
