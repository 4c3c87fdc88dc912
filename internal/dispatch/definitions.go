package dispatch

import (
	"context"
	"time"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
	"github.com/imrishuroy/go-checkout-pipeline/internal/recovery"
)

// OrderStore is the persistence surface the dispatcher needs. Satisfied by
// *orders.Store; tests swap in fakes.
type OrderStore interface {
	CreateWithItems(ctx context.Context, order orders.Order, items []orders.OrderItem) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
	MarkPaid(ctx context.Context, orderID string, ref orders.PaymentReference) error
	PutAttempt(ctx context.Context, attempt orders.PaymentAttempt, ttlWindow time.Duration) error
	GetAttempt(ctx context.Context, orderID string) (*orders.PaymentAttempt, error)
	MarkAttemptState(ctx context.Context, orderID, state string) error
}

// Gateway is the payment-gateway boundary. Satisfied by *gateway.Adapter.
type Gateway interface {
	CreateRemoteOrder(ctx context.Context, amount float64, currency, localOrderID string) (string, error)
	CheckoutOptions(remoteOrderID string, amount float64, currency string, customer checkout.CustomerInfo) map[string]interface{}
	UPILink(vpa, payeeName string, amount float64, currency, orderID string) (string, error)
	VerifySignature(paymentID, remoteOrderID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (string, error)
}

// CartProvider clears the customer's cart. Cleared only after a terminal
// payment success; a failed or dismissed payment leaves the cart intact.
type CartProvider interface {
	Clear(ctx context.Context) error
}

// Notifier sends the post-payment notification. Fire and forget: failures
// are logged and never reverse an order transition.
type Notifier interface {
	SendOrderNotification(ctx context.Context, n aws.OrderNotification, attributes map[string]string) error
}

// PaymentOutcome is what the dispatcher hands back to the HTTP layer.
// Exactly one of CheckoutOptions / UPILink is set for the async methods.
type PaymentOutcome struct {
	OrderID         string                 `json:"order_id"`
	Status          string                 `json:"status"`
	RemoteOrderID   string                 `json:"remote_order_id,omitempty"`
	CheckoutOptions map[string]interface{} `json:"checkout_options,omitempty"`
	UPILink         string                 `json:"upi_link,omitempty"`
}

// Config carries the knobs the dispatcher needs beyond its collaborators.
type Config struct {
	Currency    string
	UPIVPA      string
	UPIPayee    string
	AttemptTTL  time.Duration
	PickupPin   string
	ParcelGrams float64
}

// Dispatcher routes a priced draft to one of the payment strategies and
// applies asynchronous gateway outcomes back onto the persisted order.
type Dispatcher struct {
	store      OrderStore
	gateway    Gateway
	cart       CartProvider
	notifier   Notifier
	metrics    *aws.Metrics
	remediator recovery.Remediator
	cfg        Config

	nowFunc func() time.Time
	newID   func() string
}

// New wires a Dispatcher. metrics, notifier, cart and remediator may be nil;
// every use is guarded.
func New(store OrderStore, gw Gateway, cart CartProvider, notifier Notifier, metrics *aws.Metrics, remediator recovery.Remediator, cfg Config) *Dispatcher {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.AttemptTTL == 0 {
		cfg.AttemptTTL = 24 * time.Hour
	}
	return &Dispatcher{
		store:      store,
		gateway:    gw,
		cart:       cart,
		notifier:   notifier,
		metrics:    metrics,
		remediator: remediator,
		cfg:        cfg,
		nowFunc:    time.Now,
		newID:      defaultNewID,
	}
}
