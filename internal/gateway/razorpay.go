package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
)

// orderAPI and paymentAPI mirror the razorpay-go resource methods we call, so
// tests can substitute fakes without a live gateway.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Fetch(paymentID string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Adapter wraps the Razorpay SDK. Amounts cross this boundary in rupees and
// are converted to integer paise here; the conversion rounds, never truncates.
type Adapter struct {
	keyID     string
	keySecret string
	orders    orderAPI
	payments  paymentAPI
}

// NewAdapter builds an adapter from gateway credentials. Missing credentials
// are a startup failure: no payment path can begin without them.
func NewAdapter(keyID, keySecret string) (*Adapter, error) {
	if keyID == "" || keySecret == "" {
		return nil, &checkout.StartupError{Reason: "payment gateway credentials not configured"}
	}
	client := razorpay.NewClient(keyID, keySecret)
	return &Adapter{
		keyID:     keyID,
		keySecret: keySecret,
		orders:    client.Order,
		payments:  client.Payment,
	}, nil
}

// CreateRemoteOrder registers the local order with the gateway and returns
// the gateway-side order id used for later correlation. The local order id
// rides along as the receipt.
func (a *Adapter) CreateRemoteOrder(ctx context.Context, amount float64, currency, localOrderID string) (string, error) {
	data := map[string]interface{}{
		"amount":   checkout.ToMinorUnits(amount),
		"currency": currency,
		"receipt":  localOrderID,
		"notes": map[string]interface{}{
			"local_order_id": localOrderID,
		},
	}
	body, err := a.orders.Create(data, nil)
	if err != nil {
		return "", &checkout.GatewayOrderError{Err: err}
	}
	remoteID, ok := body["id"].(string)
	if !ok || remoteID == "" {
		return "", &checkout.GatewayOrderError{Err: fmt.Errorf("gateway response missing order id")}
	}
	return remoteID, nil
}

// CheckoutOptions assembles the options object handed to the hosted checkout
// UI. Field names are the gateway's contract and must not be renamed.
func (a *Adapter) CheckoutOptions(remoteOrderID string, amount float64, currency string, customer checkout.CustomerInfo) map[string]interface{} {
	return map[string]interface{}{
		"key":      a.keyID,
		"amount":   checkout.ToMinorUnits(amount),
		"currency": currency,
		"order_id": remoteOrderID,
		"prefill": map[string]interface{}{
			"name":    customer.Name,
			"email":   customer.Email,
			"contact": customer.Phone,
		},
	}
}

// UPILink builds the deep-link URI for a direct UPI payment to the configured
// VPA. Deep links provide no guaranteed callback; the caller records a
// payment attempt and later verifies via FetchPayment.
func (a *Adapter) UPILink(vpa, payeeName string, amount float64, currency, orderID string) (string, error) {
	if vpa == "" {
		return "", &checkout.StartupError{Reason: "no UPI payee address configured"}
	}
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", payeeName)
	q.Set("am", fmt.Sprintf("%.2f", checkout.RoundMinor(amount)))
	q.Set("cu", currency)
	q.Set("tn", "Order "+orderID)
	q.Set("tr", orderID)
	return "upi://pay?" + q.Encode(), nil
}

// VerifySignature checks the gateway callback signature: HMAC-SHA256 of
// "<remote_order_id>|<payment_id>" under the key secret, compared in constant
// time. Fails closed: anything malformed is not a verified payment.
func (a *Adapter) VerifySignature(paymentID, remoteOrderID, signature string) bool {
	if paymentID == "" || remoteOrderID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.keySecret))
	mac.Write([]byte(remoteOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchPayment returns the gateway-side status of a payment ("captured",
// "failed", ...). Used on UPI return, where no signed callback exists.
func (a *Adapter) FetchPayment(ctx context.Context, paymentID string) (string, error) {
	body, err := a.payments.Fetch(paymentID, nil, nil)
	if err != nil {
		return "", &checkout.GatewayOrderError{Err: err}
	}
	status, ok := body["status"].(string)
	if !ok {
		return "", &checkout.GatewayOrderError{Err: fmt.Errorf("gateway response missing payment status")}
	}
	return status, nil
}

// PaymentCaptured is the gateway status meaning funds were collected.
const PaymentCaptured = "captured"
