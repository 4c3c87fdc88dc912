package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the environment-driven configuration shared by cmd/api and
// cmd/worker.
type Config struct {
	OrdersTable          string
	OrderItemsTable      string
	PaymentAttemptsTable string
	CouponsTable         string
	NotificationQueueURL string

	RazorpayKeyID     string
	RazorpayKeySecret string
	UPIVPA            string
	UPIPayeeName      string
	Currency          string

	ShippingRateURL string
	PickupPincode   string

	AttemptTTL time.Duration
	RunLocal   bool
	ListenAddr string
}

// Load reads configuration from the environment with sane defaults.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ORDERS_TABLE", "orders")
	v.SetDefault("ORDER_ITEMS_TABLE", "order_items")
	v.SetDefault("PAYMENT_ATTEMPTS_TABLE", "payment_attempts")
	v.SetDefault("COUPONS_TABLE", "coupons")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("UPI_PAYEE_NAME", "Store")
	v.SetDefault("ATTEMPT_TTL_HOURS", 24)
	v.SetDefault("LISTEN_ADDR", ":8080")

	return Config{
		OrdersTable:          v.GetString("ORDERS_TABLE"),
		OrderItemsTable:      v.GetString("ORDER_ITEMS_TABLE"),
		PaymentAttemptsTable: v.GetString("PAYMENT_ATTEMPTS_TABLE"),
		CouponsTable:         v.GetString("COUPONS_TABLE"),
		NotificationQueueURL: v.GetString("NOTIFICATIONS_QUEUE_URL"),
		RazorpayKeyID:        v.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:    v.GetString("RAZORPAY_KEY_SECRET"),
		UPIVPA:               v.GetString("UPI_VPA"),
		UPIPayeeName:         v.GetString("UPI_PAYEE_NAME"),
		Currency:             v.GetString("CURRENCY"),
		ShippingRateURL:      v.GetString("SHIPPING_RATE_URL"),
		PickupPincode:        v.GetString("PICKUP_PINCODE"),
		AttemptTTL:           time.Duration(v.GetInt("ATTEMPT_TTL_HOURS")) * time.Hour,
		RunLocal:             v.GetBool("RUN_LOCAL"),
		ListenAddr:           v.GetString("LISTEN_ADDR"),
	}
}
