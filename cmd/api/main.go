package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-checkout-pipeline/internal/aws"
	"github.com/imrishuroy/go-checkout-pipeline/internal/config"
	"github.com/imrishuroy/go-checkout-pipeline/internal/dispatch"
	"github.com/imrishuroy/go-checkout-pipeline/internal/gateway"
	"github.com/imrishuroy/go-checkout-pipeline/internal/handlers"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
	"github.com/imrishuroy/go-checkout-pipeline/internal/rates"
	"github.com/imrishuroy/go-checkout-pipeline/internal/recovery"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterCheckoutRoutes(r, cfg)

	return r
}

func main() {
	ctx := context.Background()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := config.Load()

	gw, err := gateway.NewAdapter(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	if err != nil {
		log.Fatalf("failed to init payment gateway: %v", err)
	}

	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.OrderItemsTable, cfg.PaymentAttemptsTable)
	couponStore := rates.NewCouponStore(clients.DynamoDB, cfg.CouponsTable)
	shipping := rates.NewShippingClient(cfg.ShippingRateURL)
	notifier := aws.NewPublisher(clients.SQS, cfg.NotificationQueueURL)
	metrics := aws.NewMetrics(clients.CloudWatch)

	// Remediation reloads the AWS credential chain; access-policy drift on the
	// tables usually clears once fresh credentials are picked up. Safe to run
	// repeatedly.
	remediator := recovery.RemediatorFunc(func(ctx context.Context) error {
		_, err := aws.LoadAWSConfig(ctx)
		return err
	})

	dispatcher := dispatch.New(orderStore, gw, nil, notifier, metrics, remediator, dispatch.Config{
		Currency:   cfg.Currency,
		UPIVPA:     cfg.UPIVPA,
		UPIPayee:   cfg.UPIPayeeName,
		AttemptTTL: cfg.AttemptTTL,
	})

	r := setupRouter(handlers.HandlerConfig{
		Dispatcher:    dispatcher,
		Coupons:       couponStore,
		Shipping:      shipping,
		Orders:        orderStore,
		PickupPincode: cfg.PickupPincode,
		ParcelWeight:  0.5,
	})

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.RunLocal {
		log.Printf("running local server on %s", cfg.ListenAddr)
		if err := r.Run(cfg.ListenAddr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
