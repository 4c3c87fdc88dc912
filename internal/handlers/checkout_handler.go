package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
	"github.com/imrishuroy/go-checkout-pipeline/internal/dispatch"
	"github.com/imrishuroy/go-checkout-pipeline/internal/orders"
	"github.com/imrishuroy/go-checkout-pipeline/internal/rates"
	"github.com/imrishuroy/go-checkout-pipeline/internal/validation"
)

// HandlerConfig groups dependencies for the checkout handlers.
type HandlerConfig struct {
	Dispatcher    *dispatch.Dispatcher
	Coupons       *rates.CouponStore
	Shipping      *rates.ShippingClient
	Orders        *orders.Store
	PickupPincode string
	ParcelWeight  float64 // kg per parcel, flat for now
}

// RegisterCheckoutRoutes registers the checkout/payment API.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/checkout", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		cart := checkout.CartSnapshot{Items: make([]checkout.CartItem, 0, len(req.Items))}
		for _, it := range req.Items {
			cart.Items = append(cart.Items, checkout.CartItem{
				ProductID:    it.ProductID,
				Name:         it.Name,
				UnitPrice:    it.UnitPrice,
				Quantity:     it.Quantity,
				VariantLabel: it.VariantLabel,
			})
		}

		var coupon *checkout.Coupon
		if req.CouponCode != "" {
			resolved, err := cfg.Coupons.Resolve(ctx, req.CouponCode)
			if err != nil {
				writeError(c, err)
				return
			}
			coupon = resolved
		}

		quote := &checkout.ShippingQuote{
			CourierID:     req.Shipping.CourierID,
			CourierName:   req.Shipping.CourierName,
			Cost:          req.Shipping.Cost,
			EstimatedDays: req.Shipping.EstimatedDays,
		}

		draft, err := checkout.BuildDraft(cart, coupon, quote)
		if err != nil {
			writeError(c, err)
			return
		}

		customer := checkout.CustomerInfo{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
			City:    req.Customer.City,
			State:   req.Customer.State,
			Pincode: req.Customer.Pincode,
		}

		outcome, err := cfg.Dispatcher.Dispatch(ctx, req.PaymentMethod, draft, customer, cart, req.Shipping.CourierID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"order": outcome,
			"draft": draft,
		})
	})

	r.POST("/checkout/:id/retry", func(c *gin.Context) {
		outcome, err := cfg.Dispatcher.RetryPayment(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": outcome})
	})

	r.POST("/payments/verify", func(c *gin.Context) {
		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		order, err := cfg.Dispatcher.ConfirmPayment(c.Request.Context(), req.OrderID, req.RazorpayPaymentID, req.RazorpayOrderID, req.RazorpaySignature)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": order.OrderID, "status": order.Status})
	})

	r.POST("/payments/dismiss", func(c *gin.Context) {
		var req validation.DismissRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		if err := cfg.Dispatcher.DismissCheckout(c.Request.Context(), req.OrderID); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "status": orders.StatusPaymentFailed})
	})

	r.POST("/payments/upi/return", func(c *gin.Context) {
		var req validation.UPIReturnRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		order, err := cfg.Dispatcher.ConfirmUPIReturn(c.Request.Context(), req.OrderID, req.PaymentID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": order.OrderID, "status": order.Status})
	})

	r.POST("/shipping/rates", func(c *gin.Context) {
		var req validation.RateLookupRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		quotes, err := cfg.Shipping.Rates(c.Request.Context(), rates.RateRequest{
			PickupPincode:   cfg.PickupPincode,
			DeliveryPincode: req.DeliveryPincode,
			Weight:          cfg.ParcelWeight,
			CashOnDelivery:  req.CashOnDelivery,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		// zero couriers is not an error: the pincode is unserviceable and the
		// client must keep "place order" disabled.
		c.JSON(http.StatusOK, gin.H{
			"serviceable": len(quotes) > 0,
			"couriers":    quotes,
		})
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		order, err := cfg.Orders.Get(ctx, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		items, err := cfg.Orders.GetItems(ctx, order.OrderID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
	})
}

// writeError converts the pipeline error taxonomy into HTTP responses. Raw
// gateway/store error shapes never reach the client.
func writeError(c *gin.Context, err error) {
	var startupErr *checkout.StartupError
	var gatewayErr *checkout.GatewayOrderError
	var sigErr *checkout.SignatureVerificationError
	var permErr *checkout.PersistentPermissionError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_cart", "msg": err.Error()})
	case errors.Is(err, checkout.ErrMissingShipping):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_shipping", "msg": err.Error()})
	case errors.Is(err, checkout.ErrInvalidCoupon):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_coupon", "msg": err.Error()})
	case errors.Is(err, checkout.ErrUnknownMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_payment_method", "msg": err.Error()})
	case errors.Is(err, orders.ErrOrderExists):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_order"})
	case errors.As(err, &startupErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_startup_failed", "msg": startupErr.Reason})
	case errors.As(err, &sigErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_verification_failed", "msg": "payment could not be verified; you can retry the payment", "retryable": true})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_order_failed", "msg": "payment gateway is unavailable; you can retry the payment", "retryable": true})
	case errors.As(err, &permErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistent_permission_error", "msg": permErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
