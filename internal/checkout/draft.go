package checkout

import "time"

// BuildDraft validates the cart, coupon and shipping selection and computes
// the priced draft. Coupon invariants are checked here, at evaluation time: a
// coupon that expired between "applied" in the UI and "place order" is
// rejected, not silently honored.
//
// The builder is deterministic: unchanged inputs always produce an identical
// draft.
func BuildDraft(cart CartSnapshot, coupon *Coupon, quote *ShippingQuote) (OrderDraft, error) {
	return buildDraftAt(cart, coupon, quote, time.Now().UTC())
}

func buildDraftAt(cart CartSnapshot, coupon *Coupon, quote *ShippingQuote, now time.Time) (OrderDraft, error) {
	if len(cart.Items) == 0 {
		return OrderDraft{}, ErrEmptyCart
	}
	if quote == nil || quote.Cost <= 0 {
		return OrderDraft{}, ErrMissingShipping
	}

	subtotal := cart.Subtotal()

	var discount float64
	var code string
	if coupon != nil {
		if !couponHonored(*coupon, subtotal, now) {
			return OrderDraft{}, ErrInvalidCoupon
		}
		discount = RoundMinor(subtotal * coupon.DiscountPercent / 100)
		if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
			discount = RoundMinor(coupon.MaxDiscount)
		}
		code = coupon.Code
	}

	shipping := RoundMinor(quote.Cost)
	final := RoundMinor(subtotal - discount + shipping)

	return OrderDraft{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCost:   shipping,
		FinalTotal:     final,
		CouponCode:     code,
	}, nil
}

// couponHonored checks the coupon invariants: active, not expired, and the
// subtotal meets the minimum order value.
func couponHonored(c Coupon, subtotal float64, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	if subtotal < c.MinOrderValue {
		return false
	}
	return true
}
