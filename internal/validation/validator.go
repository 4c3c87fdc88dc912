package validation

import (
	"fmt"
	"math"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// the claimed subtotal must equal the sum of (unit price * quantity)
	// across items, compared in paise to dodge float noise.
	v.RegisterStructValidation(checkoutStructValidation, CheckoutRequest{})

	return v
}

func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutRequest)

	var sum float64
	for _, it := range req.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}

	sumPaise := int64(math.Round(sum * 100))
	claimedPaise := int64(math.Round(req.Subtotal * 100))
	if sumPaise != claimedPaise {
		sl.ReportError(req.Subtotal, "Subtotal", "Subtotal", "subtotal_match_items", fmt.Sprintf("items sum %.2f != subtotal %.2f", sum, req.Subtotal))
	}
}
