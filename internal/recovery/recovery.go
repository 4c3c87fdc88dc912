package recovery

import (
	"context"
	"errors"
	"log"

	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-checkout-pipeline/internal/checkout"
)

// accessDeniedCode is the error code DynamoDB returns when a write is
// rejected by the table's resource/access policy. Only this class triggers
// remediation; every other error passes through untouched.
const accessDeniedCode = "AccessDeniedException"

// Remediator performs the compensating action for an access-policy
// rejection. Implementations must be idempotent and safe to call repeatedly.
type Remediator interface {
	Remediate(ctx context.Context) error
}

// RemediatorFunc adapts a function to the Remediator interface.
type RemediatorFunc func(ctx context.Context) error

func (f RemediatorFunc) Remediate(ctx context.Context) error { return f(ctx) }

// WithPermissionRecovery runs op; if it fails with an access-policy
// rejection, it remediates and retries the op exactly once. A second failure
// surfaces as PersistentPermissionError. The store's access-control
// configuration can drift independently of deployment, so this is a
// pragmatic compensating action, not a correctness guarantee.
func WithPermissionRecovery(ctx context.Context, name string, rem Remediator, op func(ctx context.Context) error) error {
	err := op(ctx)
	if err == nil {
		return nil
	}
	if !IsPermissionDenied(err) {
		return err
	}

	log.Printf("[recovery] %s rejected by access policy, remediating: %v", name, err)
	if rem != nil {
		if remErr := rem.Remediate(ctx); remErr != nil {
			log.Printf("[recovery] remediation for %s failed: %v", name, remErr)
			return &checkout.PersistentPermissionError{Operation: name, Err: err}
		}
	}

	if retryErr := op(ctx); retryErr != nil {
		if IsPermissionDenied(retryErr) {
			return &checkout.PersistentPermissionError{Operation: name, Err: retryErr}
		}
		return retryErr
	}
	log.Printf("[recovery] %s succeeded after remediation", name)
	return nil
}

// IsPermissionDenied reports whether err is the recognizable
// authorization-policy rejection class.
func IsPermissionDenied(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == accessDeniedCode
}
