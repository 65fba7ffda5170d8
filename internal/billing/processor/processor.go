// Package processor abstracts payment providers behind a single capability
// set. The shipped implementation is a hosted-checkout stub; real gateway
// integrations live behind the same interface as external collaborators.
package processor

import (
	"context"

	"github.com/quantica-hq/billing/internal/billing/domain"
)

// Processor is the capability set every payment provider implements.
type Processor interface {
	Kind() domain.ProviderKind
	CreatePaymentIntent(ctx context.Context, req domain.CheckoutRequest) (*domain.PaymentIntent, error)
	ConfirmIntent(ctx context.Context, intentID string) (domain.PaymentStatus, error)
	ValidateWebhookSignature(signature string, payload []byte) bool
}
