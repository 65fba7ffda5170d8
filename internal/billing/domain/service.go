package domain

import "context"

// Service is the external billing contract. The host process consumes it as
// a library boundary and is responsible for exposing it over a transport.
type Service interface {
	// CreateCheckout builds a payment intent against the requested provider
	// and persists the derived payment record.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*PaymentIntent, error)

	// SettlePayment marks the payment succeeded, attaches the provider
	// reference and issues the API key bound to it. The plaintext key is
	// surfaced exactly once in the returned value.
	SettlePayment(ctx context.Context, paymentID, reference string, usageLimit *int64) (*IssuedAPIKey, error)

	// MarkPaymentFailed marks the payment failed and records the reason in
	// its metadata.
	MarkPaymentFailed(ctx context.Context, paymentID, reason string) error

	// ValidateAPIKey verifies the candidate against the stored credentials
	// and, on success, atomically consumes one unit of its usage allowance.
	ValidateAPIKey(ctx context.Context, candidate string) (*APIKeyRecord, error)

	// RevokeAPIKey permanently revokes the credential. There is no
	// un-revoke operation.
	RevokeAPIKey(ctx context.Context, recordID string) (*APIKeyRecord, error)

	// ConfirmIntent reports the provider-side status of an intent.
	ConfirmIntent(ctx context.Context, provider ProviderKind, intentID string) (PaymentStatus, error)

	// ValidateWebhookSignature checks a webhook signature against the
	// provider's configured secret.
	ValidateWebhookSignature(ctx context.Context, provider ProviderKind, signature string, payload []byte) (bool, error)

	// ListState returns a snapshot copy of the entire billing state.
	ListState(ctx context.Context) (*BillingState, error)

	// Providers lists the provider kinds currently registered.
	Providers(ctx context.Context) []ProviderKind
}
