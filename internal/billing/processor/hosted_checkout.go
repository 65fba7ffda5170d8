package processor

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/quantica-hq/billing/internal/billing/domain"
	"go.uber.org/zap"
)

const referenceBytes = 10

// checkoutDomains maps each provider to its hosted-checkout host, used when
// the request carries no return URL.
var checkoutDomains = map[domain.ProviderKind]string{
	domain.ProviderStripe:     "checkout.stripe.com",
	domain.ProviderPaypal:     "www.paypal.com",
	domain.ProviderShopify:    "shop.payments.shopify.com",
	domain.ProviderKlarna:     "pay.klarna.com",
	domain.ProviderAffirm:     "checkout.affirm.com",
	domain.ProviderApplePay:   "pay.apple.com",
	domain.ProviderWePay:      "go.wepay.com",
	domain.ProviderVenmo:      "pay.venmo.com",
	domain.ProviderWeChat:     "pay.wechat.com",
	domain.ProviderQuickBooks: "payments.quickbooks.com",
	domain.ProviderMastercard: "checkout.mastercard.com",
	domain.ProviderVisa:       "secure.visa.com",
	domain.ProviderBitcoin:    "pay.bitcoin.example",
}

// HostedCheckout is the reference processor. It never talks to a real
// gateway: intents are fabricated locally and confirmation unconditionally
// reports success for enabled providers.
type HostedCheckout struct {
	config domain.ProviderConfig
	log    *zap.Logger
}

// NewHostedCheckout builds the stub processor for one provider config.
func NewHostedCheckout(config domain.ProviderConfig, log *zap.Logger) *HostedCheckout {
	if log == nil {
		log = zap.NewNop()
	}
	return &HostedCheckout{
		config: config,
		log:    log.Named("processor." + config.Provider.String()),
	}
}

func (p *HostedCheckout) Kind() domain.ProviderKind {
	return p.config.Provider
}

// CreatePaymentIntent fabricates a pending intent with a provider-scoped
// reference id and a checkout URL.
func (p *HostedCheckout) CreatePaymentIntent(ctx context.Context, req domain.CheckoutRequest) (*domain.PaymentIntent, error) {
	if !p.config.Enabled {
		return nil, &domain.ProcessorError{
			Kind: domain.ProcessorProviderUnavailable,
			Msg:  fmt.Sprintf("%s is disabled", p.config.Provider),
		}
	}
	if req.AmountCent <= 0 {
		return nil, &domain.ProcessorError{
			Kind: domain.ProcessorValidation,
			Msg:  "amount must be greater than zero",
		}
	}

	intentID, err := p.newReference()
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["user_id"] = req.UserID
	metadata["tier"] = req.Tier.String()

	checkoutURL := req.ReturnURL
	if strings.TrimSpace(checkoutURL) == "" {
		checkoutURL = fmt.Sprintf("https://%s/checkout?intent=%s", checkoutDomains[p.config.Provider], intentID)
	}

	p.log.Debug("payment intent created",
		zap.String("intent_id", intentID),
		zap.Int64("amount_cents", req.AmountCent),
		zap.String("currency", req.Currency),
	)

	return &domain.PaymentIntent{
		ID:          intentID,
		Provider:    p.config.Provider,
		Status:      domain.StatusPending,
		AmountCent:  req.AmountCent,
		Currency:    req.Currency,
		CheckoutURL: checkoutURL,
		Metadata:    metadata,
	}, nil
}

// ConfirmIntent reports Succeeded unconditionally for an enabled provider.
// A real integration must query the gateway instead.
func (p *HostedCheckout) ConfirmIntent(ctx context.Context, intentID string) (domain.PaymentStatus, error) {
	if !p.config.Enabled {
		return "", &domain.ProcessorError{
			Kind: domain.ProcessorProviderUnavailable,
			Msg:  fmt.Sprintf("%s is disabled", p.config.Provider),
		}
	}
	return domain.StatusSucceeded, nil
}

// ValidateWebhookSignature requires a constant-time match against the
// configured secret and a non-empty payload. With no secret configured it
// accepts unconditionally; deployments that receive webhooks must set one.
func (p *HostedCheckout) ValidateWebhookSignature(signature string, payload []byte) bool {
	if p.config.WebhookSecret == "" {
		return true
	}
	match := subtle.ConstantTimeCompare([]byte(signature), []byte(p.config.WebhookSecret)) == 1
	return match && len(payload) > 0
}

// newReference draws a provider-scoped id like stripe_4F1A... (20 uppercase
// hex chars).
func (p *HostedCheckout) newReference() (string, error) {
	raw := make([]byte, referenceBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", &domain.ProcessorError{
			Kind: domain.ProcessorUnexpected,
			Msg:  "drawing intent reference: " + err.Error(),
		}
	}
	return p.config.Provider.String() + "_" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
