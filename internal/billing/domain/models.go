package domain

import "strings"

// ProviderKind identifies a payment provider. Serialized snake_case.
type ProviderKind string

const (
	ProviderStripe     ProviderKind = "stripe"
	ProviderPaypal     ProviderKind = "paypal"
	ProviderShopify    ProviderKind = "shopify"
	ProviderKlarna     ProviderKind = "klarna"
	ProviderAffirm     ProviderKind = "affirm"
	ProviderApplePay   ProviderKind = "apple_pay"
	ProviderWePay      ProviderKind = "wepay"
	ProviderVenmo      ProviderKind = "venmo"
	ProviderWeChat     ProviderKind = "wechat"
	ProviderQuickBooks ProviderKind = "quickbooks"
	ProviderMastercard ProviderKind = "mastercard"
	ProviderVisa       ProviderKind = "visa"
	ProviderBitcoin    ProviderKind = "bitcoin"
)

// Providers lists every known provider kind.
func Providers() []ProviderKind {
	return []ProviderKind{
		ProviderStripe,
		ProviderPaypal,
		ProviderShopify,
		ProviderKlarna,
		ProviderAffirm,
		ProviderApplePay,
		ProviderWePay,
		ProviderVenmo,
		ProviderWeChat,
		ProviderQuickBooks,
		ProviderMastercard,
		ProviderVisa,
		ProviderBitcoin,
	}
}

// ParseProviderKind normalizes a provider token. Returns false for unknown kinds.
func ParseProviderKind(raw string) (ProviderKind, bool) {
	kind := ProviderKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Providers() {
		if kind == known {
			return kind, true
		}
	}
	return "", false
}

func (k ProviderKind) String() string { return string(k) }

// PaymentStatus is the lifecycle state of a payment record.
//
// RequiresAction, Authorized, Refunded and Chargeback are declared for the
// persisted format but no operation currently transitions through them.
type PaymentStatus string

const (
	StatusPending        PaymentStatus = "pending"
	StatusRequiresAction PaymentStatus = "requires_action"
	StatusAuthorized     PaymentStatus = "authorized"
	StatusSucceeded      PaymentStatus = "succeeded"
	StatusRefunded       PaymentStatus = "refunded"
	StatusFailed         PaymentStatus = "failed"
	StatusChargeback     PaymentStatus = "chargeback"
)

// Tier is the API tier purchased by a payment.
type Tier string

const (
	TierTrial      Tier = "trial"
	TierStandard   Tier = "standard"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// ParseTier normalizes a tier token. Returns false for unknown tiers.
func ParseTier(raw string) (Tier, bool) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	switch tier {
	case TierTrial, TierStandard, TierPremium, TierEnterprise:
		return tier, true
	}
	return "", false
}

func (t Tier) String() string { return string(t) }

// ProviderConfig configures a single payment provider.
type ProviderConfig struct {
	Provider      ProviderKind `json:"provider" mapstructure:"provider"`
	Enabled       bool         `json:"enabled" mapstructure:"enabled"`
	APIKey        string       `json:"api_key,omitempty" mapstructure:"api_key"`
	WebhookSecret string       `json:"webhook_secret,omitempty" mapstructure:"webhook_secret"`
	MerchantID    string       `json:"merchant_id,omitempty" mapstructure:"merchant_id"`
	Region        string       `json:"region,omitempty" mapstructure:"region"`
}

// EnabledProvider returns a minimal enabled config for the given kind.
func EnabledProvider(kind ProviderKind) ProviderConfig {
	return ProviderConfig{Provider: kind, Enabled: true}
}

// CheckoutRequest describes a checkout to create against a provider.
type CheckoutRequest struct {
	Provider   ProviderKind      `json:"provider"`
	AmountCent int64             `json:"amount_cents"`
	Currency   string            `json:"currency"`
	UserID     string            `json:"user_id"`
	Tier       Tier              `json:"tier"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ReturnURL  string            `json:"return_url,omitempty"`
	CancelURL  string            `json:"cancel_url,omitempty"`
}

// PaymentIntent is the transient provider-facing projection of a checkout.
// It is returned to the caller but never persisted; a PaymentRecord is
// derived from it.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Provider     ProviderKind      `json:"provider"`
	Status       PaymentStatus     `json:"status"`
	AmountCent   int64             `json:"amount_cents"`
	Currency     string            `json:"currency"`
	CheckoutURL  string            `json:"checkout_url,omitempty"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Metadata     map[string]string `json:"metadata"`
}

// PaymentRecord is a persisted payment. Created on checkout, mutated by
// settlement and failure marking, never deleted.
type PaymentRecord struct {
	ID         string            `json:"id"`
	Provider   ProviderKind      `json:"provider"`
	Status     PaymentStatus     `json:"status"`
	AmountCent int64             `json:"amount_cents"`
	Currency   string            `json:"currency"`
	UserID     string            `json:"user_id"`
	Tier       Tier              `json:"tier"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  int64             `json:"created_at"`
	UpdatedAt  int64             `json:"updated_at"`
	Reference  *string           `json:"reference"`
}

// Clone returns a deep copy of the record.
func (r PaymentRecord) Clone() PaymentRecord {
	out := r
	out.Metadata = cloneMetadata(r.Metadata)
	if r.Reference != nil {
		ref := *r.Reference
		out.Reference = &ref
	}
	return out
}

// APIKeyRecord is a persisted credential. Only the salted hash of the key is
// stored; the plaintext is surfaced exactly once at issuance.
type APIKeyRecord struct {
	ID         string `json:"id"`
	HashedKey  string `json:"hashed_key"`
	UserID     string `json:"user_id"`
	PaymentID  string `json:"payment_id"`
	Tier       Tier   `json:"tier"`
	CreatedAt  int64  `json:"created_at"`
	Revoked    bool   `json:"revoked"`
	UsageLimit *int64 `json:"usage_limit"`
	UsageCount int64  `json:"usage_count"`
	LastUsedAt *int64 `json:"last_used_at"`
}

// Clone returns a deep copy of the record.
func (r APIKeyRecord) Clone() APIKeyRecord {
	out := r
	if r.UsageLimit != nil {
		limit := *r.UsageLimit
		out.UsageLimit = &limit
	}
	if r.LastUsedAt != nil {
		at := *r.LastUsedAt
		out.LastUsedAt = &at
	}
	return out
}

// IssuedAPIKey pairs the one-time plaintext key with its stored record.
type IssuedAPIKey struct {
	APIKey string       `json:"api_key"`
	Record APIKeyRecord `json:"record"`
}

// BillingState is the entire persisted universe. Record identity is by ID;
// lookups are linear scans, no secondary indices are persisted.
type BillingState struct {
	Payments []PaymentRecord `json:"payments"`
	APIKeys  []APIKeyRecord  `json:"api_keys"`
}

// Clone returns a deep copy of the state.
func (s BillingState) Clone() BillingState {
	out := BillingState{
		Payments: make([]PaymentRecord, 0, len(s.Payments)),
		APIKeys:  make([]APIKeyRecord, 0, len(s.APIKeys)),
	}
	for _, payment := range s.Payments {
		out.Payments = append(out.Payments, payment.Clone())
	}
	for _, key := range s.APIKeys {
		out.APIKeys = append(out.APIKeys, key.Clone())
	}
	return out
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
