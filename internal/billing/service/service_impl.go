package service

import (
	"context"

	"github.com/quantica-hq/billing/internal/billing/credentials"
	"github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/quantica-hq/billing/internal/billing/processor"
	"github.com/quantica-hq/billing/internal/billing/store"
	"github.com/quantica-hq/billing/internal/clock"
	"github.com/quantica-hq/billing/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MetadataAPIKeyID links a settled payment to its issued key.
const MetadataAPIKeyID = "api_key_id"

// MetadataFailureReason records why a payment was marked failed.
const MetadataFailureReason = "failure_reason"

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      *store.Store
	Processors *processor.Source
	Keys       *credentials.Manager
	Clock      clock.Clock
	Metrics    *metrics.Metrics `optional:"true"`
}

// Service orchestrates checkout, settlement and credential validation over
// the shared billing store.
type Service struct {
	log        *zap.Logger
	store      *store.Store
	processors *processor.Source
	keys       *credentials.Manager
	clock      clock.Clock
	metrics    *metrics.Metrics
}

// New builds the billing service. The store instance is shared, never
// cloned.
func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("billing.service"),
		store:      p.Store,
		processors: p.Processors,
		keys:       p.Keys,
		clock:      p.Clock,
		metrics:    p.Metrics,
	}
}

// CreateCheckout delegates to the provider's processor and persists the
// derived payment record. Processor error kinds cross this boundary intact.
func (s *Service) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (*domain.PaymentIntent, error) {
	proc, ok := s.processors.Current().Lookup(req.Provider)
	if !ok {
		s.countCheckout(req.Provider, metrics.OutcomeRejected)
		return nil, domain.ErrProviderUnavailable(req.Provider.String())
	}

	intent, err := proc.CreatePaymentIntent(ctx, req)
	if err != nil {
		s.countCheckout(req.Provider, metrics.OutcomeError)
		return nil, domain.AsBillingError(err)
	}

	now := s.clock.Now().Unix()
	record := domain.PaymentRecord{
		ID:         intent.ID,
		Provider:   req.Provider,
		Status:     intent.Status,
		AmountCent: req.AmountCent,
		Currency:   req.Currency,
		UserID:     req.UserID,
		Tier:       req.Tier,
		Metadata:   intent.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.store.UpsertPayment(record); err != nil {
		s.countCheckout(req.Provider, metrics.OutcomeError)
		return nil, err
	}

	s.countCheckout(req.Provider, metrics.OutcomeOK)
	s.log.Info("checkout created",
		zap.String("payment_id", record.ID),
		zap.String("provider", req.Provider.String()),
		zap.Int64("amount_cents", req.AmountCent),
		zap.String("currency", req.Currency),
		zap.String("user_id", req.UserID),
	)
	return intent, nil
}

// SettlePayment marks the payment succeeded and issues its API key. The
// key record id is cross-linked into the payment metadata.
func (s *Service) SettlePayment(ctx context.Context, paymentID, reference string, usageLimit *int64) (*domain.IssuedAPIKey, error) {
	payment, err := s.store.UpdatePayment(paymentID, func(record *domain.PaymentRecord) error {
		record.Status = domain.StatusSucceeded
		record.UpdatedAt = s.clock.Now().Unix()
		record.Reference = &reference
		return nil
	})
	if err != nil {
		return nil, err
	}

	issued, err := s.keys.Issue(payment.UserID, payment.ID, payment.Tier, usageLimit)
	if err != nil {
		return nil, err
	}

	if payment.Metadata == nil {
		payment.Metadata = map[string]string{}
	}
	payment.Metadata[MetadataAPIKeyID] = issued.Record.ID
	if _, err := s.store.UpsertPayment(payment); err != nil {
		return nil, err
	}
	if _, err := s.store.UpsertAPIKey(issued.Record); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsSettled.Inc()
	}
	s.log.Info("payment settled",
		zap.String("payment_id", paymentID),
		zap.String("api_key_id", issued.Record.ID),
		zap.String("user_id", payment.UserID),
		zap.String("tier", payment.Tier.String()),
	)
	return issued, nil
}

// MarkPaymentFailed marks the payment failed and records the reason.
func (s *Service) MarkPaymentFailed(ctx context.Context, paymentID, reason string) error {
	_, err := s.store.UpdatePayment(paymentID, func(record *domain.PaymentRecord) error {
		record.Status = domain.StatusFailed
		if record.Metadata == nil {
			record.Metadata = map[string]string{}
		}
		record.Metadata[MetadataFailureReason] = reason
		record.UpdatedAt = s.clock.Now().Unix()
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.PaymentsFailed.Inc()
	}
	s.log.Warn("payment failed",
		zap.String("payment_id", paymentID),
		zap.String("reason", reason),
	)
	return nil
}

// ValidateAPIKey scans the stored credentials for one matching the
// candidate, then consumes a unit of its allowance. The revocation and
// usage-limit re-check happens inside the same exclusive critical section
// that persists the increment, so concurrent validations cannot observe a
// stale count.
func (s *Service) ValidateAPIKey(ctx context.Context, candidate string) (*domain.APIKeyRecord, error) {
	match, found, err := s.store.FindAPIKey(func(record *domain.APIKeyRecord) bool {
		return s.keys.Verify(candidate, record)
	})
	if err != nil {
		s.countValidation(metrics.OutcomeError)
		return nil, err
	}
	if !found {
		s.countValidation(metrics.OutcomeRejected)
		return nil, domain.ErrValidation("invalid or unknown API key")
	}

	updated, err := s.store.UpdateAPIKey(match.ID, func(record *domain.APIKeyRecord) error {
		if record.Revoked {
			return domain.ErrValidation("API key has been revoked")
		}
		if record.UsageLimit != nil && record.UsageCount >= *record.UsageLimit {
			return domain.ErrValidation("API key usage limit reached")
		}
		s.keys.MarkUse(record)
		return nil
	})
	if err != nil {
		s.countValidation(metrics.OutcomeRejected)
		return nil, err
	}

	s.countValidation(metrics.OutcomeOK)
	return &updated, nil
}

// RevokeAPIKey permanently revokes the credential.
func (s *Service) RevokeAPIKey(ctx context.Context, recordID string) (*domain.APIKeyRecord, error) {
	updated, err := s.store.UpdateAPIKey(recordID, func(record *domain.APIKeyRecord) error {
		record.Revoked = true
		now := s.clock.Now().Unix()
		record.LastUsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.KeysRevoked.Inc()
	}
	s.log.Info("api key revoked", zap.String("api_key_id", recordID))
	return &updated, nil
}

// ConfirmIntent reports the provider-side status of an intent.
func (s *Service) ConfirmIntent(ctx context.Context, provider domain.ProviderKind, intentID string) (domain.PaymentStatus, error) {
	proc, ok := s.processors.Current().Lookup(provider)
	if !ok {
		return "", domain.ErrProviderUnavailable(provider.String())
	}
	status, err := proc.ConfirmIntent(ctx, intentID)
	if err != nil {
		return "", domain.AsBillingError(err)
	}
	return status, nil
}

// ValidateWebhookSignature checks a webhook signature against the
// provider's configured secret.
func (s *Service) ValidateWebhookSignature(ctx context.Context, provider domain.ProviderKind, signature string, payload []byte) (bool, error) {
	proc, ok := s.processors.Current().Lookup(provider)
	if !ok {
		return false, domain.ErrProviderUnavailable(provider.String())
	}
	valid := proc.ValidateWebhookSignature(signature, payload)
	if s.metrics != nil {
		outcome := metrics.OutcomeOK
		if !valid {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.WebhookSignatures.WithLabelValues(provider.String(), outcome).Inc()
	}
	return valid, nil
}

// ListState returns a full snapshot copy of the billing state.
func (s *Service) ListState(ctx context.Context) (*domain.BillingState, error) {
	snapshot, err := s.store.Snapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Providers lists the provider kinds currently registered.
func (s *Service) Providers(ctx context.Context) []domain.ProviderKind {
	return s.processors.Current().Kinds()
}

func (s *Service) countCheckout(provider domain.ProviderKind, outcome string) {
	if s.metrics != nil {
		s.metrics.CheckoutsCreated.WithLabelValues(provider.String(), outcome).Inc()
	}
}

func (s *Service) countValidation(outcome string) {
	if s.metrics != nil {
		s.metrics.KeyValidations.WithLabelValues(outcome).Inc()
	}
}
