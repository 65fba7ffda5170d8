package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quantica-hq/billing/internal/billing/credentials"
	"github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/quantica-hq/billing/internal/billing/processor"
	"github.com/quantica-hq/billing/internal/billing/store"
	"github.com/quantica-hq/billing/internal/clock"
	"github.com/quantica-hq/billing/internal/observability/metrics"
	"go.uber.org/zap"
)

// testEpoch pins every timestamp the service and key manager produce.
var testEpoch = time.Unix(1_700_000_000, 0)

func newTestService(t *testing.T, configs ...domain.ProviderConfig) (domain.Service, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "billing_state.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if len(configs) == 0 {
		configs = []domain.ProviderConfig{
			domain.EnabledProvider(domain.ProviderStripe),
			domain.EnabledProvider(domain.ProviderPaypal),
		}
	}
	source := processor.NewSource(processor.FromConfigs(configs, zap.NewNop()))

	clk := clock.NewFakeClock(testEpoch)
	svc := New(Params{
		Log:        zap.NewNop(),
		Store:      st,
		Processors: source,
		Keys:       credentials.New("", clk),
		Clock:      clk,
		Metrics:    metrics.New(),
	})
	return svc, st
}

func createCheckout(t *testing.T, svc domain.Service) *domain.PaymentIntent {
	t.Helper()
	intent, err := svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		Provider:   domain.ProviderStripe,
		AmountCent: 2500,
		Currency:   "USD",
		UserID:     "user-9",
		Tier:       domain.TierEnterprise,
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	return intent
}

func TestCreateCheckoutPersistsRecord(t *testing.T) {
	svc, st := newTestService(t)

	intent := createCheckout(t, svc)

	snapshot, err := st.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(snapshot.Payments))
	}
	record := snapshot.Payments[0]
	if record.ID != intent.ID {
		t.Fatalf("record id %s != intent id %s", record.ID, intent.ID)
	}
	if record.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", record.Status)
	}
	if record.CreatedAt != record.UpdatedAt {
		t.Fatalf("created_at %d != updated_at %d on creation", record.CreatedAt, record.UpdatedAt)
	}
	if record.CreatedAt != testEpoch.Unix() {
		t.Fatalf("created_at = %d, want %d", record.CreatedAt, testEpoch.Unix())
	}
	if record.Metadata["user_id"] != "user-9" {
		t.Fatalf("intent metadata not mirrored: %v", record.Metadata)
	}
}

func TestCreateCheckoutUnknownProvider(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		Provider:   domain.ProviderBitcoin,
		AmountCent: 100,
		Currency:   "USD",
		UserID:     "u",
		Tier:       domain.TierTrial,
	})
	if !domain.IsKind(err, domain.KindProviderUnavailable) {
		t.Fatalf("want provider_unavailable, got %v", err)
	}

	snapshot, _ := st.Snapshot()
	if len(snapshot.Payments) != 0 {
		t.Fatal("failed checkout must not produce a record")
	}
}

func TestCreateCheckoutZeroAmount(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		Provider:   domain.ProviderStripe,
		AmountCent: 0,
		Currency:   "USD",
		UserID:     "u",
		Tier:       domain.TierTrial,
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("want validation, got %v", err)
	}

	snapshot, _ := st.Snapshot()
	if len(snapshot.Payments) != 0 {
		t.Fatal("failed checkout must not produce a record")
	}
}

func TestCreateCheckoutDisabledProviderKeepsKind(t *testing.T) {
	svc, _ := newTestService(t,
		domain.ProviderConfig{Provider: domain.ProviderStripe, Enabled: false},
	)

	_, err := svc.CreateCheckout(context.Background(), domain.CheckoutRequest{
		Provider:   domain.ProviderStripe,
		AmountCent: 100,
		Currency:   "USD",
		UserID:     "u",
		Tier:       domain.TierTrial,
	})
	// The processor kind must survive the boundary, not collapse to
	// validation.
	if !domain.IsKind(err, domain.KindProviderUnavailable) {
		t.Fatalf("want provider_unavailable, got %v", err)
	}
}

func TestSettlePayment(t *testing.T) {
	svc, st := newTestService(t)
	intent := createCheckout(t, svc)

	limit := int64(100)
	issued, err := svc.SettlePayment(context.Background(), intent.ID, "ref-42", &limit)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if issued.APIKey == "" {
		t.Fatal("plaintext key must be surfaced on settlement")
	}
	if issued.Record.PaymentID != intent.ID {
		t.Fatalf("key payment_id = %s, want %s", issued.Record.PaymentID, intent.ID)
	}
	if issued.Record.UserID != "user-9" || issued.Record.Tier != domain.TierEnterprise {
		t.Fatalf("key not scoped to payment owner: %+v", issued.Record)
	}

	snapshot, _ := st.Snapshot()
	if len(snapshot.APIKeys) != 1 {
		t.Fatalf("api keys = %d, want exactly 1", len(snapshot.APIKeys))
	}
	payment := snapshot.Payments[0]
	if payment.Status != domain.StatusSucceeded {
		t.Fatalf("status = %s, want succeeded", payment.Status)
	}
	if payment.Reference == nil || *payment.Reference != "ref-42" {
		t.Fatalf("reference = %v, want ref-42", payment.Reference)
	}
	if issued.Record.CreatedAt != testEpoch.Unix() {
		t.Fatalf("key created_at = %d, want %d", issued.Record.CreatedAt, testEpoch.Unix())
	}
	if payment.Metadata[MetadataAPIKeyID] != issued.Record.ID {
		t.Fatalf("payment metadata api_key_id = %q, want %s", payment.Metadata[MetadataAPIKeyID], issued.Record.ID)
	}
}

func TestSettlePaymentNotFound(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.SettlePayment(context.Background(), "stripe_MISSING", "", nil)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}

	snapshot, _ := st.Snapshot()
	if len(snapshot.Payments) != 0 || len(snapshot.APIKeys) != 0 {
		t.Fatal("state must be unchanged after not_found")
	}
}

func TestMarkPaymentFailed(t *testing.T) {
	svc, st := newTestService(t)
	intent := createCheckout(t, svc)

	if err := svc.MarkPaymentFailed(context.Background(), intent.ID, "card declined"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	snapshot, _ := st.Snapshot()
	payment := snapshot.Payments[0]
	if payment.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", payment.Status)
	}
	if payment.Metadata[MetadataFailureReason] != "card declined" {
		t.Fatalf("failure_reason = %q", payment.Metadata[MetadataFailureReason])
	}

	if err := svc.MarkPaymentFailed(context.Background(), "nope", "x"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func settleWithLimit(t *testing.T, svc domain.Service, limit *int64) *domain.IssuedAPIKey {
	t.Helper()
	intent := createCheckout(t, svc)
	issued, err := svc.SettlePayment(context.Background(), intent.ID, "", limit)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	return issued
}

func TestValidateAPIKey(t *testing.T) {
	svc, _ := newTestService(t)
	issued := settleWithLimit(t, svc, nil)

	record, err := svc.ValidateAPIKey(context.Background(), issued.APIKey)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if record.UsageCount != 1 {
		t.Fatalf("usage count = %d, want 1", record.UsageCount)
	}
	if record.LastUsedAt == nil {
		t.Fatal("last_used_at not stamped")
	}

	if _, err := svc.ValidateAPIKey(context.Background(), "QNT-DEADBEEF"); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("unknown key: want validation, got %v", err)
	}
}

func TestValidateAPIKeyUsageLimit(t *testing.T) {
	svc, _ := newTestService(t)
	limit := int64(3)
	issued := settleWithLimit(t, svc, &limit)

	var last *domain.APIKeyRecord
	for i := int64(0); i < limit; i++ {
		record, err := svc.ValidateAPIKey(context.Background(), issued.APIKey)
		if err != nil {
			t.Fatalf("validation %d: %v", i+1, err)
		}
		last = record
	}
	if last.UsageCount != limit {
		t.Fatalf("usage count = %d, want %d", last.UsageCount, limit)
	}

	_, err := svc.ValidateAPIKey(context.Background(), issued.APIKey)
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("over-limit validation: want validation, got %v", err)
	}

	state, _ := svc.ListState(context.Background())
	if got := state.APIKeys[0].UsageCount; got != limit {
		t.Fatalf("usage count advanced past limit: %d", got)
	}
}

func TestRevokeAPIKey(t *testing.T) {
	svc, _ := newTestService(t)
	issued := settleWithLimit(t, svc, nil)

	record, err := svc.RevokeAPIKey(context.Background(), issued.Record.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !record.Revoked {
		t.Fatal("record not revoked")
	}
	if record.LastUsedAt == nil || *record.LastUsedAt != testEpoch.Unix() {
		t.Fatalf("last_used_at = %v, want %d", record.LastUsedAt, testEpoch.Unix())
	}

	if _, err := svc.ValidateAPIKey(context.Background(), issued.APIKey); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("revoked key must fail validation, got %v", err)
	}

	if _, err := svc.RevokeAPIKey(context.Background(), "key_missing"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestValidateAPIKeyConcurrent(t *testing.T) {
	svc, _ := newTestService(t)
	issued := settleWithLimit(t, svc, nil)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ValidateAPIKey(context.Background(), issued.APIKey); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent validation: %v", err)
	}

	state, err := svc.ListState(context.Background())
	if err != nil {
		t.Fatalf("list state: %v", err)
	}
	if got := state.APIKeys[0].UsageCount; got != workers {
		t.Fatalf("usage count = %d, want %d (lost updates)", got, workers)
	}
}

func TestConfirmIntentAndWebhook(t *testing.T) {
	svc, _ := newTestService(t,
		domain.ProviderConfig{Provider: domain.ProviderStripe, Enabled: true, WebhookSecret: "whsec_1"},
	)

	status, err := svc.ConfirmIntent(context.Background(), domain.ProviderStripe, "stripe_X")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if status != domain.StatusSucceeded {
		t.Fatalf("status = %s, want succeeded", status)
	}

	if _, err := svc.ConfirmIntent(context.Background(), domain.ProviderVisa, "visa_X"); !domain.IsKind(err, domain.KindProviderUnavailable) {
		t.Fatalf("unknown provider: want provider_unavailable, got %v", err)
	}

	valid, err := svc.ValidateWebhookSignature(context.Background(), domain.ProviderStripe, "whsec_1", []byte("{}"))
	if err != nil || !valid {
		t.Fatalf("signature should validate: %v valid=%v", err, valid)
	}
	valid, err = svc.ValidateWebhookSignature(context.Background(), domain.ProviderStripe, "bad", []byte("{}"))
	if err != nil || valid {
		t.Fatalf("bad signature should fail: %v valid=%v", err, valid)
	}
}
