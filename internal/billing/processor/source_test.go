package processor

import (
	"testing"

	"github.com/quantica-hq/billing/internal/billing/domain"
	"go.uber.org/zap"
)

func TestSourceSwapReplacesRegistry(t *testing.T) {
	source := NewSource(FromConfigs([]domain.ProviderConfig{
		domain.EnabledProvider(domain.ProviderStripe),
	}, zap.NewNop()))

	before := source.Current()
	if _, ok := before.Lookup(domain.ProviderStripe); !ok {
		t.Fatal("stripe must resolve before the swap")
	}

	source.Swap(FromConfigs([]domain.ProviderConfig{
		domain.EnabledProvider(domain.ProviderPaypal),
	}, zap.NewNop()))

	if _, ok := source.Current().Lookup(domain.ProviderStripe); ok {
		t.Fatal("stripe must not resolve after the swap")
	}
	if _, ok := source.Current().Lookup(domain.ProviderPaypal); !ok {
		t.Fatal("paypal must resolve after the swap")
	}

	// A registry held across the swap keeps serving its own set.
	if _, ok := before.Lookup(domain.ProviderStripe); !ok {
		t.Fatal("pre-swap registry must be unaffected")
	}
}
