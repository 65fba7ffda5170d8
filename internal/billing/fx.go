package billing

import (
	"github.com/quantica-hq/billing/internal/billing/credentials"
	"github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/quantica-hq/billing/internal/billing/processor"
	"github.com/quantica-hq/billing/internal/billing/service"
	"github.com/quantica-hq/billing/internal/billing/store"
	"github.com/quantica-hq/billing/internal/clock"
	"github.com/quantica-hq/billing/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billing",
	fx.Provide(newStore),
	fx.Provide(newKeyManager),
	fx.Provide(newProvidersHolder),
	fx.Provide(newProcessorSource),
	fx.Provide(service.New),
)

func newStore(cfg config.Config, log *zap.Logger) (*store.Store, error) {
	return store.Open(cfg.StorePath, log)
}

func newKeyManager(cfg config.Config, clk clock.Clock) *credentials.Manager {
	return credentials.New(cfg.KeyPrefix, clk)
}

func newProvidersHolder(cfg config.Config, log *zap.Logger) (*config.ProvidersHolder, error) {
	return config.NewProvidersHolder(cfg.ProvidersFile, log)
}

func newProcessorSource(holder *config.ProvidersHolder, log *zap.Logger) *processor.Source {
	source := processor.NewSource(processor.FromConfigs(holder.Get(), log))
	holder.OnReload(func(configs []domain.ProviderConfig) {
		source.Swap(processor.FromConfigs(configs, log))
	})
	return source
}
