package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultProviderConfigs enables every known provider with no credentials,
// matching the out-of-the-box stub setup.
func DefaultProviderConfigs() []domain.ProviderConfig {
	kinds := domain.Providers()
	configs := make([]domain.ProviderConfig, 0, len(kinds))
	for _, kind := range kinds {
		configs = append(configs, domain.EnabledProvider(kind))
	}
	return configs
}

// ProvidersHolder serves the current provider configs and hot-reloads them
// from the config file.
type ProvidersHolder struct {
	current  atomic.Value // holds []domain.ProviderConfig
	onReload atomic.Value // holds func([]domain.ProviderConfig)
}

// NewProvidersHolder loads provider configs from the given YAML file, or
// defaults when the file is absent. File changes are watched and swapped in
// atomically; invalid updates are ignored.
func NewProvidersHolder(path string, log *zap.Logger) (*ProvidersHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.providers")

	holder := &ProvidersHolder{}
	holder.current.Store(DefaultProviderConfigs())

	if strings.TrimSpace(path) == "" {
		return holder, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			return holder, nil
		}
		if pathErr := (*fs.PathError)(nil); errors.As(err, &pathErr) {
			return holder, nil
		}
		return nil, err
	}

	configs, err := unmarshalProviders(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(configs)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalProviders(v)
		if err != nil {
			log.Warn("provider config reload ignored", zap.String("file", filepath.Base(e.Name)), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("provider config reloaded",
			zap.String("file", filepath.Base(e.Name)),
			zap.Int("providers", len(updated)),
		)
		if fn, ok := holder.onReload.Load().(func([]domain.ProviderConfig)); ok && fn != nil {
			fn(updated)
		}
	})

	return holder, nil
}

// Get returns the current provider configs.
func (h *ProvidersHolder) Get() []domain.ProviderConfig {
	return h.current.Load().([]domain.ProviderConfig)
}

// OnReload registers a callback invoked with each successfully reloaded
// config set.
func (h *ProvidersHolder) OnReload(fn func([]domain.ProviderConfig)) {
	h.onReload.Store(fn)
}

func unmarshalProviders(v *viper.Viper) ([]domain.ProviderConfig, error) {
	var raw struct {
		Providers []domain.ProviderConfig `mapstructure:"providers"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, err
	}
	if len(raw.Providers) == 0 {
		return DefaultProviderConfigs(), nil
	}

	configs := make([]domain.ProviderConfig, 0, len(raw.Providers))
	for _, config := range raw.Providers {
		kind, ok := domain.ParseProviderKind(config.Provider.String())
		if !ok {
			// Unknown kinds are dropped rather than failing the whole set.
			continue
		}
		config.Provider = kind
		configs = append(configs, config)
	}
	return configs, nil
}
