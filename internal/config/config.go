package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	LogFormat   string

	ListenAddr string

	// StorePath is the billing state file.
	StorePath string

	// KeyPrefix tags issued API keys.
	KeyPrefix string

	// ProvidersFile is the optional provider-config YAML; defaults apply
	// when it is absent.
	ProvidersFile string
}

// Load loads configuration from environment variables and an optional .env
// file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:       getenv("APP_SERVICE", "billingd"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogFormat:     getenv("LOG_FORMAT", "json"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		StorePath:     getenv("BILLING_STORE_PATH", ".quantica/billing_state.json"),
		KeyPrefix:     getenv("BILLING_KEY_PREFIX", "QNT"),
		ProvidersFile: getenv("BILLING_PROVIDERS_FILE", ""),
	}
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
