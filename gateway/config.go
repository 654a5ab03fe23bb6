package gateway

import (
	"os"
	"time"

	"github.com/jonanatree/medipay/internal/paypal"
)

// Config is a configuration for the payment gateway application
type Config struct {
	HTTPAddr string
	// AppBaseURL is the public base URL of this service; PayPal's
	// return/cancel callback targets are built from it.
	AppBaseURL string
	PayPal     PayPalConfig
}

type PayPalConfig struct {
	ClientID string
	Secret   string
	// APIBase is the PayPal REST endpoint (sandbox unless overridden).
	APIBase string
	// Timeout bounds every outbound PayPal call. A hung provider call must
	// never hold a request open indefinitely.
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:   "localhost:5000",
		AppBaseURL: "http://localhost:5000",
		PayPal: PayPalConfig{
			APIBase: paypal.SandboxAPIBase,
			Timeout: 10 * time.Second,
		},
	}
}

// ConfigFromEnv builds the config from the environment on top of defaults.
// PORT takes effect only when HTTP_ADDR is not set.
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		config.HTTPAddr = ":" + port
	}
	config.HTTPAddr = getenv("HTTP_ADDR", config.HTTPAddr)
	config.AppBaseURL = getenv("APP_BASE_URL", config.AppBaseURL)

	config.PayPal.ClientID = os.Getenv("PAYPAL_CLIENT_ID")
	config.PayPal.Secret = os.Getenv("PAYPAL_SECRET")
	config.PayPal.APIBase = getenv("PAYPAL_API_BASE", config.PayPal.APIBase)
	if v := os.Getenv("PAYPAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.PayPal.Timeout = d
		}
	}

	return config
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
