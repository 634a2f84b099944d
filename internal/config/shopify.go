package config

import "time"

// DefaultAPIVersion is the Admin API version the app was built against.
const DefaultAPIVersion = "2025-10"

// ShopifyConfig holds the app credentials and the client policy used when
// talking to the Admin API.  APISecret doubles as the HS256 key Shopify
// signs embedded-app session tokens with.
type ShopifyConfig struct {
	APIKey            string
	APISecret         string
	APIVersion        string
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Timeout           time.Duration
	AppBlockPrefix    string
}

// LoadShopifyConfig reads the SHOPIFY_* variables.  The key and secret are
// required; the client policy falls back to the REST leaky bucket limits.
func LoadShopifyConfig() ShopifyConfig {
	cfg := ShopifyConfig{
		APIKey:            must("SHOPIFY_API_KEY"),
		APISecret:         must("SHOPIFY_API_SECRET"),
		APIVersion:        envStr("SHOPIFY_API_VERSION", DefaultAPIVersion),
		RequestsPerSecond: envFloat("SHOPIFY_REQUESTS_PER_SECOND", 2),
		Burst:             envInt("SHOPIFY_BURST", 10),
		MaxRetries:        envInt("SHOPIFY_MAX_RETRIES", 3),
		Timeout:           envDur("SHOPIFY_TIMEOUT", 15*time.Second),
		AppBlockPrefix:    envStr("SHOPIFY_APP_BLOCK_PREFIX", "shopify://apps/refine-lp-builder/blocks"),
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return cfg
}
