package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boxcart/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"APP_ENV":               "",
		"PORT":                  "",
		"REDIS_URL":             "",
		"BASKET_KEY":            "",
		"BASKET_TTL":            "",
		"SUBSCRIPTION_DISCOUNT": "",
		"SUBSCRIPTION_LEAD":     "",
		"BUNDLE_ID_STRATEGY":    "",
		"CORS_ALLOWED_ORIGINS":  "",
		"MAX_BODY_BYTES":        "",
		"RATE_LIMIT_MAX":        "",
		"OBS_ENABLE_TRACING":    "",
		"BREAKER_MIN_REQUESTS":  "",
		"BREAKER_OPEN_FOR":      "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.False(t, cfg.UsesRedis())
	require.Equal(t, "basket", cfg.BasketKey)
	require.Equal(t, 720*time.Hour, cfg.BasketTTL)
	require.Equal(t, 2*time.Second, cfg.BasketLockTTL)
	require.Equal(t, "0.1", cfg.SubscriptionDiscount.String())
	require.Equal(t, 7*24*time.Hour, cfg.SubscriptionLead)
	require.Equal(t, "time", cfg.BundleIDStrategy)
	require.Equal(t, int64(65536), cfg.MaxBodyBytes)
	require.Equal(t, 120, cfg.RateLimitMax)
	require.Equal(t, 5, cfg.BreakerMinRequests)
	require.Equal(t, 0.5, cfg.BreakerFailureRatio)
	require.Equal(t, 5*time.Second, cfg.BreakerOpenFor)
	require.Equal(t, "boxcart", cfg.Obs.MetricsNamespace)
	require.True(t, cfg.Obs.EnablePrometheus)
	require.False(t, cfg.Obs.EnableTracing)
	require.Nil(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["REDIS_URL"] = "redis://localhost:6379/1"
	env["BASKET_TTL"] = "not-a-duration"
	env["SUBSCRIPTION_DISCOUNT"] = "0.15"
	env["BUNDLE_ID_STRATEGY"] = "UUID"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, ,https://admin.example"
	env["MAX_BODY_BYTES"] = "-4"
	env["BREAKER_MIN_REQUESTS"] = "10"
	env["BREAKER_OPEN_FOR"] = "30s"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.True(t, cfg.UsesRedis())
	require.Equal(t, 720*time.Hour, cfg.BasketTTL)
	require.Equal(t, "0.15", cfg.SubscriptionDiscount.String())
	require.Equal(t, "uuid", cfg.BundleIDStrategy)
	require.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, int64(65536), cfg.MaxBodyBytes)
	require.Equal(t, 10, cfg.BreakerMinRequests)
	require.Equal(t, 30*time.Second, cfg.BreakerOpenFor)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, discount := range []string{"1", "1.5", "-0.1", "ten"} {
		env := baseEnv()
		env["SUBSCRIPTION_DISCOUNT"] = discount
		_, err := config.LoadForTests(env)
		require.Error(t, err, discount)
	}

	env := baseEnv()
	env["BUNDLE_ID_STRATEGY"] = "sequential"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "BUNDLE_ID_STRATEGY")
}
