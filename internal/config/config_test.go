package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AIProvider)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.False(t, cfg.CartMergeOnLogin)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("CART_MERGE_ON_LOGIN", "true")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AIProvider)
	assert.True(t, cfg.CartMergeOnLogin)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestValidate(t *testing.T) {
	base := Config{
		AIProvider:       "openai",
		JWTSecret:        "a",
		JWTRefreshSecret: "b",
		AccessTokenTTL:   time.Minute,
		RefreshTokenTTL:  time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.AIProvider = "llama" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "shared secret", mutate: func(c *Config) { c.JWTRefreshSecret = "a" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.AccessTokenTTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
