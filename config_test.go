package authkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidatesWithBaseURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.BaseURL = "https://api.cleardrive.lk/api/v1"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "cleardrive_rt", cfg.Credentials.CookieName)
	assert.Equal(t, 6, cfg.OTP.Digits)
	assert.Equal(t, 30*time.Second, cfg.OTP.ResendCooldown)
	assert.Equal(t, 30*24*time.Hour, cfg.Credentials.CookieMaxAge)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaultConfig()
		cfg.API.BaseURL = "https://api.cleardrive.lk/api/v1"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api/v1" }},
		{"missing cookie name", func(c *Config) { c.Credentials.CookieName = "" }},
		{"non-positive cookie max age", func(c *Config) { c.Credentials.CookieMaxAge = 0 }},
		{"too few otp digits", func(c *Config) { c.OTP.Digits = 3 }},
		{"too many otp digits", func(c *Config) { c.OTP.Digits = 11 }},
		{"negative resend cooldown", func(c *Config) { c.OTP.ResendCooldown = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
