package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "NODE_ENV", "ENV", "NEXT_PUBLIC_BASE_URL", "NEXT_PUBLIC_API_BASE_URL",
		"NEXT_PUBLIC_API_TIMEOUT", "LOG_LEVEL", "LOG_JSON", "MAX_FILE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load("3000")

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, EnvDevelopment, cfg.Server.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, DefaultBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.ProxyURL())
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	assert.False(t, cfg.Log.JSON)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("NODE_ENV", "Production")
	t.Setenv("NEXT_PUBLIC_BASE_URL", "http://backend:5001/")
	t.Setenv("NEXT_PUBLIC_API_BASE_URL", "http://web:3001")
	t.Setenv("NEXT_PUBLIC_API_TIMEOUT", "2500")
	t.Setenv("LOG_JSON", "true")

	cfg := Load("3000")

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "http://backend:5001", cfg.Upstream.BaseURL)
	assert.Equal(t, "http://web:3001", cfg.ProxyURL())
	assert.Equal(t, 2500*time.Millisecond, cfg.Client.Timeout)
	assert.True(t, cfg.Log.JSON)
}

func TestLoad_InvalidTimeoutFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a number", value: "soon"},
		{name: "zero", value: "0"},
		{name: "negative", value: "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("NEXT_PUBLIC_API_TIMEOUT", tt.value)

			cfg := Load("3000")
			assert.Equal(t, time.Duration(DefaultTimeoutMS)*time.Millisecond, cfg.Client.Timeout)
		})
	}
}

func TestLoad_EnvFallsBackToLegacyKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "test")

	cfg := Load("3000")
	assert.True(t, cfg.IsTest())
}

func TestGetEnvVar(t *testing.T) {
	t.Setenv("CV_SEARCH_TEST_KEY", "")

	_, err := GetEnvVar("CV_SEARCH_TEST_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CV_SEARCH_TEST_KEY")

	value, err := GetEnvVar("CV_SEARCH_TEST_KEY", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)

	t.Setenv("CV_SEARCH_TEST_KEY", "set")
	value, err = GetEnvVar("CV_SEARCH_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "set", value)
}
