package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 60, cfg.ProviderRateLimit.RequestsPerMinute)
}

func TestResolvedDBPath_PrefersWFDBPath(t *testing.T) {
	t.Setenv("WF_DB_PATH", "/data/wf.db")
	t.Setenv("DATABASE_URL", "postgres://ignored")
	t.Setenv("DATABASE_PATH", "./ignored.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/wf.db", cfg.ResolvedDBPath())
}

func TestResolvedDBPath_FallsBackToDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:remote.db")
	t.Setenv("DATABASE_PATH", "./ignored.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file:remote.db", cfg.ResolvedDBPath())
}

func TestResolvedDBPath_FallsBackToDatabasePath(t *testing.T) {
	t.Setenv("DATABASE_PATH", "./local.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./local.db", cfg.ResolvedDBPath())
}

func TestValidate_RejectsNon3LetterBaseCurrency(t *testing.T) {
	t.Setenv("BASE_CURRENCY", "US")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE_CURRENCY")
}

func TestValidate_RejectsUnknownLogFormat(t *testing.T) {
	t.Setenv("WF_LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WF_LOG_FORMAT")
}
