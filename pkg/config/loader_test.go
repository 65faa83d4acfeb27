package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/config"
)

type lockoutConfig struct {
	MaxAttempts int           `env:"TEST_CFG_MAX_ATTEMPTS" envDefault:"5"`
	Duration    time.Duration `env:"TEST_CFG_LOCK_DURATION" envDefault:"30m"`
}

type channelConfig struct {
	TTL time.Duration `env:"TEST_CFG_CHANNEL_TTL" envDefault:"5m"`
}

type requiredConfig struct {
	Key string `env:"TEST_CFG_REQUIRED_KEY,required"`
}

type envFileConfig struct {
	Issuer string `env:"TEST_CFG_ISSUER"`
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("TEST_CFG_MAX_ATTEMPTS", "7")

	var cfg lockoutConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 7, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Duration)
}

func TestLoad_CachedPerType(t *testing.T) {
	t.Setenv("TEST_CFG_CHANNEL_TTL", "2m")

	var first channelConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, 2*time.Minute, first.TTL)

	t.Setenv("TEST_CFG_CHANNEL_TTL", "9m")

	var second channelConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, 2*time.Minute, second.TTL, "second load should come from cache")
}

func TestLoad_RequiredMissing(t *testing.T) {
	os.Unsetenv("TEST_CFG_REQUIRED_KEY")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("TEST_CFG_REQUIRED_KEY", "present")
	require.NoError(t, config.Load(&cfg), "failed parses must not be cached")
	assert.Equal(t, "present", cfg.Key)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *lockoutConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("TEST_CFG_REQUIRED_KEY")
	config.ResetCache()

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	os.Unsetenv("TEST_CFG_ISSUER")
	t.Cleanup(func() { os.Unsetenv("TEST_CFG_ISSUER") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_ISSUER=Acme\n"), 0o600))

	require.NoError(t, config.LoadEnv(path))

	var cfg envFileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "Acme", cfg.Issuer)

	assert.ErrorIs(t, config.LoadEnv(filepath.Join(t.TempDir(), "missing.env")), config.ErrLoadingEnvFile)
}
