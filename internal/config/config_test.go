package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tengw/scenarios"
	"tengw/shared"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"GATEWAY_ENV", "GATEWAY_URL", "GATEWAY_CHAIN_ID", "GATEWAY_PRIVATE_KEY", "GATEWAY_HTTP_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "SCENARIO_CONFIG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sepolia", cfg.Env)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.PrivateKey)

	n, err := cfg.Network()
	require.NoError(t, err)
	assert.Equal(t, shared.Sepolia, n)

	_, err = cfg.RequirePrivateKey()
	assert.True(t, errors.Is(err, ErrNoPrivateKey))
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("GATEWAY_ENV", "local")
	t.Setenv("GATEWAY_URL", "http://10.0.0.5:3000/v1/")
	t.Setenv("GATEWAY_CHAIN_ID", "1337")
	t.Setenv("GATEWAY_PRIVATE_KEY", "0xabc")
	t.Setenv("GATEWAY_HTTP_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "json", cfg.LogFormat)

	key, err := cfg.RequirePrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "0xabc", key)

	n, err := cfg.Network()
	require.NoError(t, err)
	assert.Equal(t, "local", n.Name)
	assert.Equal(t, "http://10.0.0.5:3000/v1", n.URL)
	assert.Equal(t, int64(1337), n.ChainID)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("GATEWAY_HTTP_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestNetwork_Errors(t *testing.T) {
	_, err := Config{Env: "mainnet"}.Network()
	assert.ErrorContains(t, err, "unknown network")

	_, err = Config{Env: "local", URL: "ftp://example.com"}.Network()
	assert.Error(t, err)
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, scenarios.DefaultSettings(), s)
}

func TestLoadSettings_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
funds_timeout: 2m
mining_wait: 1s
stress_users: 10
return_address: "0x00000000000000000000000000000000000000aa"
`), 0o600))
	t.Setenv("SCENARIO_STRESS_USERS", "3")
	t.Setenv("SCENARIO_JOIN_WORKERS", "7")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, s.FundsTimeout)
	assert.Equal(t, time.Second, s.MiningWait)
	assert.Equal(t, 3, s.StressUsers, "env overrides the file")
	assert.Equal(t, 7, s.JoinWorkers)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", s.ReturnAddress)
	assert.Equal(t, 5*time.Second, s.FundsInterval, "unset fields keep defaults")
}

func TestLoadSettings_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read scenario config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("funds_timeout: [1, 2]\n"), 0o600))
	_, err = LoadSettings(bad)
	assert.ErrorContains(t, err, "parse scenario config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("stress_users: 0\n"), 0o600))
	_, err = LoadSettings(invalid)
	assert.ErrorContains(t, err, "stress_users")
}
