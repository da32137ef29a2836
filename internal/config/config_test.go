package config_test

import (
	"testing"
	"time"

	"bootcamp-cert-minter/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SMART_CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("PINATA_API_KEY", "key")
	t.Setenv("PINATA_SECRET_API_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:7545", cfg.Web3ProviderURI)
	assert.Equal(t, "./contracts/compiled/bootcampcertificate_abi.json", cfg.ContractABIPath)
	assert.Equal(t, uint64(1000000), cfg.GasLimit)
	assert.Equal(t, time.Second, cfg.ReceiptPollInterval)
	assert.Equal(t, "https://ipfs.io/ipfs/", cfg.IPFSGatewayURL)
	assert.Equal(t, "certificate-previews", cfg.SupabaseStorageBucket)
	assert.Equal(t, 5*time.Minute, cfg.ShutdownTimeout)
	assert.False(t, cfg.SupabaseEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GAS_LIMIT", "300000")
	t.Setenv("LEDGER_TIMEOUT", "45s")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_PUBLISHABLE_KEY", "anon")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, uint64(300000), cfg.GasLimit)
	assert.Equal(t, 45*time.Second, cfg.LedgerTimeout)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.SupabaseEnabled())
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"GAS_LIMIT", "1e6"},
		{"GAS_LIMIT", "-5"},
		{"LEDGER_TIMEOUT", "two minutes"},
		{"FETCH_TIMEOUT", "not-a-duration"},
		{"RECEIPT_POLL_INTERVAL", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RenderOnlyNeedsNoCredentials(t *testing.T) {
	t.Setenv("SMART_CONTRACT_ADDRESS", "")
	t.Setenv("PINATA_API_KEY", "")
	t.Setenv("PINATA_SECRET_API_KEY", "")
	t.Setenv("ASSETS_DIR", "/srv/minter/assets")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/minter/assets", cfg.AssetsDir)
	assert.Error(t, cfg.Validate())
}

func TestValidate_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"contract address", "SMART_CONTRACT_ADDRESS"},
		{"pinata key", "PINATA_API_KEY"},
		{"pinata secret", "PINATA_SECRET_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")

			cfg, err := config.Load()
			require.NoError(t, err)
			assert.ErrorContains(t, cfg.Validate(), tt.unset)
		})
	}
}

func TestValidate_GasLimit(t *testing.T) {
	setRequired(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	require.NoError(t, cfg.Validate())

	cfg.GasLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_LedgerTimeout(t *testing.T) {
	setRequired(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.LedgerTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "LEDGER_TIMEOUT")
}

func TestValidateServer(t *testing.T) {
	cfg := &config.Config{ShutdownTimeout: time.Minute}
	assert.Error(t, cfg.ValidateServer())

	cfg.OperatorJWTSecret = "s3cret"
	assert.NoError(t, cfg.ValidateServer())

	cfg.ShutdownTimeout = 0
	assert.ErrorContains(t, cfg.ValidateServer(), "SHUTDOWN_TIMEOUT")
}
