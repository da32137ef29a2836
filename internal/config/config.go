package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Ledger
	Web3ProviderURI      string
	SmartContractAddress string
	ContractABIPath      string
	GasLimit             uint64
	ReceiptPollInterval  time.Duration
	LedgerTimeout        time.Duration

	// Pinata
	PinataAPIKey       string
	PinataSecretAPIKey string
	PinataBaseURL      string
	PinningTimeout     time.Duration
	IPFSGatewayURL     string

	// Certificate assets
	AssetsDir    string
	FetchTimeout time.Duration

	// Supabase (optional)
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseStorageBucket  string

	// Database (optional)
	DatabaseURL string

	// Server
	OperatorJWTSecret string
	Port              string
	ShutdownTimeout   time.Duration
	Environment       string
	LogLevel          string
	LogFormat         string
}

// Load reads an optional .env file and then the process environment. A
// malformed number or duration is an error. Required settings are left to
// Validate so commands that only render can run without ledger or pinning
// credentials.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	getEnvUint := func(key string, defaultValue uint64) uint64 {
		n, err := parseEnvUint(key, defaultValue)
		errs = append(errs, err)
		return n
	}
	getEnvDuration := func(key string, defaultValue time.Duration) time.Duration {
		d, err := parseEnvDuration(key, defaultValue)
		errs = append(errs, err)
		return d
	}

	cfg := &Config{
		Web3ProviderURI:      getEnv("WEB3_PROVIDER_URI", "http://127.0.0.1:7545"),
		SmartContractAddress: getEnv("SMART_CONTRACT_ADDRESS", ""),
		ContractABIPath:      getEnv("CONTRACT_ABI_PATH", "./contracts/compiled/bootcampcertificate_abi.json"),
		GasLimit:             getEnvUint("GAS_LIMIT", 1000000),
		ReceiptPollInterval:  getEnvDuration("RECEIPT_POLL_INTERVAL", time.Second),
		LedgerTimeout:        getEnvDuration("LEDGER_TIMEOUT", 2*time.Minute),

		PinataAPIKey:       getEnv("PINATA_API_KEY", ""),
		PinataSecretAPIKey: getEnv("PINATA_SECRET_API_KEY", ""),
		PinataBaseURL:      getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
		PinningTimeout:     getEnvDuration("PINNING_TIMEOUT", 60*time.Second),
		IPFSGatewayURL:     getEnv("IPFS_GATEWAY_URL", "https://ipfs.io/ipfs/"),

		AssetsDir:    getEnv("ASSETS_DIR", "./assets"),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "certificate-previews"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OperatorJWTSecret: getEnv("OPERATOR_JWT_SECRET", ""),
		Port:              getEnv("PORT", "8080"),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Minute),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the mint pipeline needs to reach the ledger
// node and Pinata.
func (c *Config) Validate() error {
	if c.Web3ProviderURI == "" {
		return fmt.Errorf("WEB3_PROVIDER_URI is required")
	}
	if c.SmartContractAddress == "" {
		return fmt.Errorf("SMART_CONTRACT_ADDRESS is required")
	}
	if c.ContractABIPath == "" {
		return fmt.Errorf("CONTRACT_ABI_PATH is required")
	}
	if c.PinataAPIKey == "" || c.PinataSecretAPIKey == "" {
		return fmt.Errorf("PINATA_API_KEY and PINATA_SECRET_API_KEY are required")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("GAS_LIMIT must be positive")
	}
	if c.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.OperatorJWTSecret == "" {
		return fmt.Errorf("OPERATOR_JWT_SECRET is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// SupabaseEnabled reports whether preview storage and mint events are configured.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseEnvUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
	}
	return n, nil
}

func parseEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a duration such as 30s, got %q", key, value)
	}
	return d, nil
}
