package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Network   NetworkConfig   `yaml:"network"`
	Contracts ContractsConfig `yaml:"contracts"`
	Offchain  OffchainConfig  `yaml:"offchain"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`

	// privateKey comes only from the environment, never from YAML.
	privateKey string
}

// NetworkConfig identifies the chain the protocol is deployed on.
type NetworkConfig struct {
	ChainID int64  `yaml:"chain_id"`
	RPCURL  string `yaml:"rpc_url"`
}

// ContractsConfig holds the protocol deployment addresses as hex strings.
type ContractsConfig struct {
	Token           string `yaml:"token"`
	Registry        string `yaml:"registry"`
	BurnDividend    string `yaml:"burn_dividend"`
	LossDividend    string `yaml:"loss_dividend"`
	NFTDividend     string `yaml:"nft_dividend"`
	NFTSubscription string `yaml:"nft_subscription"`
	Pool            string `yaml:"pool"` // optional; discovered on-chain when empty
}

// OffchainConfig points at the optional indexer. An empty base URL
// disables the integration entirely.
type OffchainConfig struct {
	StatusBase string `yaml:"status_base"`
}

// RefreshConfig controls the polling loop.
type RefreshConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// StorageConfig controls where the history log is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config and the .env file if present. Environment
// variables override YAML for the keys they cover.
func Load(path string) (*Config, error) {
	// load .env if present (missing file is not an error)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RefreshInterval returns the polling interval as a time.Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// PrivateKey returns the signing key loaded from the environment. Empty
// means read-only mode.
func (c *Config) PrivateKey() string { return c.privateKey }

// applyEnvOverrides overrides values from environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BURNDECK_PRIVATE_KEY"); v != "" {
		cfg.privateKey = v
	}
	if v := os.Getenv("BURNDECK_RPC_URL"); v != "" {
		cfg.Network.RPCURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults fills in required values that were left empty.
func setDefaults(cfg *Config) {
	if cfg.Network.ChainID == 0 {
		cfg.Network.ChainID = 56 // BNB Smart Chain mainnet
	}
	if cfg.Network.RPCURL == "" {
		cfg.Network.RPCURL = "https://bsc-dataseed.binance.org"
	}
	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 15
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "burndeck.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rejects configs that cannot possibly work: the six protocol
// addresses are required, the pool is not.
func validate(cfg *Config) error {
	required := map[string]string{
		"contracts.token":            cfg.Contracts.Token,
		"contracts.registry":         cfg.Contracts.Registry,
		"contracts.burn_dividend":    cfg.Contracts.BurnDividend,
		"contracts.loss_dividend":    cfg.Contracts.LossDividend,
		"contracts.nft_dividend":     cfg.Contracts.NFTDividend,
		"contracts.nft_subscription": cfg.Contracts.NFTSubscription,
	}
	for key, hex := range required {
		if hex == "" {
			return fmt.Errorf("config.Load: %s is required", key)
		}
		if !common.IsHexAddress(hex) {
			return fmt.Errorf("config.Load: %s: %q is not a hex address", key, hex)
		}
	}
	if cfg.Contracts.Pool != "" && !common.IsHexAddress(cfg.Contracts.Pool) {
		return fmt.Errorf("config.Load: contracts.pool: %q is not a hex address", cfg.Contracts.Pool)
	}
	return nil
}
