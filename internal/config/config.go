// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	PriceFeed PriceFeedConfig `mapstructure:"price_feed"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WalletConfig holds the signing account credential. The private key is only
// ever read here and in the transaction signer; it must never appear in logs
// or persisted records.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	Address    string `mapstructure:"address"`
}

// AddressHex returns the expected account address as common.Address.
func (c *WalletConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// ExecutorConfig holds execution engine tunables.
type ExecutorConfig struct {
	ContractAddress  string        `mapstructure:"contract_address"`
	MinProfitUSD     float64       `mapstructure:"min_profit_usd"`
	MinSpreadPct     float64       `mapstructure:"min_spread_pct"`
	MaxTradeSizeUSD  float64       `mapstructure:"max_trade_size_usd"`
	MaxGasPriceGwei  float64       `mapstructure:"max_gas_price_gwei"`
	DefaultGasLimit  uint64        `mapstructure:"default_gas_limit"`
	ConfirmTimeout   time.Duration `mapstructure:"confirm_timeout"`
	ReceiptPollEvery time.Duration `mapstructure:"receipt_poll_every"`
	RetryCap         int           `mapstructure:"retry_cap"`
	HistoryCap       int           `mapstructure:"history_cap"`
	HistoryDB        string        `mapstructure:"history_db"`
	AllowedTokens    []string      `mapstructure:"allowed_tokens"`
	AllowedVenues    []string      `mapstructure:"allowed_venues"`
}

// ContractAddressHex returns the executor contract address as common.Address.
func (c *ExecutorConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// MinProfitUSDDecimal returns the minimum profit threshold as decimal.Decimal.
func (c *ExecutorConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// MinSpreadPctDecimal returns the minimum live spread as decimal.Decimal.
func (c *ExecutorConfig) MinSpreadPctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpreadPct)
}

// MaxGasPriceWei returns the gas price ceiling in wei.
func (c *ExecutorConfig) MaxGasPriceWei() *big.Int {
	gwei := decimal.NewFromFloat(c.MaxGasPriceGwei)
	wei := gwei.Mul(decimal.New(1, 9)) // 1 gwei = 1e9 wei
	return wei.BigInt()
}

// MaxTradeSizeUSDDecimal returns the trade size ceiling as decimal.Decimal.
func (c *ExecutorConfig) MaxTradeSizeUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeSizeUSD)
}

// VenuesConfig holds DEX router addresses keyed by venue id.
type VenuesConfig struct {
	Routers map[string]string `mapstructure:"routers"`
}

// PriceFeedConfig holds spot price feed configuration.
type PriceFeedConfig struct {
	WebSocketURL string        `mapstructure:"websocket_url"`
	RESTURL      string        `mapstructure:"rest_url"`
	Symbols      []string      `mapstructure:"symbols"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Wallet - the key is never accepted from the config file, only env
	v.BindEnv("wallet.private_key", "ARB_WALLET_PRIVATE_KEY", "WALLET_PRIVATE_KEY")
	v.BindEnv("wallet.address", "ARB_WALLET_ADDRESS", "WALLET_ADDRESS")

	// Executor
	v.BindEnv("executor.contract_address", "ARB_EXECUTOR_CONTRACT", "EXECUTOR_CONTRACT")
	v.BindEnv("executor.min_profit_usd", "ARB_MIN_PROFIT_USD")
	v.BindEnv("executor.max_gas_price_gwei", "ARB_MAX_GAS_PRICE_GWEI")
	v.BindEnv("executor.history_db", "ARB_HISTORY_DB")

	// Price feed
	v.BindEnv("price_feed.websocket_url", "ARB_PRICE_FEED_WS_URL")
	v.BindEnv("price_feed.rest_url", "ARB_PRICE_FEED_REST_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.request_timeout", "15s")

	// Executor defaults
	v.SetDefault("executor.min_profit_usd", 10)
	v.SetDefault("executor.min_spread_pct", 0.5)
	v.SetDefault("executor.max_trade_size_usd", 50000)
	v.SetDefault("executor.max_gas_price_gwei", 300)
	v.SetDefault("executor.default_gas_limit", 600000)
	v.SetDefault("executor.confirm_timeout", "180s")
	v.SetDefault("executor.receipt_poll_every", "2s")
	v.SetDefault("executor.retry_cap", 1)
	v.SetDefault("executor.history_cap", 1000)
	v.SetDefault("executor.allowed_tokens", []string{"WETH", "USDC", "USDT", "DAI", "WBTC"})
	v.SetDefault("executor.allowed_venues", []string{"uniswap-v3", "sushiswap-v3"})

	// Venue routers (Ethereum mainnet)
	v.SetDefault("venues.routers", map[string]string{
		"uniswap-v3":   "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
		"sushiswap-v3": "0x2E6cd2d30aa43f40aa81619ff4b6E0a41479B13F",
	})

	// Price feed defaults
	v.SetDefault("price_feed.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("price_feed.rest_url", "https://api.binance.com")
	v.SetDefault("price_feed.symbols", []string{"ETHUSDC", "BTCUSDC"})
	v.SetDefault("price_feed.cache_ttl", "5s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required")
	}
	if !common.IsHexAddress(c.Executor.ContractAddress) {
		return fmt.Errorf("invalid executor.contract_address: %s", c.Executor.ContractAddress)
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("invalid wallet.address: %s", c.Wallet.Address)
	}
	for id, router := range c.Venues.Routers {
		if !common.IsHexAddress(router) {
			return fmt.Errorf("invalid venues.routers[%s]: %s", id, router)
		}
	}
	if c.Executor.RetryCap < 0 {
		return fmt.Errorf("executor.retry_cap must be >= 0")
	}
	if c.Executor.HistoryCap <= 0 {
		return fmt.Errorf("executor.history_cap must be > 0")
	}
	return nil
}
