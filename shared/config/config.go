package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GatewayConfig holds all configuration values
type GatewayConfig struct {
	// Service Info
	ServiceName    string `json:"service_name"`
	ServiceVersion string `json:"service_version"`
	Environment    string `json:"environment"`

	// Blockchain
	Chain ChainConfig `json:"chain"`

	// Deployed contracts
	Contracts ContractsConfig `json:"contracts"`

	// Price oracle
	Pricing PricingConfig `json:"pricing"`

	// Asset pinning
	Pinata PinataConfig `json:"pinata"`

	// Cache
	Cache CacheConfig `json:"cache"`

	// HTTP API
	HTTP HTTPConfig `json:"http"`

	// Monitoring
	Monitoring MonitoringConfig `json:"monitoring"`
}

// ChainConfig holds the target chain settings
type ChainConfig struct {
	ChainID       int64         `json:"chain_id"`
	RPCURL        string        `json:"rpc_url"`
	RPCTimeout    time.Duration `json:"rpc_timeout"`
	ReadRateLimit float64       `json:"read_rate_limit"` // contract reads per second
	ReadRateBurst int           `json:"read_rate_burst"`
	SwitchSettle  time.Duration `json:"switch_settle"` // delay before re-checking chain after a switch
}

// ContractsConfig holds the fixed deployment addresses
type ContractsConfig struct {
	Event       string `json:"event"`
	Ticket      string `json:"ticket"`
	Marketplace string `json:"marketplace"`
}

// PricingConfig holds price oracle settings
type PricingConfig struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
	FallbackUSD     float64       `json:"fallback_usd"`
	SourceAttempts  int           `json:"source_attempts"`
	RetryDelay      time.Duration `json:"retry_delay"`
	FeedURL         string        `json:"feed_url"`
	RPCFallbackURL  string        `json:"rpc_fallback_url"`
	CacheTTL        time.Duration `json:"cache_ttl"`
}

// PinataConfig holds asset pinning settings
type PinataConfig struct {
	BaseURL    string `json:"base_url"`
	GatewayURL string `json:"gateway_url"`
	JWTKey     string `json:"-"` // Never log secrets
}

// CacheConfig holds redis settings
type CacheConfig struct {
	Enabled       bool          `json:"enabled"`
	RedisHost     string        `json:"redis_host"`
	RedisPort     int           `json:"redis_port"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
	DialTimeout   time.Duration `json:"dial_timeout"`
	TTL           time.Duration `json:"ttl"` // read-through entries (token URIs)
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Port            int           `json:"port"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	MaxUploadSize   int64         `json:"max_upload_size"`
}

// MonitoringConfig holds monitoring settings
type MonitoringConfig struct {
	SentryDSN   string  `json:"-"`
	SentryEnv   string  `json:"sentry_env"`
	SampleRate  float64 `json:"sample_rate"`
	LogLevel    string  `json:"log_level"`
	MetricsPath string  `json:"metrics_path"`
	HealthPath  string  `json:"health_path"`
}

// Reference deployment defaults (Arbitrum Sepolia)
const (
	DefaultChainID     = 421614
	DefaultRPCURL      = "https://sepolia-rollup.arbitrum.io/rpc"
	DefaultEventAddr   = "0xc880af5d5ac3ea27c26c47d132661a710c245ea5"
	DefaultTicketAddr  = "0xcbf17d67bd0ee803e68dff35fa8e675aa3abad47"
	DefaultMarketAddr  = "0x62f0be8a94f7e348f15f6f373e35ae5c34f7d40f"
	DefaultFallbackUSD = 2500
)

// LoadConfig loads configuration from environment and .env
func LoadConfig() (*GatewayConfig, error) {
	_ = godotenv.Load()

	config := &GatewayConfig{
		ServiceName:    getEnvString("SERVICE_NAME", "paxr-gateway"),
		ServiceVersion: getEnvString("SERVICE_VERSION", "unknown"),
		Environment:    getEnvString("ENVIRONMENT", "development"),

		Chain: ChainConfig{
			ChainID:       getEnvInt64("CHAIN_ID", DefaultChainID),
			RPCURL:        getEnvString("RPC_URL", DefaultRPCURL),
			RPCTimeout:    getEnvDuration("RPC_TIMEOUT", 30*time.Second),
			ReadRateLimit: getEnvFloat("READ_RATE_LIMIT", 20),
			ReadRateBurst: getEnvInt("READ_RATE_BURST", 5),
			SwitchSettle:  getEnvDuration("NETWORK_SWITCH_SETTLE", 500*time.Millisecond),
		},

		Contracts: ContractsConfig{
			Event:       getEnvString("EVENT_CONTRACT_ADDRESS", DefaultEventAddr),
			Ticket:      getEnvString("TICKET_CONTRACT_ADDRESS", DefaultTicketAddr),
			Marketplace: getEnvString("MARKETPLACE_CONTRACT_ADDRESS", DefaultMarketAddr),
		},

		Pricing: PricingConfig{
			RefreshInterval: getEnvDuration("PRICE_REFRESH_INTERVAL", 60*time.Second),
			FallbackUSD:     getEnvFloat("PRICE_FALLBACK_USD", DefaultFallbackUSD),
			SourceAttempts:  getEnvInt("PRICE_SOURCE_ATTEMPTS", 2),
			RetryDelay:      getEnvDuration("PRICE_RETRY_DELAY", 500*time.Millisecond),
			FeedURL:         getEnvString("PRICE_FEED_URL", ""),
			RPCFallbackURL:  getEnvString("PRICE_RPC_FALLBACK_URL", ""),
			CacheTTL:        getEnvDuration("PRICE_CACHE_TTL", 90*time.Second),
		},

		Pinata: PinataConfig{
			BaseURL:    getEnvString("PINATA_BASE_URL", "https://api.pinata.cloud"),
			GatewayURL: getEnvString("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),
			JWTKey:     getEnvString("PINATA_JWT", ""),
		},

		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", false),
			RedisHost:     getEnvString("REDIS_HOST", "localhost"),
			RedisPort:     getEnvInt("REDIS_PORT", 6379),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			TTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		},

		HTTP: HTTPConfig{
			Port:            getEnvInt("HTTP_PORT", 8080),
			RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadSize:   getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
		},

		Monitoring: MonitoringConfig{
			SentryDSN:   getEnvString("SENTRY_DSN", ""),
			SentryEnv:   getEnvString("SENTRY_ENVIRONMENT", "development"),
			SampleRate:  getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			LogLevel:    getEnvString("LOG_LEVEL", "info"),
			MetricsPath: getEnvString("METRICS_PATH", "/metrics"),
			HealthPath:  getEnvString("HEALTH_CHECK_PATH", "/health"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *GatewayConfig) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	for name, addr := range map[string]string{
		"EVENT_CONTRACT_ADDRESS":       c.Contracts.Event,
		"TICKET_CONTRACT_ADDRESS":      c.Contracts.Ticket,
		"MARKETPLACE_CONTRACT_ADDRESS": c.Contracts.Marketplace,
	} {
		if !IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %q", name, addr)
		}
	}
	if c.Pricing.RefreshInterval <= 0 {
		return fmt.Errorf("PRICE_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// IsHexAddress reports whether addr is a 0x-prefixed 20-byte hex address
func IsHexAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	for _, char := range addr[2:] {
		if !((char >= '0' && char <= '9') ||
			(char >= 'a' && char <= 'f') ||
			(char >= 'A' && char <= 'F')) {
			return false
		}
	}
	return true
}

// Helper functions

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
