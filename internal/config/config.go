// Package config loads service configuration from environment variables with
// an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names a deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Ledger modes.
const (
	LedgerModeRPC    = "rpc"
	LedgerModeMemory = "memory"
)

// Defaults for the archive program deployment.
const (
	DefaultProgramID      = "DcF2QAbpQimbsa3WPqBkyw1R3QAaUECM4udchmXEb928"
	DefaultRPCEndpoint    = "https://api.devnet.solana.com"
	DefaultGatewayBaseURL = "https://gateway.pinata.cloud/ipfs/"
	DefaultPageLimit      = 1000
)

// LedgerConfig holds ledger connection settings
type LedgerConfig struct {
	Mode                string        `yaml:"mode"`
	RPCEndpoint         string        `yaml:"rpc_endpoint"`
	ProgramID           string        `yaml:"program_id"`
	Commitment          string        `yaml:"commitment"`
	PageLimit           int           `yaml:"page_limit"`
	RPCTimeout          time.Duration `yaml:"rpc_timeout"`
	ConfirmTimeout      time.Duration `yaml:"confirm_timeout"`
	ConfirmPollInterval time.Duration `yaml:"confirm_poll_interval"`
	PayerKeypairPath    string        `yaml:"payer_keypair_path"`
}

// BreakerConfig configures the circuit breaker around ledger RPC calls
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Config is the service configuration. Only LogLevel is applied on reload.
type Config struct {
	// HTTP server
	ServerAddress  string        `yaml:"server_address"`
	Environment    Environment   `yaml:"environment"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Ledger and content network
	Ledger         LedgerConfig  `yaml:"ledger"`
	Breaker        BreakerConfig `yaml:"breaker"`
	GatewayBaseURL string        `yaml:"gateway_base_url"`

	// AWS configuration, used for publish events
	AWSRegion    string `yaml:"aws_region"`
	EventBusName string `yaml:"event_bus_name"`

	// Telemetry and CORS
	EnableMetrics  bool     `yaml:"enable_metrics"`
	EnableTracing  bool     `yaml:"enable_tracing"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint"`
	EnableCORS     bool     `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// File is the YAML overlay the configuration was read from, if any.
	File string `yaml:"-"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    Development,
		RequestTimeout: 60 * time.Second,
		LogLevel:       "info",
		Ledger: LedgerConfig{
			Mode:                LedgerModeRPC,
			RPCEndpoint:         DefaultRPCEndpoint,
			ProgramID:           DefaultProgramID,
			Commitment:          "confirmed",
			PageLimit:           DefaultPageLimit,
			RPCTimeout:          30 * time.Second,
			ConfirmTimeout:      60 * time.Second,
			ConfirmPollInterval: 500 * time.Millisecond,
		},
		Breaker: BreakerConfig{
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.8,
			MinRequests:      5,
		},
		GatewayBaseURL: DefaultGatewayBaseURL,
		AWSRegion:      "us-east-1",
		EnableMetrics:  true,
		EnableCORS:     true,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if set), and environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = Environment(getEnv("ENVIRONMENT", string(c.Environment)))
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Ledger.Mode = getEnv("LEDGER_MODE", c.Ledger.Mode)
	c.Ledger.RPCEndpoint = getEnv("RPC_ENDPOINT", c.Ledger.RPCEndpoint)
	c.Ledger.ProgramID = getEnv("PROGRAM_ID", c.Ledger.ProgramID)
	c.Ledger.Commitment = getEnv("COMMITMENT", c.Ledger.Commitment)
	c.Ledger.PageLimit = getEnvInt("SIGNATURE_PAGE_LIMIT", c.Ledger.PageLimit)
	c.Ledger.RPCTimeout = getEnvDuration("RPC_TIMEOUT", c.Ledger.RPCTimeout)
	c.Ledger.ConfirmTimeout = getEnvDuration("CONFIRM_TIMEOUT", c.Ledger.ConfirmTimeout)
	c.Ledger.ConfirmPollInterval = getEnvDuration("CONFIRM_POLL_INTERVAL", c.Ledger.ConfirmPollInterval)
	c.Ledger.PayerKeypairPath = getEnv("PAYER_KEYPAIR_PATH", c.Ledger.PayerKeypairPath)

	c.Breaker.MaxRequests = uint32(getEnvInt("BREAKER_MAX_REQUESTS", int(c.Breaker.MaxRequests)))
	c.Breaker.Interval = getEnvDuration("BREAKER_INTERVAL", c.Breaker.Interval)
	c.Breaker.Timeout = getEnvDuration("BREAKER_TIMEOUT", c.Breaker.Timeout)
	c.Breaker.FailureThreshold = getEnvFloat("BREAKER_FAILURE_THRESHOLD", c.Breaker.FailureThreshold)
	c.Breaker.MinRequests = uint32(getEnvInt("BREAKER_MIN_REQUESTS", int(c.Breaker.MinRequests)))

	c.GatewayBaseURL = getEnv("GATEWAY_BASE_URL", c.GatewayBaseURL)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown ENVIRONMENT %q", c.Environment)
	}
	switch c.Ledger.Mode {
	case LedgerModeRPC:
		if c.Ledger.RPCEndpoint == "" {
			return fmt.Errorf("RPC_ENDPOINT is required in rpc ledger mode")
		}
	case LedgerModeMemory:
		if c.IsProduction() {
			return fmt.Errorf("memory ledger mode is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown LEDGER_MODE %q", c.Ledger.Mode)
	}
	if c.Ledger.ProgramID == "" {
		return fmt.Errorf("PROGRAM_ID is required")
	}
	if c.Ledger.PageLimit <= 0 || c.Ledger.PageLimit > DefaultPageLimit {
		return fmt.Errorf("SIGNATURE_PAGE_LIMIT must be between 1 and %d", DefaultPageLimit)
	}
	switch c.Ledger.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown COMMITMENT %q", c.Ledger.Commitment)
	}
	if c.GatewayBaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP_ENDPOINT is required when tracing is enabled")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// envOr returns the parsed value of the environment variable key, or def when
// it is unset or does not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvBool(key string, def bool) bool {
	return envOr(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		}
		return false, nil
	})
}

func getEnvInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

func getEnvFloat(key string, def float64) float64 {
	return envOr(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
