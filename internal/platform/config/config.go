package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Registrar modes.
const (
	RegistrarModeHTTP   = "http"
	RegistrarModeMemory = "memory"
)

const (
	DefaultParentDomain  = "deptofagri.eth"
	DefaultHubURL        = "https://hub-api.neynar.com"
	DefaultLedgerAPIURL  = "https://api.etherscan.io/v2/api"
	DefaultLedgerChainID = 8453
	// Base USDC
	DefaultTokenContract = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

	minFanOut   = 1
	maxFanOut   = 32
	minPageSize = 1
	maxPageSize = 1000
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Redis       RedisConfig
	Registrar   RegistrarConfig
	Proof       ProofConfig
	Ledger      LedgerConfig
	Leaderboard LeaderboardConfig
	Cache       CacheConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	RequestTimeout time.Duration
}

// RedisConfig configures the optional invalidation bus. An empty URL
// disables it.
type RedisConfig struct {
	URL          string
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type RegistrarConfig struct {
	Mode             string
	BaseURL          string
	APIKey           string
	ParentDomain     string
	Timeout          time.Duration
	ListPageSize     int
	OwnerSearchLimit int
}

type ProofConfig struct {
	HubURL  string
	APIKey  string
	Timeout time.Duration
}

type LedgerConfig struct {
	APIURL        string
	APIKey        string
	ChainID       int
	TokenContract string
	Timeout       time.Duration
	FanOut        int
}

type LeaderboardConfig struct {
	Cap      decimal.Decimal
	MaxLimit int
}

type CacheConfig struct {
	RefreshInterval     time.Duration
	InvalidationTimeout time.Duration
}

// FromEnv builds the Config from environment variables so main stays lean.
// Unparsable numeric values fall back to defaults; Validate catches the rest.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           env("TAPDAY_ADDR", ":8080"),
			LogLevel:       env("LOG_LEVEL", "info"),
			RequestTimeout: parseDurEnv("REQUEST_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          env("REDIS_URL", ""),
			Channel:      env("REDIS_INVALIDATION_CHANNEL", "tapday:identity-cache:invalidate"),
			PoolSize:     parseIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: parseIntEnv("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  parseDurEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  parseDurEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: parseDurEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Registrar: RegistrarConfig{
			Mode:             strings.ToLower(env("REGISTRAR_MODE", RegistrarModeHTTP)),
			BaseURL:          strings.TrimRight(env("NAMESPACE_API_URL", "https://offchain-manager.namespace.ninja"), "/"),
			APIKey:           env("NAMESPACE_API_KEY", ""),
			ParentDomain:     env("PARENT_DOMAIN", DefaultParentDomain),
			Timeout:          parseDurEnv("NAMESPACE_TIMEOUT", 10*time.Second),
			ListPageSize:     clampInt(parseIntEnv("NAMESPACE_LIST_PAGE_SIZE", maxPageSize), minPageSize, maxPageSize),
			OwnerSearchLimit: clampInt(parseIntEnv("NAMESPACE_OWNER_SEARCH_LIMIT", 1), 1, 50),
		},
		Proof: ProofConfig{
			HubURL:  strings.TrimRight(env("NEYNAR_HUB_URL", DefaultHubURL), "/"),
			APIKey:  env("NEYNAR_API_KEY", ""),
			Timeout: parseDurEnv("NEYNAR_TIMEOUT", 5*time.Second),
		},
		Ledger: LedgerConfig{
			APIURL:        env("LEDGER_API_URL", DefaultLedgerAPIURL),
			APIKey:        env("BASESCAN_API_KEY", ""),
			ChainID:       parseIntEnv("LEDGER_CHAIN_ID", DefaultLedgerChainID),
			TokenContract: env("TOKEN_CONTRACT", DefaultTokenContract),
			Timeout:       parseDurEnv("LEDGER_TIMEOUT", 30*time.Second),
			FanOut:        clampInt(parseIntEnv("LEDGER_FAN_OUT", 4), minFanOut, maxFanOut),
		},
		Leaderboard: LeaderboardConfig{
			Cap:      parseDecimalEnv("LEADERBOARD_CAP", decimal.NewFromInt(1000)),
			MaxLimit: parseIntEnv("LEADERBOARD_MAX_LIMIT", 500),
		},
		Cache: CacheConfig{
			RefreshInterval:     parseDurEnv("IDENTITY_CACHE_REFRESH", 5*time.Minute),
			InvalidationTimeout: parseDurEnv("IDENTITY_CACHE_INVALIDATION_TIMEOUT", 5*time.Second),
		},
	}
}

// Validate rejects configurations the process cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	switch c.Registrar.Mode {
	case RegistrarModeMemory:
	case RegistrarModeHTTP:
		if c.Registrar.BaseURL == "" {
			errs = append(errs, errors.New("NAMESPACE_API_URL is required in http registrar mode"))
		} else if _, err := url.ParseRequestURI(c.Registrar.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("NAMESPACE_API_URL: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRAR_MODE %q", c.Registrar.Mode))
	}
	if c.Registrar.ParentDomain == "" {
		errs = append(errs, errors.New("PARENT_DOMAIN is required"))
	}
	if c.Ledger.ChainID <= 0 {
		errs = append(errs, errors.New("LEDGER_CHAIN_ID must be positive"))
	}
	if c.Cache.RefreshInterval <= 0 {
		errs = append(errs, errors.New("IDENTITY_CACHE_REFRESH must be positive"))
	}
	if c.Leaderboard.Cap.IsNegative() {
		errs = append(errs, errors.New("LEADERBOARD_CAP must not be negative"))
	}
	return errors.Join(errs...)
}

// RedactURL hides credentials in URLs before they are logged.
func RedactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if name := u.User.Username(); name != "" {
		u.User = url.UserPassword(name, "***")
	} else {
		u.User = url.User("***")
	}
	return u.String()
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return i
	}
	return def
}

func parseDurEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		return d
	}
	return def
}

func parseDecimalEnv(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
		return d
	}
	return def
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
