package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/hjson/hjson-go"
)

const (
	DefaultListen            = "127.0.0.1:8000"
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10

	DefaultCircuitBreakerOpenThreshold   = 5
	DefaultCircuitBreakerHalfOpenTimeout = 30 * time.Second
	DefaultCircuitBreakerResetTimeout    = 10 * time.Second

	DefaultCORSMaxAge = 5 * time.Minute

	storeKindMemory   = "memory"
	storeKindSQLite   = "sqlite"
	storeKindPostgres = "postgres"
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen         string          `json:"listen" validate:"omitempty,hostname_port"`
	WorkerPoolSize uint            `json:"worker_pool_size"`
	FetchTimeout   duration        `json:"fetch_timeout"`
	BasicAuth      configBasicAuth `json:"basic_auth"`
	CORS           configCORS      `json:"cors"`
	Provider       configProvider  `json:"provider"`
	Store          configStore     `json:"store"`
	DNS            configDNS       `json:"dns"`
}

func (c config) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}

	return DefaultListen
}

func (c config) GetWorkerPoolSize() int {
	if c.WorkerPoolSize == 0 {
		return geolib.DefaultWorkerPoolSize
	}

	return int(c.WorkerPoolSize)
}

func (c config) GetFetchTimeout() time.Duration {
	if c.FetchTimeout.Duration == 0 {
		return geolib.DefaultFetchTimeout
	}

	return c.FetchTimeout.Duration
}

type configBasicAuth struct {
	User     string `json:"user" validate:"required_with=Password"`
	Password string `json:"password" validate:"required_with=User"`
}

func (c configBasicAuth) Enabled() bool {
	return c.User != ""
}

type configCORS struct {
	AllowedOrigins   []string `json:"allowed_origins" validate:"dive,required"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           duration `json:"max_age"`
}

func (c configCORS) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

func (c configCORS) GetMaxAge() time.Duration {
	if c.MaxAge.Duration == 0 {
		return DefaultCORSMaxAge
	}

	return c.MaxAge.Duration
}

type configProvider struct {
	Name              string   `json:"name" validate:"required,oneof=ipstack ipinfo"`
	AuthToken         string   `json:"auth_token" validate:"required_if=Name ipstack"`
	Secure            bool     `json:"secure"`
	HTTPTimeout       duration `json:"http_timeout"`
	RateLimitInterval duration `json:"rate_limit_interval"`
	RateLimitBurst    uint     `json:"rate_limit_burst"`
	MaxRetries        *uint64  `json:"max_retries"`
	BackoffInitial    duration `json:"backoff_initial"`
	BackoffMax        duration `json:"backoff_max"`

	CircuitBreaker configCircuitBreaker `json:"circuit_breaker"`
}

func (c configProvider) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func (c configProvider) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configProvider) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c configProvider) GetMaxRetries() uint64 {
	if c.MaxRetries == nil {
		return geolib.DefaultMaxRetries
	}

	return *c.MaxRetries
}

func (c configProvider) GetBackoffInitial() time.Duration {
	if c.BackoffInitial.Duration == 0 {
		return geolib.DefaultBackoffInitial
	}

	return c.BackoffInitial.Duration
}

func (c configProvider) GetBackoffMax() time.Duration {
	if c.BackoffMax.Duration == 0 {
		return geolib.DefaultBackoffMax
	}

	return c.BackoffMax.Duration
}

type configCircuitBreaker struct {
	OpenThreshold        uint32   `json:"open_threshold"`
	HalfOpenTimeout      duration `json:"half_open_timeout"`
	ResetFailuresTimeout duration `json:"reset_failures_timeout"`
}

func (c configCircuitBreaker) GetOpenThreshold() uint32 {
	if c.OpenThreshold == 0 {
		return DefaultCircuitBreakerOpenThreshold
	}

	return c.OpenThreshold
}

func (c configCircuitBreaker) GetHalfOpenTimeout() time.Duration {
	if c.HalfOpenTimeout.Duration == 0 {
		return DefaultCircuitBreakerHalfOpenTimeout
	}

	return c.HalfOpenTimeout.Duration
}

func (c configCircuitBreaker) GetResetFailuresTimeout() time.Duration {
	if c.ResetFailuresTimeout.Duration == 0 {
		return DefaultCircuitBreakerResetTimeout
	}

	return c.ResetFailuresTimeout.Duration
}

type configStore struct {
	Kind    string `json:"kind" validate:"omitempty,oneof=memory sqlite postgres"`
	DSN     string `json:"dsn" validate:"required_if=Kind sqlite,required_if=Kind postgres"`
	Migrate *bool  `json:"migrate"`
}

func (c configStore) GetKind() string {
	if c.Kind == "" {
		return storeKindMemory
	}

	return c.Kind
}

func (c configStore) GetMigrate() bool {
	return c.Migrate == nil || *c.Migrate
}

type configDNS struct {
	Server  string   `json:"server" validate:"omitempty,hostname_port"`
	Timeout duration `json:"timeout"`
}

func (c configDNS) GetTimeout() time.Duration {
	if c.Timeout.Duration == 0 {
		return geolib.DefaultDNSTimeout
	}

	return c.Timeout.Duration
}

func parseConfig(path string) (*config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	rawMap := map[string]interface{}{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &rawMap); err != nil {
			return nil, fmt.Errorf("cannot parse toml: %w", err)
		}
	default:
		if err := hjson.Unmarshal(content, &rawMap); err != nil {
			return nil, fmt.Errorf("cannot parse json: %w", err)
		}
	}

	return decodeConfig(rawMap)
}

func decodeConfig(rawMap map[string]interface{}) (*config, error) {
	conf := &config{}

	rawBytes, err := json.Marshal(rawMap)
	if err != nil {
		return nil, fmt.Errorf("cannot encode config: %w", err)
	}

	if err := json.Unmarshal(rawBytes, conf); err != nil {
		return nil, fmt.Errorf("incorrect config: %w", err)
	}

	if err := validator.New().Struct(conf); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, _, err := net.SplitHostPort(conf.GetListen()); err != nil {
		return nil, fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	return conf, nil
}
