// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PublicBaseURL  string        `yaml:"public_base_url"` // used to build provider redirect/callback URLs
	TrustedProxies []string      `yaml:"trusted_proxies"` // peers allowed to set X-Forwarded-For; empty trusts none
}

type LogConfig struct {
	Level      string `yaml:"level"`    // trace|debug|info|warn|error
	Format     string `yaml:"format"`   // json|console
	Sampling   bool   `yaml:"sampling"` // enable sampling in prod
	File       string `yaml:"file"`     // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // plan cache ttl
}

type FlutterwaveConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	SecretKey  string        `yaml:"secret_key"`
	SecretHash string        `yaml:"secret_hash"` // compared with the verif-hash webhook header
	Timeout    time.Duration `yaml:"timeout"`
}

type MoMoConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BaseURL         string        `yaml:"base_url"`
	SubscriptionKey string        `yaml:"subscription_key"`
	APIUser         string        `yaml:"api_user"`
	APIKey          string        `yaml:"api_key"`
	TargetEnv       string        `yaml:"target_environment"` // sandbox | mtnuganda | ...
	CallbackURL     string        `yaml:"callback_url"`
	CallbackHeader  string        `yaml:"callback_header"`
	CallbackSecret  string        `yaml:"callback_secret"`
	Timeout         time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	DefaultCurrency string            `yaml:"default_currency"`
	Flutterwave     FlutterwaveConfig `yaml:"flutterwave"`
	MoMo            MoMoConfig        `yaml:"momo"`
}

type NASConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"` // RouterOS REST root, e.g. https://10.0.0.1/rest
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Server      string        `yaml:"server"` // hotspot server tag; empty means all
	Timeout     time.Duration `yaml:"timeout"`
	InsecureTLS bool          `yaml:"insecure_tls"`
}

type RadiusConfig struct {
	Timezone string `yaml:"timezone"` // IANA zone the Expiration attribute is written in; empty means server local
}

// Location resolves Timezone. Validate has already rejected unknown zones.
func (r RadiusConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type SecurityConfig struct {
	CounterBackend   string        `yaml:"counter_backend"` // memory | redis
	RateWindow       time.Duration `yaml:"rate_window"`
	RateMaxAttempts  int64         `yaml:"rate_max_attempts"`
	FailureWindow    time.Duration `yaml:"failure_window"`
	FailureThreshold int64         `yaml:"failure_threshold"`
	LockoutDuration  time.Duration `yaml:"lockout_duration"`
}

type VoucherConfig struct {
	CodeLength int `yaml:"code_length"`
}

type ReconcilerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	AbandonAfter time.Duration `yaml:"abandon_after"`
	BatchSize    int           `yaml:"batch_size"`
}

type BindingsConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type TelegramAlertConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type AlertsConfig struct {
	Telegram TelegramAlertConfig `yaml:"telegram"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type WorkersConfig struct {
	Webhook int `yaml:"webhook"` // webhook processing goroutines
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	NAS        NASConfig        `yaml:"nas"`
	Radius     RadiusConfig     `yaml:"radius"`
	Security   SecurityConfig   `yaml:"security"`
	Voucher    VoucherConfig    `yaml:"voucher"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Bindings   BindingsConfig   `yaml:"bindings"`
	Admin      AdminConfig      `yaml:"admin"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Events     EventsConfig     `yaml:"events"`
	Workers    WorkersConfig    `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes raw YAML, applies defaults and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Payment.DefaultCurrency == "" {
		c.Payment.DefaultCurrency = "UGX"
	}
	if c.Payment.Flutterwave.BaseURL == "" {
		c.Payment.Flutterwave.BaseURL = "https://api.flutterwave.com"
	}
	c.Payment.Flutterwave.Timeout = normalizeTimeout(c.Payment.Flutterwave.Timeout)
	if c.Payment.MoMo.BaseURL == "" {
		c.Payment.MoMo.BaseURL = "https://sandbox.momodeveloper.mtn.com"
	}
	if c.Payment.MoMo.TargetEnv == "" {
		c.Payment.MoMo.TargetEnv = "sandbox"
	}
	if c.Payment.MoMo.CallbackHeader == "" {
		c.Payment.MoMo.CallbackHeader = "X-Callback-Token"
	}
	c.Payment.MoMo.Timeout = normalizeTimeout(c.Payment.MoMo.Timeout)
	c.NAS.Timeout = normalizeTimeout(c.NAS.Timeout)

	if c.Security.CounterBackend == "" {
		c.Security.CounterBackend = "memory"
	}
	if c.Security.RateWindow <= 0 {
		c.Security.RateWindow = time.Minute
	}
	if c.Security.RateMaxAttempts <= 0 {
		c.Security.RateMaxAttempts = 10
	}
	if c.Security.FailureWindow <= 0 {
		c.Security.FailureWindow = 15 * time.Minute
	}
	if c.Security.FailureThreshold <= 0 {
		c.Security.FailureThreshold = 5
	}
	if c.Security.LockoutDuration <= 0 {
		c.Security.LockoutDuration = time.Hour
	}
	if c.Voucher.CodeLength == 0 {
		c.Voucher.CodeLength = 8
	}
	if c.Reconciler.Interval <= 0 {
		c.Reconciler.Interval = time.Minute
	}
	if c.Reconciler.StaleAfter <= 0 {
		c.Reconciler.StaleAfter = 2 * time.Minute
	}
	if c.Reconciler.AbandonAfter <= 0 {
		c.Reconciler.AbandonAfter = 24 * time.Hour
	}
	if c.Reconciler.BatchSize <= 0 {
		c.Reconciler.BatchSize = 200
	}
	if c.Bindings.Interval <= 0 {
		c.Bindings.Interval = time.Minute
	}
	if c.Bindings.BatchSize <= 0 {
		c.Bindings.BatchSize = 100
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = 12 * time.Hour
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "hotspot.orders"
	}
	if c.Workers.Webhook <= 0 {
		c.Workers.Webhook = 8
	}
}

// Validate performs minimal validation.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch strings.ToLower(c.Security.CounterBackend) {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when security.counter_backend=redis")
		}
	default:
		return fmt.Errorf("security.counter_backend %q is not one of memory|redis", c.Security.CounterBackend)
	}
	if c.Voucher.CodeLength < 5 || c.Voucher.CodeLength > 12 {
		return fmt.Errorf("voucher.code_length must be within 5..12, got %d", c.Voucher.CodeLength)
	}
	if c.Payment.Flutterwave.Enabled && (c.Payment.Flutterwave.SecretKey == "" || c.Payment.Flutterwave.SecretHash == "") {
		return errors.New("payment.flutterwave requires secret_key and secret_hash")
	}
	if c.Payment.MoMo.Enabled && (c.Payment.MoMo.SubscriptionKey == "" || c.Payment.MoMo.APIUser == "" || c.Payment.MoMo.APIKey == "" || c.Payment.MoMo.CallbackSecret == "") {
		return errors.New("payment.momo requires subscription_key, api_user, api_key and callback_secret")
	}
	if c.NAS.Enabled && c.NAS.BaseURL == "" {
		return errors.New("nas.base_url is required when nas.enabled")
	}
	if c.Radius.Timezone != "" {
		if _, err := time.LoadLocation(c.Radius.Timezone); err != nil {
			return fmt.Errorf("radius.timezone: %w", err)
		}
	}
	return nil
}

// normalizeTimeout bounds outbound call timeouts; providers and the NAS are slow but not unbounded.
func normalizeTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 20 * time.Second
	}
	return d
}
