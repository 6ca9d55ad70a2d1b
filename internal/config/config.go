package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given
const DefaultPath = "config/config.yml"

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
	Env     string `yaml:"env"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	SessionTTL string `yaml:"session_ttl"`
}

type SessionConfig struct {
	LockTTL  string `yaml:"lock_ttl"`
	LockWait string `yaml:"lock_wait"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
	LockTTL      string `yaml:"lock_ttl"`
	LockWait     string `yaml:"lock_wait"`
}

type PhoneConfig struct {
	CountryCode    string `yaml:"country_code"`
	NationalLength int    `yaml:"national_length"`
	MinDigits      int    `yaml:"min_digits"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type BackendConfig struct {
	RetryInitial       string `yaml:"retry_initial"`
	BreakerMaxFailures uint32 `yaml:"breaker_max_failures"`
	BreakerInterval    string `yaml:"breaker_interval"`
	BreakerTimeout     string `yaml:"breaker_timeout"`
}

type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type RateLimitConfig struct {
	OTPPerMinute int `yaml:"otp_per_minute"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Session   SessionConfig   `yaml:"session"`
	OTP       OTPConfig       `yaml:"otp"`
	Phone     PhoneConfig     `yaml:"phone"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Casbin    CasbinConfig    `yaml:"casbin"`
	Backend   BackendConfig   `yaml:"backend"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type Config struct {
	Port    string
	GinMode string
	Env     string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	JWTIssuer       string
	SessionTTL      time.Duration
	SessionLockTTL  time.Duration
	SessionLockWait time.Duration

	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration
	OTP_LockTTL      time.Duration
	OTP_LockWait     time.Duration

	PhoneCountryCode    string
	PhoneNationalLength int
	PhoneMinDigits      int

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	CasbinModelPath string

	BackendRetryInitial       time.Duration
	BackendBreakerMaxFailures uint32
	BackendBreakerInterval    time.Duration
	BackendBreakerTimeout     time.Duration

	ServiceName       string
	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowOrigins []string
	OTPRatePerMinute int
	LogDevelopment   bool
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the YAML file at path (DefaultPath when empty), then applies
// environment overrides. A .env file in the working directory is loaded first
// if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = env("CONFIG_PATH", DefaultPath)
	}
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	d := durationParser{}
	cfg := &Config{
		Port:    env("PORT", strconv.Itoa(configFile.App.Port)),
		GinMode: env("GIN_MODE", configFile.App.GinMode),
		Env:     env("APP_ENV", configFile.App.Env),

		DSN:           env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       configFile.Redis.DB,

		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		SessionTTL:      d.parse("jwt.session_ttl", configFile.JWT.SessionTTL),
		SessionLockTTL:  d.parse("session.lock_ttl", configFile.Session.LockTTL),
		SessionLockWait: d.parse("session.lock_wait", configFile.Session.LockWait),

		OTP_TTL:          d.parse("otp.ttl", configFile.OTP.TTL),
		OTP_Length:       configFile.OTP.Length,
		OTP_MaxAttempts:  configFile.OTP.MaxAttempts,
		OTP_ResendWindow: d.parse("otp.resend_window", configFile.OTP.ResendWindow),
		OTP_LockTTL:      d.parse("otp.lock_ttl", configFile.OTP.LockTTL),
		OTP_LockWait:     d.parse("otp.lock_wait", configFile.OTP.LockWait),

		PhoneCountryCode:    configFile.Phone.CountryCode,
		PhoneNationalLength: configFile.Phone.NationalLength,
		PhoneMinDigits:      configFile.Phone.MinDigits,

		TwilioSID:   env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),

		CasbinModelPath: configFile.Casbin.ModelPath,

		BackendRetryInitial:       d.parse("backend.retry_initial", configFile.Backend.RetryInitial),
		BackendBreakerMaxFailures: configFile.Backend.BreakerMaxFailures,
		BackendBreakerInterval:    d.parse("backend.breaker_interval", configFile.Backend.BreakerInterval),
		BackendBreakerTimeout:     d.parse("backend.breaker_timeout", configFile.Backend.BreakerTimeout),

		ServiceName:       configFile.Telemetry.ServiceName,
		TelemetryEndpoint: env("TELEMETRY_ENDPOINT", configFile.Telemetry.Endpoint),
		TelemetryInsecure: configFile.Telemetry.Insecure,

		CORSAllowOrigins: configFile.CORS.AllowOrigins,
		OTPRatePerMinute: configFile.RateLimit.OTPPerMinute,
		LogDevelopment:   configFile.Log.Development || env("LOG_DEVELOPMENT", "false") == "true",
	}
	if d.err != nil {
		return nil, d.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required (JWT_SECRET)"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("jwt.session_ttl must be positive"))
	}
	if c.OTP_TTL <= 0 || c.OTP_ResendWindow <= 0 {
		errs = append(errs, errors.New("otp ttl and resend window must be positive"))
	}
	if c.OTP_Length < 4 || c.OTP_Length > 10 {
		errs = append(errs, fmt.Errorf("otp.length %d out of range 4-10", c.OTP_Length))
	}
	if c.OTP_MaxAttempts <= 0 {
		errs = append(errs, errors.New("otp.max_attempts must be positive"))
	}
	if c.PhoneNationalLength < 0 || c.PhoneMinDigits < 0 {
		errs = append(errs, errors.New("phone lengths must not be negative"))
	}
	for _, r := range c.PhoneCountryCode {
		if r < '0' || r > '9' {
			errs = append(errs, fmt.Errorf("phone.country_code %q must be digits", c.PhoneCountryCode))
			break
		}
	}
	return errors.Join(errs...)
}

type durationParser struct{ err error }

func (p *durationParser) parse(field, raw string) time.Duration {
	if raw == "" || p.err != nil {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("invalid %s: %w", field, err)
	}
	return d
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
