// Package config loads service configuration from configs/config.yml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type SchedulerConfig struct {
	Timezone string `mapstructure:"timezone"` // IANA name; schedule times are read in this zone
}

// TwilioConfig configures the outbound messaging gateway.
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"` // e.g. whatsapp:+14155238886
	BaseURL    string `mapstructure:"base_url"`
}

// FallbackConfig configures the conversational fallback service.
type FallbackConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
}

type MQTTConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Broker           string        `mapstructure:"broker"`
	ClientID         string        `mapstructure:"client_id"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	TopicPrefix      string        `mapstructure:"topic_prefix"`
	SubscribeSensors bool          `mapstructure:"subscribe_sensors"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// SimulatorConfig enables the development greenhouse simulator.
type SimulatorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Tick    time.Duration `mapstructure:"tick"`
}

const envPrefix = "GREENHOUSE"

// legacyEnv maps keys to the variable names used by existing .env files.
var legacyEnv = map[string]string{
	"port":               "PORT",
	"twilio.account_sid": "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":  "TWILIO_AUTH_TOKEN",
	"twilio.from":        "TWILIO_WHATSAPP_NUMBER",
	"fallback.api_key":   "DEEPSEEK_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "greenhouse.db")
	v.SetDefault("scheduler.timezone", "Local")

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from", "")
	v.SetDefault("twilio.base_url", "https://api.twilio.com")

	v.SetDefault("fallback.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("fallback.api_key", "")
	v.SetDefault("fallback.model", "openai/gpt-4o")
	v.SetDefault("fallback.max_tokens", 1000)
	v.SetDefault("fallback.timeout", "30s")
	v.SetDefault("fallback.rate_per_minute", 20)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "greenhouse-control")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "greenhouse")
	v.SetDefault("mqtt.subscribe_sensors", false)
	v.SetDefault("mqtt.connect_timeout", "10s")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "1h")

	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.tick", "1s")
}

// Load reads config.yml from dir (a missing file is fine) and applies
// environment overrides: GREENHOUSE_<SECTION>_<KEY>, plus the legacy names in
// legacyEnv.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks fields the service cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port cannot be empty")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return errors.New("db.path cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Fallback.MaxTokens <= 0 {
		return errors.New("fallback.max_tokens must be > 0")
	}
	if c.Fallback.RatePerMinute <= 0 {
		return errors.New("fallback.rate_per_minute must be > 0")
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if c.Simulator.Enabled && c.Simulator.Tick <= 0 {
		return errors.New("simulator.tick must be > 0")
	}
	return nil
}

// Location resolves scheduler.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return loc, nil
}
