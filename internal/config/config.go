// Package config loads the service configuration from configs/config.yml and
// HIVE_SCHEDULE_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hive_schedule/internal/models"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Port string     `mapstructure:"port"`
	DB   DBConfig   `mapstructure:"db"`
	Log  LogConfig  `mapstructure:"log"`
	Hive HiveConfig `mapstructure:"hive"`
	// Cognito is the identity provider fronting the Hive API.
	Cognito CognitoConfig `mapstructure:"cognito"`
	Session SessionConfig `mapstructure:"session"`
	API     APIConfig     `mapstructure:"api"`
	// Profiles are named day programs usable by set_day_schedule.
	Profiles map[string]models.DaySchedule `mapstructure:"profiles"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// HiveConfig is the Hive account and REST endpoint.
type HiveConfig struct {
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CognitoConfig struct {
	Region   string `mapstructure:"region"`
	PoolID   string `mapstructure:"pool_id"`
	ClientID string `mapstructure:"client_id"`
	// Endpoint overrides https://cognito-idp.<region>.amazonaws.com/.
	Endpoint string `mapstructure:"endpoint"`
}

type SessionConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	TokenLifetime   time.Duration `mapstructure:"token_lifetime"`
}

// APIConfig guards the local HTTP API.
type APIConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// Defaults, mirrored in configs/config.yml.
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "hive_schedule.db"
	DefaultAPIURL          = "https://beekeeper.hivehome.com/1.0"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultCognitoRegion   = "eu-west-1"
	DefaultCognitoPoolID   = "eu-west-1_SamNfoWtf"
	DefaultCognitoClientID = "3rl4i0ajrmtdm8sbre54p9dvd9"
	DefaultRefreshInterval = 30 * time.Minute
	DefaultTokenLifetime   = 60 * time.Minute
	DefaultAPITokenTTL     = time.Hour
)

// Load reads config.yml from the given directories (missing file is fine) and
// applies HIVE_SCHEDULE_* environment overrides, e.g. HIVE_SCHEDULE_HIVE_PASSWORD.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("HIVE_SCHEDULE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("db.path", DefaultDBPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("hive.username", "")
	v.SetDefault("hive.password", "")
	v.SetDefault("hive.api_url", DefaultAPIURL)
	v.SetDefault("hive.request_timeout", DefaultRequestTimeout)
	v.SetDefault("cognito.region", DefaultCognitoRegion)
	v.SetDefault("cognito.pool_id", DefaultCognitoPoolID)
	v.SetDefault("cognito.client_id", DefaultCognitoClientID)
	v.SetDefault("cognito.endpoint", "")
	v.SetDefault("session.refresh_interval", DefaultRefreshInterval)
	v.SetDefault("session.token_lifetime", DefaultTokenLifetime)
	v.SetDefault("api.signing_key", "")
	v.SetDefault("api.token_ttl", DefaultAPITokenTTL)
}

// Validate checks required fields and fills derived values.
func (c *Config) Validate() error {
	if c.Hive.Username == "" || c.Hive.Password == "" {
		return errors.New("config: hive.username and hive.password must be set")
	}
	if c.API.SigningKey == "" {
		return errors.New("config: api.signing_key must be set")
	}
	if !strings.Contains(c.Cognito.PoolID, "_") {
		return fmt.Errorf("config: cognito.pool_id %q must look like <region>_<id>", c.Cognito.PoolID)
	}
	if c.Session.RefreshInterval <= 0 {
		c.Session.RefreshInterval = DefaultRefreshInterval
	}
	if c.Session.TokenLifetime <= models.StaleMargin {
		return fmt.Errorf("config: session.token_lifetime must exceed %s", models.StaleMargin)
	}
	if c.Hive.RequestTimeout <= 0 {
		c.Hive.RequestTimeout = DefaultRequestTimeout
	}
	for name, entries := range c.Profiles {
		if len(entries) == 0 {
			return fmt.Errorf("config: profile %q has no entries", name)
		}
	}
	return nil
}

// CognitoEndpoint returns the regional identity provider URL unless overridden.
func (c *Config) CognitoEndpoint() string {
	if c.Cognito.Endpoint != "" {
		return c.Cognito.Endpoint
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", c.Cognito.Region)
}

// Credential returns the Hive account login.
func (c *Config) Credential() models.Credential {
	return models.Credential{Username: c.Hive.Username, Password: c.Hive.Password}
}
