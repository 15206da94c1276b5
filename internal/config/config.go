package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "ROSTER"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	// Addr is the listen address of the HTTP server
	Addr string `mapstructure:"addr" validate:"required"`
	// CSRF enables the hidden _csrf token on every roster form
	CSRF bool `mapstructure:"csrf"`
	// SecureCookies marks session and CSRF cookies as HTTPS only
	SecureCookies bool `mapstructure:"secure_cookies"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type SessionConfig struct {
	Cookie string `mapstructure:"cookie" validate:"required"`
	// TTL is how long an idle roster session is kept
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CSRF:            true,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Session: SessionConfig{
			Cookie:        "roster_session",
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
	}
}

// SetDefaults registers default values and environment overrides with v.
// ROSTER_SERVER_ADDR overrides server.addr, and so on.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.csrf", defaults.Server.CSRF)
	v.SetDefault("server.secure_cookies", defaults.Server.SecureCookies)
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.development", defaults.Log.Development)

	v.SetDefault("session.cookie", defaults.Session.Cookie)
	v.SetDefault("session.ttl", defaults.Session.TTL)
	v.SetDefault("session.sweep_interval", defaults.Session.SweepInterval)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the optional config file into a validated Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}
