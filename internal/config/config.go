package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Config represents the rewards service configuration. Values are read from
// an optional config.yaml in the working directory and overridden by
// environment variables (SERVER_ADDR, DATABASE_DRIVER, ...).
type Config struct {
	AppName    string `mapstructure:"APP_NAME"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppVersion string `mapstructure:"APP_VERSION"`
	Server     struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"SERVER"`
	Database struct {
		Driver string `mapstructure:"DRIVER"` // sqlite | postgres | mysql
		DSN    string `mapstructure:"DSN"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Enable      bool          `mapstructure:"ENABLE"`
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Catalog struct {
		Path  string `mapstructure:"PATH"`
		Watch bool   `mapstructure:"WATCH"`
	} `mapstructure:"CATALOG"`
	Otel struct {
		Enable   bool   `mapstructure:"ENABLE"`
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"` // grpc | http
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "rewards")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER.ADDR", ":8080")
	v.SetDefault("SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.DRIVER", "sqlite")
	v.SetDefault("DATABASE.DSN", "data/rewards.db")
	v.SetDefault("REDIS.ENABLE", false)
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 30*time.Second)
	v.SetDefault("CATALOG.PATH", "")
	v.SetDefault("CATALOG.WATCH", false)
	v.SetDefault("OTEL.ENABLE", false)
	v.SetDefault("OTEL.ADDR", "127.0.0.1:4317")
	v.SetDefault("OTEL.PROTOCOL", "grpc")

	if err := v.ReadInConfig(); err != nil {
		// a config file is optional; env vars and defaults are enough
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
