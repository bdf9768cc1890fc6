package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	Client   ClientConfig `mapstructure:"client"`
}

type ServerConfig struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	ICEURLs    []string      `mapstructure:"ice_urls"`
	// CommandLimit commands per CommandWindow are accepted from one participant.
	CommandLimit  int           `mapstructure:"command_limit"`
	CommandWindow time.Duration `mapstructure:"command_window"`
}

type ClientConfig struct {
	// Transport is one of "ws", "redis" or "loopback".
	Transport          string        `mapstructure:"transport"`
	SignalURL          string        `mapstructure:"signal_url"`
	RedisAddr          string        `mapstructure:"redis_addr"`
	Space              string        `mapstructure:"space"`
	Token              string        `mapstructure:"token"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	SpawnRetryInterval time.Duration `mapstructure:"spawn_retry_interval"`
	AvatarURL          string        `mapstructure:"avatar_url"`
	ICEURLs            []string      `mapstructure:"ice_urls"`
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. A .env file
// and VSPACE_* variables override both, e.g. VSPACE_CLIENT_TOKEN.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("module", "config").Err(err).Msg(".env not loaded")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VSPACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.mode", "release")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_limit", 32768)
	v.SetDefault("server.ping_period", "54s")
	v.SetDefault("server.secret", "")
	v.SetDefault("server.token_ttl", "24h")
	v.SetDefault("server.ice_urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("server.command_limit", 50)
	v.SetDefault("server.command_window", "1s")

	v.SetDefault("client.transport", "ws")
	v.SetDefault("client.signal_url", "ws://localhost:8080/api/ws/conference")
	v.SetDefault("client.redis_addr", "localhost:6379")
	v.SetDefault("client.space", "")
	v.SetDefault("client.token", "")
	v.SetDefault("client.connect_timeout", "10s")
	v.SetDefault("client.spawn_retry_interval", "2s")
	v.SetDefault("client.avatar_url", "")
	v.SetDefault("client.ice_urls", []string{"stun:stun.l.google.com:19302"})
}
