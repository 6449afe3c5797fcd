package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GameConfig tunes the per-room countdown and connection queues.
type GameConfig struct {
	CountdownFrom     int           `mapstructure:"countdown_from"`
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
	SendBuffer        int           `mapstructure:"send_buffer"`
}

type DatabaseConfig struct {
	// Driver is "gorm", "postgres" or empty for the in-memory history store.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("game.countdown_from", 3)
	v.SetDefault("game.countdown_interval", "1s")
	v.SetDefault("game.send_buffer", 64)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "rpsarena")
	v.SetDefault("database.postgres.sslmode", "disable")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "rps")

	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.namespace", "rps_arena")
}

// LoadConfig reads config.yaml from path if present, then applies RPS_*
// environment overrides (server.http_address -> RPS_SERVER_HTTP_ADDRESS).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
