package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"risk_market/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 일부 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Market struct {
		// DefaultPrice is the reference price of a market order when the opposite side is empty.
		DefaultPrice decimal.Decimal `yaml:"default_price"`
	} `yaml:"market"`

	Events struct {
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"events"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Logging struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used for keys missing from the config file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "risk-market"
	cfg.App.Version = "dev"
	cfg.Server.Addr = ":3001"
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	cfg.Storage.Path = "data/risk_market.db"
	cfg.Market.DefaultPrice = decimal.RequireFromString("0.5")
	cfg.Events.BufferSize = 1024
	cfg.Kafka.Topic = "risk-market-events"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.File = "app.log"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28
	cfg.Logging.Compress = true
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &domain.ConfigError{Field: "server.addr", Err: errors.New("must not be empty")}
	}
	if c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("must not be empty")}
	}
	if !domain.ValidPrice(c.Market.DefaultPrice) {
		return &domain.ConfigError{
			Field: "market.default_price",
			Err:   fmt.Errorf("%s is outside (0, 1)", c.Market.DefaultPrice),
		}
	}
	if c.Events.BufferSize <= 0 {
		return &domain.ConfigError{Field: "events.buffer_size", Err: errors.New("must be positive")}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return &domain.ConfigError{Field: "kafka.topic", Err: errors.New("required when brokers are set")}
	}
	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("RISK_MARKET_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("RISK_MARKET_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("RISK_MARKET_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if brokers := os.Getenv("RISK_MARKET_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("RISK_MARKET_KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
}
