package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"PortOpt/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Stooq struct {
		BaseURL     string        `yaml:"base_url"`
		Suffix      string        `yaml:"suffix"` // appended to tickers, e.g. ".us"
		Timeout     time.Duration `yaml:"timeout"`
		MaxParallel int           `yaml:"max_parallel"`
	} `yaml:"stooq"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		StatisticsTTL time.Duration `yaml:"statistics_ttl"`
		MaxEntries    int           `yaml:"max_entries"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
		KeyPrefix  string        `yaml:"key_prefix"`
		ResultTTL  time.Duration `yaml:"result_ttl"`
	} `yaml:"queue"`
	Optimizer struct {
		Annualization       float64 `yaml:"annualization"`         // trading periods per year
		FrontierPoints      int     `yaml:"frontier_points"`       // frontier sample count
		RiskFreeRate        float64 `yaml:"risk_free_rate"`        // default, request can override
		LowerBound          float64 `yaml:"lower_bound"`           // default per-asset bounds
		UpperBound          float64 `yaml:"upper_bound"`
		MaxConcurrentSolves int     `yaml:"max_concurrent_solves"` // frontier worker pool size
		PenaltyRounds       int     `yaml:"penalty_rounds"`
		RateLimit           struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"optimizer"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("STOOQ_BASE_URL"); v != "" {
		c.Stooq.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Stooq.BaseURL == "" {
		c.Stooq.BaseURL = "https://stooq.com/q/d/l/"
	}
	if c.Stooq.Suffix == "" {
		c.Stooq.Suffix = ".us"
	}
	if c.Stooq.Timeout <= 0 {
		c.Stooq.Timeout = 30 * time.Second
	}
	if c.Stooq.MaxParallel <= 0 {
		c.Stooq.MaxParallel = 4
	}
	if c.Cache.StatisticsTTL <= 0 {
		c.Cache.StatisticsTTL = 15 * time.Minute
	}
	if c.Optimizer.Annualization <= 0 {
		c.Optimizer.Annualization = 252
	}
	if c.Optimizer.FrontierPoints <= 0 {
		c.Optimizer.FrontierPoints = 20
	}
	if c.Optimizer.LowerBound == 0 && c.Optimizer.UpperBound == 0 {
		c.Optimizer.UpperBound = 1
	}
	if c.Optimizer.MaxConcurrentSolves <= 0 {
		c.Optimizer.MaxConcurrentSolves = 4
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Optimizer.LowerBound >= c.Optimizer.UpperBound {
		return fmt.Errorf("optimizer.lower_bound must be smaller than optimizer.upper_bound")
	}
	if c.Optimizer.RiskFreeRate < 0 {
		return fmt.Errorf("optimizer.risk_free_rate must be non-negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Queue.Enabled && !c.Cache.Redis.Enabled {
		return fmt.Errorf("queue requires cache.redis to be enabled")
	}
	return nil
}
