package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML configs carry "10s" style values; yaml.v3 has no
// native decoding into time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int      `yaml:"port"`
		ReadTimeout     Duration `yaml:"read_timeout"`
		WriteTimeout    Duration `yaml:"write_timeout"`
		ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feed struct {
		Mode           string   `yaml:"mode"` // demo or live
		APIKey         string   `yaml:"api_key"`
		WebSocketURL   string   `yaml:"websocket_url"`
		Symbols        []string `yaml:"symbols"`
		ReconnectDelay Duration `yaml:"reconnect_delay"`
		PingInterval   Duration `yaml:"ping_interval"`
		DemoInterval   Duration `yaml:"demo_interval"`
	} `yaml:"feed"`
	Detectors struct {
		VolumeMultiplier   float64  `yaml:"volume_multiplier"`
		VolumeFullScale    float64  `yaml:"volume_full_scale"`
		MinVolume          int64    `yaml:"min_volume"`
		OIChangePct        float64  `yaml:"oi_change_pct"`
		IVSpikePts         float64  `yaml:"iv_spike_pts"`
		DeltaMovePct       float64  `yaml:"delta_move_pct"`
		MinPremium         float64  `yaml:"min_premium"`
		EnableTradeSignals bool     `yaml:"enable_trade_signals"`
		BlockMinContracts  int64    `yaml:"block_min_contracts"`
		SweepMinVenues     int      `yaml:"sweep_min_venues"`
		SweepWindow        Duration `yaml:"sweep_window"`
		SweepMinPremium    float64  `yaml:"sweep_min_premium"`
		GoldenSweepPremium float64  `yaml:"golden_sweep_premium"`
		GoldenSweepOTMPct  float64  `yaml:"golden_sweep_otm_pct"`
	} `yaml:"detectors"`
	Scoring struct {
		DecisionThreshold float64 `yaml:"decision_threshold"`
	} `yaml:"scoring"`
	Baseline struct {
		Sessions  int      `yaml:"sessions"`
		PriceSpan Duration `yaml:"price_span"`
	} `yaml:"baseline"`
	Accumulation struct {
		WindowDays    int     `yaml:"window_days"`
		BiasFloor     float64 `yaml:"bias_floor"`
		MajorityShare float64 `yaml:"majority_share"`
	} `yaml:"accumulation"`
	Alerts struct {
		DedupWindow Duration `yaml:"dedup_window"`
		MaxLog      int      `yaml:"max_log"`
	} `yaml:"alerts"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int      `yaml:"max_attempts"`
			BatchBytes   int      `yaml:"batch_bytes"`
			BatchSize    int      `yaml:"batch_size"`
			BatchTimeout Duration `yaml:"batch_timeout"`
			WriteTimeout Duration `yaml:"write_timeout"`
			ReadTimeout  Duration `yaml:"read_timeout"`
			Async        bool     `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool     `yaml:"enabled"`
		Host             string   `yaml:"host"`
		Port             int      `yaml:"port"`
		Database         string   `yaml:"database"`
		Table            string   `yaml:"table"`
		User             string   `yaml:"user"`
		Password         string   `yaml:"password"`
		UseHTTP          bool     `yaml:"use_http"`
		AsyncInsert      bool     `yaml:"async_insert"`
		WaitForAsync     bool     `yaml:"wait_for_async_insert"`
		DialTimeout      Duration `yaml:"dial_timeout"`
		ReadTimeout      Duration `yaml:"read_timeout"`
		WriteTimeout     Duration `yaml:"write_timeout"`
		MaxExecutionTime Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
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

	if v := os.Getenv("FEED_MODE"); v != "" {
		c.Feed.Mode = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid. The engine refuses to
// start on a broken config rather than limping along with defaults.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Feed.Mode {
	case "demo", "live":
	case "":
		return fmt.Errorf("feed.mode is required")
	default:
		return fmt.Errorf("feed.mode must be 'demo' or 'live', got '%s'", c.Feed.Mode)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty")
	}
	if c.Feed.Mode == "live" {
		if c.Feed.APIKey == "" {
			return fmt.Errorf("feed.api_key is required in live mode")
		}
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("feed.websocket_url is required in live mode")
		}
	}
	if c.Scoring.DecisionThreshold < 0 || c.Scoring.DecisionThreshold > 100 {
		return fmt.Errorf("scoring.decision_threshold must be in [0, 100]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required when clickhouse is enabled")
	}
	return nil
}
