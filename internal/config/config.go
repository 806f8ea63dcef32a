package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/anuragv/floodwatch/internal/generator"
	"github.com/anuragv/floodwatch/internal/scenario"
)

// Config is the full service configuration, loaded from YAML with defaults.
type Config struct {
	App struct {
		Name     string
		Location string
	}

	Monitor struct {
		Interval        time.Duration
		DefaultScenario string
		AutoTransition  bool
	}

	Scoring struct {
		Mode         string // "synthetic" or "model"
		ArtifactPath string
		WarmupLength int
		Timeout      time.Duration
	}

	Alerts struct {
		Cooldown time.Duration
	}

	Storage struct {
		Driver string
		DSN    string
	}

	NATS struct {
		Enabled        bool
		URLs           []string
		MaxReconnects  int
		ReconnectWait  time.Duration
		ConnectTimeout time.Duration
	}

	Kafka struct {
		Enabled bool
		Brokers []string
		Topic   string
	}

	SMS struct {
		Mode        string
		ProviderURL string
		AuthToken   string
		From        string
		Timeout     time.Duration
	}

	Advisor struct {
		Enabled     bool
		URL         string
		APIKey      string
		CacheTTL    time.Duration
		MinInterval time.Duration
		Timeout     time.Duration
	}

	Metrics struct {
		ListenAddr string
	}
}

// Load reads the config file (if present) and environment overrides,
// applying defaults where unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("floodwatch")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Defaults only.
	}

	cfg := &Config{}
	cfg.App.Name = v.GetString("app.name")
	cfg.App.Location = v.GetString("app.location")

	cfg.Monitor.Interval = generator.ClampInterval(v.GetDuration("monitor.interval"))
	cfg.Monitor.DefaultScenario = v.GetString("monitor.default_scenario")
	cfg.Monitor.AutoTransition = v.GetBool("monitor.auto_transition")

	cfg.Scoring.Mode = v.GetString("scoring.mode")
	cfg.Scoring.ArtifactPath = v.GetString("scoring.artifact_path")
	cfg.Scoring.WarmupLength = v.GetInt("scoring.warmup_length")
	cfg.Scoring.Timeout = v.GetDuration("scoring.timeout")

	cfg.Alerts.Cooldown = v.GetDuration("alerts.cooldown")

	cfg.Storage.Driver = v.GetString("storage.driver")
	cfg.Storage.DSN = v.GetString("storage.dsn")

	cfg.NATS.Enabled = v.GetBool("nats.enabled")
	cfg.NATS.URLs = v.GetStringSlice("nats.urls")
	cfg.NATS.MaxReconnects = v.GetInt("nats.max_reconnects")
	cfg.NATS.ReconnectWait = v.GetDuration("nats.reconnect_wait")
	cfg.NATS.ConnectTimeout = v.GetDuration("nats.connect_timeout")

	cfg.Kafka.Enabled = v.GetBool("kafka.enabled")
	cfg.Kafka.Brokers = v.GetStringSlice("kafka.brokers")
	cfg.Kafka.Topic = v.GetString("kafka.topic")

	cfg.SMS.Mode = v.GetString("sms.mode")
	cfg.SMS.ProviderURL = v.GetString("sms.provider_url")
	cfg.SMS.AuthToken = v.GetString("sms.auth_token")
	cfg.SMS.From = v.GetString("sms.from")
	cfg.SMS.Timeout = v.GetDuration("sms.timeout")

	cfg.Advisor.Enabled = v.GetBool("advisor.enabled")
	cfg.Advisor.URL = v.GetString("advisor.url")
	cfg.Advisor.APIKey = v.GetString("advisor.api_key")
	cfg.Advisor.CacheTTL = v.GetDuration("advisor.cache_ttl")
	cfg.Advisor.MinInterval = v.GetDuration("advisor.min_interval")
	cfg.Advisor.Timeout = v.GetDuration("advisor.timeout")

	cfg.Metrics.ListenAddr = v.GetString("metrics.listen_addr")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "floodwatch")
	v.SetDefault("app.location", "Dehradun, Uttarakhand")

	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.default_scenario", scenario.DefaultScenario)
	v.SetDefault("monitor.auto_transition", true)

	v.SetDefault("scoring.mode", "synthetic")
	v.SetDefault("scoring.warmup_length", 3)
	v.SetDefault("scoring.timeout", "5s")

	v.SetDefault("alerts.cooldown", "1h")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "file:floodwatch.db?_busy_timeout=5000")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.urls", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "flood-readings")

	v.SetDefault("sms.mode", "demo")
	v.SetDefault("sms.timeout", "10s")

	v.SetDefault("advisor.enabled", false)
	v.SetDefault("advisor.cache_ttl", "5m")
	v.SetDefault("advisor.min_interval", "1m")
	v.SetDefault("advisor.timeout", "10s")

	v.SetDefault("metrics.listen_addr", ":9090")
}

func (c *Config) validate() error {
	if _, err := scenario.Lookup(c.Monitor.DefaultScenario); err != nil {
		return fmt.Errorf("invalid default scenario: %w", err)
	}
	switch c.Scoring.Mode {
	case "synthetic", "model":
	default:
		return fmt.Errorf("invalid scoring mode: %s", c.Scoring.Mode)
	}
	if c.Scoring.Mode == "model" && c.Scoring.ArtifactPath == "" {
		return fmt.Errorf("scoring.artifact_path is required in model mode")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.SMS.Mode == "http" && c.SMS.ProviderURL == "" {
		return fmt.Errorf("sms.provider_url is required in http mode")
	}
	return nil
}
