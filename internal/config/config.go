package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses yaml values like "90s" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Lnurl     LnurlConfig     `yaml:"lnurl"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	DomainTopic   string   `yaml:"domain_topic"`
	GatewayTopic  string   `yaml:"gateway_topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// RateLimitConfig carries both the transport-level per-IP token bucket and
// the dual-window limiter for the public LNURL callback.
type RateLimitConfig struct {
	RPS             int      `yaml:"rps"`
	Burst           int      `yaml:"burst"`
	BurstLimit      int      `yaml:"burst_limit"`
	BurstWindow     Duration `yaml:"burst_window"`
	SustainedLimit  int      `yaml:"sustained_limit"`
	SustainedWindow Duration `yaml:"sustained_window"`
}

type LnurlConfig struct {
	BaseDomain      string   `yaml:"base_domain"`
	CallbackBaseURL string   `yaml:"callback_base_url"`
	SigningSecret   string   `yaml:"signing_secret"`
	WithdrawTTL     Duration `yaml:"withdraw_ttl"`
}

type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// secrets come from env when present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if s := os.Getenv("LNURL_SIGNING_SECRET"); s != "" {
		cfg.Lnurl.SigningSecret = s
	}
	if k := os.Getenv("GATEWAY_API_KEY"); k != "" {
		cfg.Gateway.APIKey = k
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RateLimit.BurstLimit == 0 {
		cfg.RateLimit.BurstLimit = 5
	}
	if cfg.RateLimit.BurstWindow == 0 {
		cfg.RateLimit.BurstWindow = Duration(time.Minute)
	}
	if cfg.RateLimit.SustainedLimit == 0 {
		cfg.RateLimit.SustainedLimit = 20
	}
	if cfg.RateLimit.SustainedWindow == 0 {
		cfg.RateLimit.SustainedWindow = Duration(time.Hour)
	}
	if cfg.Lnurl.WithdrawTTL == 0 {
		cfg.Lnurl.WithdrawTTL = Duration(10 * time.Minute)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
