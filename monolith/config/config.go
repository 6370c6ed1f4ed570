/*
	config package loads the process configuration of the sherlook monolith
	from an optional YAML file and applies SHERLOOK_* environment variable
	overrides on top of it.
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Cache    CacheConfig    `yaml:"cache"`
	PageRank PageRankConfig `yaml:"pagerank"`
	Stores   StoresConfig   `yaml:"stores"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the search front-end settings.
type ServerConfig struct {
	ListenAddr     string        `yaml:"listenAddr"`
	ResultsPerPage int           `yaml:"resultsPerPage"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
}

// RankingConfig holds the score blending weights and snippet windows.
type RankingConfig struct {
	LexicalWeight    float64 `yaml:"lexicalWeight"`
	PopularityWeight float64 `yaml:"popularityWeight"`
	KeywordWindow    int     `yaml:"keywordWindow"`
	PhraseWindow     int     `yaml:"phraseWindow"`
}

// CacheConfig holds the ranking cache bounds.
type CacheConfig struct {
	MaxEntries int           `yaml:"maxEntries"`
	TTL        time.Duration `yaml:"ttl"`
}

// PageRankConfig holds the PageRank tuning and scheduling settings.
type PageRankConfig struct {
	DampingFactor        float64       `yaml:"dampingFactor"`
	ConvergenceThreshold float64       `yaml:"convergenceThreshold"`
	MaxIterations        int           `yaml:"maxIterations"`
	UpdateInterval       time.Duration `yaml:"updateInterval"`
}

// StoresConfig holds the data store URIs. Both stores accept in-memory://
// and postgresql://; the text index also accepts es://node1:9200,node2:9200.
type StoresConfig struct {
	LinkGraphURI string `yaml:"linkGraphURI"`
	TextIndexURI string `yaml:"textIndexURI"`
}

// RedisConfig holds the settings of the PageRank pass lock. An empty
// address disables the lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// KafkaConfig holds the crawl event consumer settings. An empty broker
// list disables the consumer.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	Topic         string   `yaml:"topic"`
}

// LoggingConfig controls the logrus level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided), applies environment variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			ResultsPerPage: 10,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Ranking: RankingConfig{
			LexicalWeight:    0.7,
			PopularityWeight: 0.3,
			KeywordWindow:    10,
			PhraseWindow:     15,
		},
		Cache: CacheConfig{
			MaxEntries: 3000,
			TTL:        30 * time.Minute,
		},
		PageRank: PageRankConfig{
			DampingFactor:        0.85,
			ConvergenceThreshold: 1e-5,
			MaxIterations:        100,
			UpdateInterval:       time.Hour,
		},
		Stores: StoresConfig{
			LinkGraphURI: "in-memory://",
			TextIndexURI: "in-memory://",
		},
		Redis: RedisConfig{
			LockKey: "sherlook:pagerank:lock",
			LockTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "sherlook",
			Topic:         "crawl-events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting.
func (cfg *Config) Validate() error {
	var err error

	if cfg.Server.ListenAddr == "" {
		err = multierror.Append(err, fmt.Errorf("server listen address not provided"))
	}

	if cfg.Server.ResultsPerPage <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for results per page"))
	}

	if cfg.Ranking.LexicalWeight < 0 || cfg.Ranking.PopularityWeight < 0 {
		err = multierror.Append(err, fmt.Errorf("ranking weights must be >= 0"))
	}

	if cfg.Ranking.KeywordWindow <= 0 || cfg.Ranking.PhraseWindow <= 0 {
		err = multierror.Append(err, fmt.Errorf("snippet windows must be > 0"))
	}

	if cfg.Cache.MaxEntries <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for cache max entries"))
	}

	if cfg.Cache.TTL <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for cache TTL"))
	}

	if cfg.PageRank.DampingFactor <= 0 || cfg.PageRank.DampingFactor >= 1 {
		err = multierror.Append(err, fmt.Errorf("pagerank damping factor must be in the range (0, 1)"))
	}

	if cfg.PageRank.UpdateInterval <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for pagerank update interval"))
	}

	if cfg.Stores.LinkGraphURI == "" {
		err = multierror.Append(err, fmt.Errorf("link graph URI not provided"))
	}

	if cfg.Stores.TextIndexURI == "" {
		err = multierror.Append(err, fmt.Errorf("text index URI not provided"))
	}

	if cfg.Redis.Addr != "" && cfg.Redis.LockTTL <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for redis lock TTL"))
	}

	if len(cfg.Kafka.Brokers) != 0 && cfg.Kafka.Topic == "" {
		err = multierror.Append(err, fmt.Errorf("kafka topic not provided"))
	}

	return err
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides reads SHERLOOK_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = multierror.Append(err, fmt.Errorf("%s: %w", key, convErr))
				return
			}
			*dst = n
		}
	}

	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, convErr := strconv.ParseFloat(v, 64)
			if convErr != nil {
				err = multierror.Append(err, fmt.Errorf("%s: %w", key, convErr))
				return
			}
			*dst = f
		}
	}

	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, convErr := time.ParseDuration(v)
			if convErr != nil {
				err = multierror.Append(err, fmt.Errorf("%s: %w", key, convErr))
				return
			}
			*dst = d
		}
	}

	str("SHERLOOK_LISTEN_ADDR", &cfg.Server.ListenAddr)
	integer("SHERLOOK_RESULTS_PER_PAGE", &cfg.Server.ResultsPerPage)
	float("SHERLOOK_LEXICAL_WEIGHT", &cfg.Ranking.LexicalWeight)
	float("SHERLOOK_POPULARITY_WEIGHT", &cfg.Ranking.PopularityWeight)
	integer("SHERLOOK_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)
	duration("SHERLOOK_CACHE_TTL", &cfg.Cache.TTL)
	duration("SHERLOOK_PAGERANK_INTERVAL", &cfg.PageRank.UpdateInterval)
	integer("SHERLOOK_PAGERANK_MAX_ITERATIONS", &cfg.PageRank.MaxIterations)
	str("SHERLOOK_LINK_GRAPH_URI", &cfg.Stores.LinkGraphURI)
	str("SHERLOOK_TEXT_INDEX_URI", &cfg.Stores.TextIndexURI)
	str("SHERLOOK_REDIS_ADDR", &cfg.Redis.Addr)
	str("SHERLOOK_REDIS_PASSWORD", &cfg.Redis.Password)
	str("SHERLOOK_KAFKA_TOPIC", &cfg.Kafka.Topic)
	str("SHERLOOK_KAFKA_GROUP", &cfg.Kafka.ConsumerGroup)
	str("SHERLOOK_LOG_LEVEL", &cfg.Logging.Level)
	str("SHERLOOK_LOG_FORMAT", &cfg.Logging.Format)

	if v, ok := lookup("SHERLOOK_KAFKA_BROKERS"); ok && v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}

	return err
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
