// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, YouTube, Extract, Ranking, Page, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Extract  ExtractConfig  `yaml:"extract"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Page     PageConfig     `yaml:"page"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	History  HistoryConfig  `yaml:"history"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the trend server.
type ServerConfig struct {
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
	RefreshPerMinute int           `yaml:"refreshPerMinute"`
	// AdminKeyHashes are hex SHA-256 hashes of keys allowed to call the
	// refresh endpoint. Empty leaves it open.
	AdminKeyHashes   []string      `yaml:"adminKeyHashes"`
}

// YouTubeConfig controls how video titles are fetched.
type YouTubeConfig struct {
	// Mode is one of "api", "scrape" or "auto". Auto uses the Data API when a
	// key is configured and scrapes the results page otherwise.
	Mode                 string        `yaml:"mode"`
	APIKey               string        `yaml:"apiKey"`
	APIKeyFallback       string        `yaml:"apiKeyFallback"`
	BaseURL              string        `yaml:"baseURL"`
	ResultsURL           string        `yaml:"resultsURL"`
	Language             string        `yaml:"language"`
	Region               string        `yaml:"region"`
	Keywords             []string      `yaml:"keywords"`
	MaxResultsPerKeyword int           `yaml:"maxResultsPerKeyword"`
	RequestInterval      time.Duration `yaml:"requestInterval"`
	Timeout              time.Duration `yaml:"timeout"`
	RetryAttempts        int           `yaml:"retryAttempts"`
	CacheEnabled         bool          `yaml:"cacheEnabled"`
}

// ExtractConfig selects a keyword-extraction profile and optionally extends it.
type ExtractConfig struct {
	Profile             string   `yaml:"profile"`
	ExtraStopwords      []string `yaml:"extraStopwords"`
	ExtraSuffixes       []string `yaml:"extraSuffixes"`
	ExtraSpamMarkers    []string `yaml:"extraSpamMarkers"`
	StripPasses         int      `yaml:"stripPasses"`
	MinStripLength      int      `yaml:"minStripLength"`
	SpamCaseInsensitive *bool    `yaml:"spamCaseInsensitive"`
	FoldCase            *bool    `yaml:"foldCase"`
	StemLatin           *bool    `yaml:"stemLatin"`
}

// RankingConfig controls the size of the ranked keyword table.
type RankingConfig struct {
	Limit int `yaml:"limit"`
}

// PageConfig controls the generated word-cloud page.
type PageConfig struct {
	OutputPath    string  `yaml:"outputPath"`
	Title         string  `yaml:"title"`
	Heading       string  `yaml:"heading"`
	LinkBaseURL   string  `yaml:"linkBaseURL"`
	LinkPrefix    string  `yaml:"linkPrefix"`
	SizeBase      float64 `yaml:"sizeBase"`
	SizeRange     float64 `yaml:"sizeRange"`
	FallbackTitle string  `yaml:"fallbackTitle"`
}

// RefreshConfig controls periodic regeneration in server mode.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HistoryConfig toggles snapshot persistence and event publication.
// FollowEnabled makes the server adopt reports published by other
// generators (for example a cron-driven wordcloud run).
type HistoryConfig struct {
	StoreEnabled   bool `yaml:"storeEnabled"`
	PublishEnabled bool `yaml:"publishEnabled"`
	FollowEnabled  bool `yaml:"followEnabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CloudGenerated string `yaml:"cloudGenerated"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
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
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config matching the Busan food & travel cloud.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			ShutdownTimeout:  15 * time.Second,
			RequestTimeout:   10 * time.Second,
			RefreshPerMinute: 6,
		},
		YouTube: YouTubeConfig{
			Mode:       "auto",
			BaseURL:    "https://www.googleapis.com/youtube/v3",
			ResultsURL: "https://www.youtube.com/results",
			Language:   "ko",
			Region:     "KR",
			Keywords: []string{
				"부산 맛집", "부산 여행", "부산 핫플", "부산 카페", "Busan Food", "Busan Travel",
			},
			MaxResultsPerKeyword: 50,
			RequestInterval:      500 * time.Millisecond,
			Timeout:              15 * time.Second,
			RetryAttempts:        3,
			CacheEnabled:         false,
		},
		Extract: ExtractConfig{
			Profile: "busan-v1",
		},
		Ranking: RankingConfig{
			Limit: 80,
		},
		Page: PageConfig{
			OutputPath:    "index.html",
			Title:         "Busan Hot Trends",
			Heading:       "🌊 부산 핫플레이스 & 맛집",
			LinkBaseURL:   "https://www.youtube.com/results",
			LinkPrefix:    "부산",
			SizeBase:      15,
			SizeRange:     85,
			FallbackTitle: "No Data Found",
		},
		Refresh: RefreshConfig{
			Interval: 6 * time.Hour,
			Timeout:  5 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordcloud",
			User:            "wordcloud",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "trendserver",
			Topics: KafkaTopics{
				CloudGenerated: "wordcloud-generated",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate reports configuration values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.YouTube.Mode {
	case "api", "scrape", "auto":
	default:
		return fmt.Errorf("invalid youtube.mode %q: want api, scrape or auto", c.YouTube.Mode)
	}
	if len(c.YouTube.Keywords) == 0 {
		return fmt.Errorf("youtube.keywords must not be empty")
	}
	if c.YouTube.MaxResultsPerKeyword <= 0 {
		return fmt.Errorf("youtube.maxResultsPerKeyword must be positive, got %d", c.YouTube.MaxResultsPerKeyword)
	}
	if c.Ranking.Limit <= 0 {
		return fmt.Errorf("ranking.limit must be positive, got %d", c.Ranking.Limit)
	}
	if c.Page.SizeRange < 0 || c.Page.SizeBase < 0 {
		return fmt.Errorf("page size base and range must not be negative")
	}
	if c.Page.OutputPath == "" {
		return fmt.Errorf("page.outputPath must not be empty")
	}
	return nil
}

// applyEnvOverrides reads TW_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}
	if v := os.Getenv("TW_YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}
	if v := os.Getenv("TW_YOUTUBE_API_KEY_FALLBACK"); v != "" {
		cfg.YouTube.APIKeyFallback = v
	}
	if v := os.Getenv("TW_YOUTUBE_MODE"); v != "" {
		cfg.YouTube.Mode = v
	}
	if v := os.Getenv("TW_YOUTUBE_KEYWORDS"); v != "" {
		cfg.YouTube.Keywords = SplitList(v)
	}
	if v := os.Getenv("TW_YOUTUBE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.YouTube.MaxResultsPerKeyword = n
		}
	}
	if v := os.Getenv("TW_YOUTUBE_REQUEST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.YouTube.RequestInterval = d
		}
	}
	if v := os.Getenv("TW_EXTRACT_PROFILE"); v != "" {
		cfg.Extract.Profile = v
	}
	if v := os.Getenv("TW_RANKING_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.Limit = n
		}
	}
	if v := os.Getenv("TW_OUTPUT_PATH"); v != "" {
		cfg.Page.OutputPath = v
	}
	if v := os.Getenv("TW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TW_SERVER_ADMIN_KEY_HASHES"); v != "" {
		cfg.Server.AdminKeyHashes = SplitList(v)
	}
	if v := os.Getenv("TW_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TW_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TW_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = SplitList(v)
	}
	if v := os.Getenv("TW_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TW_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TW_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TW_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// SplitList splits a comma-separated list, trimming entries and dropping
// empty ones.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
