package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/cnyes-news/internal/lenient"
)

// Common contains Elasticsearch parameters shared by the indexing services.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
	ConnectAttempts    int
	ConnectDelay       time.Duration
}

// Extraction tunes the lenient extractor.
type Extraction struct {
	LinkTemplate    string
	DefaultCategory string
	MaxTruncations  int
}

// Lenient converts the settings into an extractor configuration.
func (e Extraction) Lenient() lenient.Config {
	cfg := lenient.DefaultConfig()
	cfg.LinkTemplate = e.LinkTemplate
	cfg.DefaultCategory = e.DefaultCategory
	cfg.MaxTruncations = e.MaxTruncations
	return cfg
}

// Scraper configures the cnyes API scraper.
type Scraper struct {
	Extraction
	APIURL         string
	PageSize       int
	Days           int
	PageLimit      int
	PageDelay      time.Duration
	RequestTimeout time.Duration
	OutputPath     string
	KafkaBrokers   []string
	KafkaTopic     string
}

// Extract configures the local file extractor.
type Extract struct {
	Extraction
	InputPath  string
	OutputPath string
	Repair     bool
	Deep       bool
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	Extraction
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadScraper builds a Scraper config from environment variables.
func LoadScraper() (*Scraper, error) {
	c := &Scraper{
		Extraction:     loadExtraction("https://m.cnyes.com/news/id/{id}"),
		APIURL:         getEnv("CNYES_API_URL", "https://api.cnyes.com/media/api/v1/newslist/category/headline"),
		PageSize:       getInt("CNYES_PAGE_SIZE", 30),
		Days:           getInt("SCRAPER_DAYS", 10),
		PageLimit:      getInt("SCRAPER_PAGE_LIMIT", 0),
		PageDelay:      getDuration("SCRAPER_PAGE_DELAY", "500ms"),
		RequestTimeout: getDuration("SCRAPER_HTTP_TIMEOUT", "10s"),
		OutputPath:     getEnv("SCRAPER_OUTPUT", "news.csv"),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_raw_pages"),
	}

	if err := c.Extraction.validate(); err != nil {
		return nil, err
	}
	if c.PageSize <= 0 {
		return nil, fmt.Errorf("CNYES_PAGE_SIZE must be positive")
	}
	if c.Days <= 0 {
		return nil, fmt.Errorf("SCRAPER_DAYS must be positive")
	}
	if c.PageLimit < 0 {
		return nil, fmt.Errorf("SCRAPER_PAGE_LIMIT cannot be negative")
	}
	if c.PageDelay < 0 {
		return nil, fmt.Errorf("SCRAPER_PAGE_DELAY cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return nil, fmt.Errorf("SCRAPER_HTTP_TIMEOUT must be positive")
	}

	return c, nil
}

// LoadExtract builds an Extract config from environment variables.
func LoadExtract() (*Extract, error) {
	c := &Extract{
		Extraction: loadExtraction("https://news.cnyes.com/news/id/{id}"),
		InputPath:  getEnv("EXTRACT_INPUT", "paste.txt"),
		OutputPath: getEnv("EXTRACT_OUTPUT", "cnyes_news_extract.csv"),
		Repair:     getBool("EXTRACT_REPAIR", true),
		Deep:       getBool("EXTRACT_DEEP_REPAIR", false),
	}

	if err := c.Extraction.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:           loadCommon(),
		Extraction:       loadExtraction("https://news.cnyes.com/news/id/{id}"),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "news_raw_pages"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "cnyes-news-worker"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 2),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if err := c.Extraction.validate(); err != nil {
		return nil, err
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:      loadCommon(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "cnyes-news"),
		ConnectAttempts:    getInt("ELASTICSEARCH_CONNECT_ATTEMPTS", 10),
		ConnectDelay:       getDuration("ELASTICSEARCH_CONNECT_DELAY", "2s"),
	}
}

func loadExtraction(linkTemplate string) Extraction {
	return Extraction{
		LinkTemplate:    getEnv("NEWS_LINK_TEMPLATE", linkTemplate),
		DefaultCategory: getEnv("NEWS_DEFAULT_CATEGORY", "uncategorized"),
		MaxTruncations:  getInt("EXTRACT_MAX_TRUNCATIONS", 5),
	}
}

func (e Extraction) validate() error {
	if !strings.Contains(e.LinkTemplate, "{id}") {
		return fmt.Errorf("NEWS_LINK_TEMPLATE must contain {id}")
	}
	if e.MaxTruncations < 0 {
		return fmt.Errorf("EXTRACT_MAX_TRUNCATIONS cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
