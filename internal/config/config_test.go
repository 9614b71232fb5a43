package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/config"
)

func TestLoadScraperDefaults(t *testing.T) {
	t.Setenv("CNYES_API_URL", "")
	t.Setenv("SCRAPER_DAYS", "")
	t.Setenv("SCRAPER_OUTPUT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("NEWS_LINK_TEMPLATE", "")

	cfg, err := config.LoadScraper()
	require.NoError(t, err)

	require.Equal(t, "https://api.cnyes.com/media/api/v1/newslist/category/headline", cfg.APIURL)
	require.Equal(t, 30, cfg.PageSize)
	require.Equal(t, 10, cfg.Days)
	require.Equal(t, 0, cfg.PageLimit)
	require.Equal(t, 500*time.Millisecond, cfg.PageDelay)
	require.Equal(t, "news.csv", cfg.OutputPath)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "https://m.cnyes.com/news/id/{id}", cfg.LinkTemplate)
	require.Equal(t, 5, cfg.MaxTruncations)
}

func TestLoadScraperValidation(t *testing.T) {
	t.Setenv("SCRAPER_DAYS", "0")
	_, err := config.LoadScraper()
	require.Error(t, err)

	t.Setenv("SCRAPER_DAYS", "3")
	t.Setenv("NEWS_LINK_TEMPLATE", "https://example.com/news")
	_, err = config.LoadScraper()
	require.ErrorContains(t, err, "{id}")
}

func TestLoadExtract(t *testing.T) {
	t.Setenv("EXTRACT_INPUT", "fixtures/page.json")
	t.Setenv("EXTRACT_REPAIR", "false")
	t.Setenv("EXTRACT_DEEP_REPAIR", "true")
	t.Setenv("NEWS_DEFAULT_CATEGORY", "未分類")

	cfg, err := config.LoadExtract()
	require.NoError(t, err)

	require.Equal(t, "fixtures/page.json", cfg.InputPath)
	require.Equal(t, "cnyes_news_extract.csv", cfg.OutputPath)
	require.False(t, cfg.Repair)
	require.True(t, cfg.Deep)

	lc := cfg.Lenient()
	require.Equal(t, "未分類", lc.DefaultCategory)
	require.Equal(t, "https://news.cnyes.com/news/id/{id}", lc.LinkTemplate)
	require.Equal(t, "newsId", lc.Fields.ID)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9999")
	t.Setenv("ELASTICSEARCH_INDEX", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_KEYWORD_LIMIT", "12")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:9999", cfg.ElasticsearchAddr)
	require.Equal(t, "custom", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 12, cfg.KeywordLimit)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")
	t.Setenv("ELASTICSEARCH_CONNECT_DELAY", "not-a-duration")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "cnyes-news", cfg.ElasticsearchIndex)
	require.Equal(t, 2*time.Second, cfg.ConnectDelay)
}
