package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/DeafMist/cnyes-news/internal/cnyes"
	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/export"
	"github.com/DeafMist/cnyes-news/internal/lenient"
	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/queue"
)

type pagePublisher interface {
	PublishPage(ctx context.Context, runID string, page int, body string) error
	Close() error
}

func main() {
	log := logger.New("scraper")
	cfg, err := config.LoadScraper()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(cfg, log).ExecuteContext(ctx); err != nil {
		log.Error("scrape failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Scraper, log *slog.Logger) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "Fetch cnyes headline news into a CSV file",
		Long: `Fetch every headline listing page for the last --days days,
extract the news records and write them to --output as CSV.

With --publish the raw page bodies are also sent to Kafka for the
indexing worker.

Examples:
  scraper                          # last 10 days into news.csv
  scraper --days 3 --page-limit 2  # quick sample
  scraper --publish --brokers localhost:9092`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Days <= 0 {
				return fmt.Errorf("--days must be positive")
			}

			var pub pagePublisher
			if publish {
				if len(cfg.KafkaBrokers) == 0 {
					return fmt.Errorf("--publish requires at least one broker")
				}
				pub = queue.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
			}

			_, err := run(cmd.Context(), log, cfg, pub, time.Now())
			return err
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Days, "days", cfg.Days, "number of days to look back")
	flags.IntVar(&cfg.PageLimit, "page-limit", cfg.PageLimit, "maximum pages to fetch (0 = all)")
	flags.DurationVar(&cfg.PageDelay, "delay", cfg.PageDelay, "pause between page requests")
	flags.StringVarP(&cfg.OutputPath, "output", "o", cfg.OutputPath, "CSV output path")
	flags.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "headline listing endpoint")
	flags.BoolVar(&publish, "publish", false, "publish raw pages to Kafka")
	flags.StringSliceVar(&cfg.KafkaBrokers, "brokers", cfg.KafkaBrokers, "Kafka brokers")
	flags.StringVar(&cfg.KafkaTopic, "topic", cfg.KafkaTopic, "Kafka topic for raw pages")

	return cmd
}

// run scrapes the configured window, optionally publishing each raw page, and writes the CSV.
func run(ctx context.Context, log *slog.Logger, cfg *config.Scraper, pub pagePublisher, now time.Time) (*cnyes.Result, error) {
	extractor := lenient.New(cfg.Lenient(), log.With("component", "extractor"))
	client := cnyes.New(cnyes.Options{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.RequestTimeout,
		PageDelay: cfg.PageDelay,
	}, extractor, log)

	runID := uuid.NewString()
	query := cnyes.NewQuery(now, cfg.Days, cfg.PageSize)
	log.Info("scrape started",
		slog.String("run_id", runID),
		slog.Time("start", query.Start),
		slog.Time("end", query.End),
		slog.Bool("publish", pub != nil),
	)

	var onPage func(*cnyes.Page) error
	if pub != nil {
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("close publisher", slog.Any("err", err))
			}
		}()
		onPage = func(p *cnyes.Page) error {
			return pub.PublishPage(ctx, runID, p.Number, p.Raw)
		}
	}

	result, err := client.Scrape(ctx, query, cfg.PageLimit, onPage)
	if err != nil {
		if result == nil || len(result.Records) == 0 || errors.Is(err, context.Canceled) {
			return result, err
		}
		// Keep what was fetched before the failing page.
		log.Warn("scrape stopped early, writing partial results", slog.Any("err", err))
	}

	size, werr := export.WriteCSVFile(cfg.OutputPath, result.Records)
	if werr != nil {
		return result, werr
	}

	log.Info("scrape finished",
		slog.String("run_id", runID),
		slog.Int("pages", result.Pages),
		slog.Int("records", len(result.Records)),
		slog.String("output", cfg.OutputPath),
		slog.Int64("bytes", size),
	)
	for i, rec := range result.Records {
		if i == 3 {
			break
		}
		log.Info("sample", slog.Int("n", i+1), slog.String("id", rec.ID), slog.String("title", rec.Title))
	}

	return result, err
}
