package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/dedupe"
	"github.com/DeafMist/cnyes-news/internal/elasticsearch"
	"github.com/DeafMist/cnyes-news/internal/lenient"
	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/models"
	"github.com/DeafMist/cnyes-news/internal/processing"
	"github.com/DeafMist/cnyes-news/internal/queue"
)

var errNoRecords = errors.New("no records extracted from page")

type newsIndexer interface {
	IndexNews(ctx context.Context, doc models.IndexedNews) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, cfg.ConnectAttempts, cfg.ConnectDelay, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)
	extractor := lenient.New(cfg.Lenient(), log.With("component", "extractor"))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		indexed, err := processMessage(ctx, log, esClient, extractor, cache, cfg, msg)
		if err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("run_id", queue.Header(msg.Headers, queue.HeaderRunID)),
			)

			if dlqErr := sendToDLQ(ctx, log, dlqWriter, msg, err); dlqErr != nil {
				if ctx.Err() != nil {
					log.Info("context canceled during DLQ retry")
					return
				}
				// Skipping the commit means the page is reprocessed after restart.
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Any("err", dlqErr),
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Error("commit failed message to dlq", slog.Any("err", err))
			}
			continue
		}

		log.Debug("page processed",
			slog.String("page", queue.Header(msg.Headers, queue.HeaderPage)),
			slog.Int("indexed", indexed),
		)
		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

func sendToDLQ(ctx context.Context, log *slog.Logger, w *kafka.Writer, msg kafka.Message, cause error) error {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	return retry.Do(
		func() error { return w.WriteMessages(ctx, dlqMsg) },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("DLQ write failed, retrying", slog.Any("err", err), slog.Int("attempt", int(n)+1))
		}),
	)
}

// processMessage extracts the records of one raw page and indexes the unseen ones.
func processMessage(ctx context.Context, log *slog.Logger, idx newsIndexer, extractor *lenient.Extractor, cache *dedupe.Cache, cfg *config.Worker, msg kafka.Message) (int, error) {
	body := strings.TrimSpace(string(msg.Value))
	if body == "" {
		return 0, errors.New("empty payload")
	}

	records := extractor.Extract(body)
	if len(records) == 0 {
		return 0, errNoRecords
	}

	indexed := 0
	now := time.Now()
	for _, rec := range records {
		if cache.IsSeen(rec.ID) {
			log.Debug("duplicate news", slog.String("id", rec.ID))
			continue
		}

		doc := processing.BuildDocument(rec, cfg.KeywordLimit, cfg.KeywordMinLength, now)
		if err := idx.IndexNews(ctx, doc); err != nil {
			return indexed, fmt.Errorf("index news %s: %w", rec.ID, err)
		}

		cache.MarkSeen(rec.ID)
		indexed++
		log.Info("indexed news", slog.String("id", doc.ID), slog.String("title", doc.Title))
	}

	return indexed, nil
}
