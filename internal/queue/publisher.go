package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Header keys attached to raw page messages.
const (
	HeaderRunID     = "run_id"
	HeaderPage      = "page"
	HeaderFetchedAt = "fetched_at"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher ships raw listing pages to Kafka for the indexing worker.
type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

// NewPublisher builds a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	})
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

// PageMessage builds the Kafka message for one raw page body.
func PageMessage(runID string, page int, body string, fetchedAt time.Time) kafka.Message {
	return kafka.Message{
		Key:   []byte(runID + "/" + strconv.Itoa(page)),
		Value: []byte(body),
		Headers: []kafka.Header{
			{Key: HeaderRunID, Value: []byte(runID)},
			{Key: HeaderPage, Value: []byte(strconv.Itoa(page))},
			{Key: HeaderFetchedAt, Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}
}

// PublishPage writes one raw page body.
func (p *Publisher) PublishPage(ctx context.Context, runID string, page int, body string) error {
	if err := p.w.WriteMessages(ctx, PageMessage(runID, page, body, p.now())); err != nil {
		return fmt.Errorf("publish page %d: %w", page, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Header returns the value of key in headers, or "".
func Header(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
