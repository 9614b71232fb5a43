package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/dedupe"
	"github.com/DeafMist/cnyes-news/internal/lenient"
	"github.com/DeafMist/cnyes-news/internal/logger"
	"github.com/DeafMist/cnyes-news/internal/models"
)

type stubIndexer struct {
	docs []models.IndexedNews
	err  error
}

func (s *stubIndexer) IndexNews(_ context.Context, doc models.IndexedNews) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

func testConfig() *config.Worker {
	return &config.Worker{
		Common: config.Common{
			ElasticsearchAddr:  "http://test",
			ElasticsearchIndex: "cnyes-news",
		},
		KeywordLimit:     5,
		KeywordMinLength: 2,
	}
}

const rawPage = `{"items":{"last_page":1,"data":[
	{"newsId":5012345,"title":"台積電法說會","summary":"<p>台積電上調全年展望</p>","publishAt":1700000000,"categoryName":"台股"},
	{"newsId":5012346,"title":"Fed holds rates","summary":"Unchanged."},
]}}`

func TestProcessMessageIndexesRecords(t *testing.T) {
	log := logger.Discard()
	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}
	extractor := lenient.New(lenient.DefaultConfig(), nil)

	msg := kafka.Message{Value: []byte(rawPage)}

	n, err := processMessage(context.Background(), log, idx, extractor, cache, testConfig(), msg)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, idx.docs, 2)

	doc := idx.docs[0]
	require.Equal(t, "5012345", doc.ID)
	require.Equal(t, "台積電上調全年展望", doc.Text)
	require.Equal(t, "台股", doc.Category)
	require.Equal(t, "https://news.cnyes.com/news/id/5012345", doc.Link)
	require.NotEmpty(t, doc.Keywords)
	require.NotNil(t, doc.PublishedAt)

	require.Equal(t, "uncategorized", idx.docs[1].Category)
	require.Nil(t, idx.docs[1].PublishedAt)

	n, err = processMessage(context.Background(), log, idx, extractor, cache, testConfig(), msg)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, idx.docs, 2)
}

func TestProcessMessageRecoversTruncatedPage(t *testing.T) {
	idx := &stubIndexer{}
	extractor := lenient.New(lenient.DefaultConfig(), nil)
	cut := rawPage[:strings.Index(rawPage, `"Fed holds`)]

	n, err := processMessage(context.Background(), logger.Discard(), idx, extractor, dedupe.NewCache(10, time.Hour), testConfig(), kafka.Message{Value: []byte(cut)})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "5012345", idx.docs[0].ID)
}

func TestProcessMessageFailures(t *testing.T) {
	extractor := lenient.New(lenient.DefaultConfig(), nil)
	cache := dedupe.NewCache(10, time.Hour)

	_, err := processMessage(context.Background(), logger.Discard(), &stubIndexer{}, extractor, cache, testConfig(), kafka.Message{Value: []byte("  ")})
	require.Error(t, err)

	_, err = processMessage(context.Background(), logger.Discard(), &stubIndexer{}, extractor, cache, testConfig(), kafka.Message{Value: []byte(`{"items":{"data":[]}}`)})
	require.ErrorIs(t, err, errNoRecords)

	boom := errors.New("es down")
	_, err = processMessage(context.Background(), logger.Discard(), &stubIndexer{err: boom}, extractor, cache, testConfig(), kafka.Message{Value: []byte(rawPage)})
	require.ErrorIs(t, err, boom)
	require.False(t, cache.IsSeen("5012345"))
}
