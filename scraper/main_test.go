package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/logger"
)

type recordingPublisher struct {
	pages  []int
	runIDs map[string]struct{}
	err    error
	closed bool
}

func (p *recordingPublisher) PublishPage(_ context.Context, runID string, page int, body string) error {
	if p.err != nil {
		return p.err
	}
	if p.runIDs == nil {
		p.runIDs = map[string]struct{}{}
	}
	p.runIDs[runID] = struct{}{}
	p.pages = append(p.pages, page)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func listingServer(t *testing.T, lastPage int, failPage int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == fmt.Sprint(failPage) {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"items":{"last_page":%d,"data":[{"newsId":"%s1","title":"headline %s","summary":"body"},]}}`, lastPage, page, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testScraperConfig(t *testing.T, url string) *config.Scraper {
	t.Helper()
	return &config.Scraper{
		Extraction: config.Extraction{
			LinkTemplate:    "https://m.cnyes.com/news/id/{id}",
			DefaultCategory: "uncategorized",
			MaxTruncations:  5,
		},
		APIURL:         url,
		PageSize:       30,
		Days:           10,
		RequestTimeout: time.Second,
		OutputPath:     filepath.Join(t.TempDir(), "news.csv"),
	}
}

func TestRunWritesCSVAndPublishes(t *testing.T) {
	srv := listingServer(t, 3, 0)
	cfg := testScraperConfig(t, srv.URL)
	pub := &recordingPublisher{}

	res, err := run(context.Background(), logger.Discard(), cfg, pub, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, res.Pages)
	require.Len(t, res.Records, 3)

	require.Equal(t, []int{1, 2, 3}, pub.pages)
	require.Len(t, pub.runIDs, 1)
	require.True(t, pub.closed)

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "newsId,title,summary,publishAt,categoryName,link", lines[0])
	require.Equal(t, "11,headline 1,body,,uncategorized,https://m.cnyes.com/news/id/11", lines[1])
}

func TestRunHonoursPageLimit(t *testing.T) {
	srv := listingServer(t, 5, 0)
	cfg := testScraperConfig(t, srv.URL)
	cfg.PageLimit = 2

	res, err := run(context.Background(), logger.Discard(), cfg, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, res.Pages)
}

func TestRunKeepsPartialResults(t *testing.T) {
	srv := listingServer(t, 3, 2)
	cfg := testScraperConfig(t, srv.URL)

	res, err := run(context.Background(), logger.Discard(), cfg, nil, time.Now())
	require.Error(t, err)
	require.Len(t, res.Records, 1)
	require.FileExists(t, cfg.OutputPath)
}

func TestRunPublishFailureStops(t *testing.T) {
	srv := listingServer(t, 3, 0)
	cfg := testScraperConfig(t, srv.URL)
	boom := errors.New("broker down")

	_, err := run(context.Background(), logger.Discard(), cfg, &recordingPublisher{err: boom}, time.Now())
	require.ErrorIs(t, err, boom)
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	cfg := testScraperConfig(t, "http://unused")
	cmd := newRootCmd(cfg, logger.Discard())

	require.NoError(t, cmd.ParseFlags([]string{"--days", "3", "--page-limit", "2", "-o", "out.csv", "--brokers", "a:9092,b:9092"}))
	require.Equal(t, 3, cfg.Days)
	require.Equal(t, 2, cfg.PageLimit)
	require.Equal(t, "out.csv", cfg.OutputPath)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}
