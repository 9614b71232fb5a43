package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/cnyes-news/internal/config"
	"github.com/DeafMist/cnyes-news/internal/logger"
)

type stubPruner struct {
	maxAge    time.Duration
	batchSize int
	deleted   int64
	err       error
}

func (s *stubPruner) DeleteOlderThan(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.maxAge = maxAge
	s.batchSize = batchSize
	return s.deleted, s.err
}

func TestRunOnce(t *testing.T) {
	cfg := &config.Retention{MaxAge: 720 * time.Hour, BatchSize: 500}

	p := &stubPruner{deleted: 42}
	require.EqualValues(t, 42, runOnce(context.Background(), logger.Discard(), p, cfg))
	require.Equal(t, 720*time.Hour, p.maxAge)
	require.Equal(t, 500, p.batchSize)

	p = &stubPruner{err: errors.New("cluster red")}
	require.Zero(t, runOnce(context.Background(), logger.Discard(), p, cfg))
}
