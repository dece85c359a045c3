package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/foundit/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil))).With("source", "test")

	parent := logging.WithAttrs(context.Background(), slog.String("request_id", "r1"))
	first := logging.WithAttrs(parent, slog.String("item_id", "a"))
	second := logging.WithAttrs(parent, slog.String("item_id", "b"))

	logger.InfoContext(first, "first")
	require.Contains(t, buf.String(), "source=test")
	require.Contains(t, buf.String(), "request_id=r1")
	require.Contains(t, buf.String(), "item_id=a")

	buf.Reset()
	logger.InfoContext(second, "second")
	require.Contains(t, buf.String(), "item_id=b")
	require.NotContains(t, buf.String(), "item_id=a")

	buf.Reset()
	logger.InfoContext(context.Background(), "plain")
	require.NotContains(t, buf.String(), "request_id")
}
