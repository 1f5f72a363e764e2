package ctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "abc")

	got := LoggerFromContext(ContextWithLogger(context.Background(), l))
	got.Info("document created")

	assert.Same(t, l, got)
	assert.Contains(t, buf.String(), "request_id=abc")
}

func TestLoggerFromContextDefault(t *testing.T) {
	assert.Same(t, slog.Default(), LoggerFromContext(context.Background()))
	assert.Same(t, slog.Default(), LoggerFromContext(ContextWithLogger(context.Background(), nil)))
}
