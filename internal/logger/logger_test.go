package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	scoped := wrap(zap.New(core)).With(String("request_id", "abc"))

	ctx := IntoContext(context.Background(), scoped)
	FromContext(ctx, Nop()).Info("hello", Session("s-1"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "abc", fields["request_id"])
		assert.Equal(t, "s-1", fields["session"])
	}
}

func TestFromContextFallback(t *testing.T) {
	fallback := Nop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}

func TestNewAcceptsUnknownLevel(t *testing.T) {
	assert.NotPanics(t, func() {
		l := New("verbose", false, String("service", "test"))
		l.Debug("dropped")
		_ = l.Sync()
	})
}
