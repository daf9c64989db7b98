package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("svc", "production", "loud")
	assert.Error(t, err)

	logger, err := New("svc", "production", "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestContextRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).With(zap.String("request_id", "abc"))

	ctx := WithContext(context.Background(), logger)
	FromContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["request_id"])

	assert.Same(t, zap.L(), FromContext(context.Background()))
	assert.Equal(t, context.Background(), WithContext(context.Background(), nil))
}
