package transport

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/robolink/errors"
	"github.com/c360/robolink/metric"
)

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{ConnectionStatus(99), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.status.String())
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, 256, c.subscribeBuffer)
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithName("robolink"),
		WithMaxReconnects(5),
		WithReconnectWait(time.Second),
		WithTimeout(2*time.Second),
		WithDrainTimeout(3*time.Second),
		WithSubscribeBuffer(64),
		WithCredentials("user", "pass"),
		WithLogger(slog.Default()),
	)
	require.NoError(t, err)
	assert.Equal(t, "robolink", c.clientName)
	assert.Equal(t, 5, c.maxReconnects)
	assert.Equal(t, time.Second, c.reconnectWait)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, 3*time.Second, c.drainTimeout)
	assert.Equal(t, 64, c.subscribeBuffer)
}

func TestNewClient_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  ClientOption
	}{
		{"negative reconnect wait", WithReconnectWait(-time.Second)},
		{"zero timeout", WithTimeout(0)},
		{"zero drain timeout", WithDrainTimeout(0)},
		{"zero subscribe buffer", WithSubscribeBuffer(0)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewClient("nats://localhost:4222", test.opt)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = c.Publish(context.Background(), "rt.robot.joint_commands", []byte{0x00, 0x01, 0x00, 0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotConnected)
	assert.True(t, errors.IsTransient(err))
}

func TestSubscribe_NotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = c.Subscribe(context.Background(), "rt.robot.joint_states", func([]byte) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotConnected)
}

func TestWithMetricsRegistry(t *testing.T) {
	registry := metric.NewRegistry()
	c, err := NewClient("nats://localhost:4222", WithMetricsRegistry(registry))
	require.NoError(t, err)
	require.NotNil(t, c.metrics)

	// Failure counter and connected gauge follow client state
	c.recordFailure()
	c.setStatus(StatusConnected)
	c.setStatus(StatusDisconnected)
	assert.Equal(t, int32(1), c.GetStats().Failures)
}

func TestConnect_FailureIsFatal(t *testing.T) {
	// Nothing listens here; connect must fail fast and classify as fatal.
	c, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(100*time.Millisecond),
		WithMaxReconnects(0),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, int32(1), c.GetStats().Failures)
}

func TestClose_Idempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))
}
