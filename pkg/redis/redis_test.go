package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wonny/marketpulse/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(context.Background(), config.RedisConfig{Enabled: false})
	cache := NewCache(client, "marketpulse")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestBarsKey(t *testing.T) {
	day := time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "bars:yahoo:AAPL:1mo:2024-01-02", BarsKey("yahoo", "aapl", "1mo", day))
}

func TestCache_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := New(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port.Port()})
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "marketpulse")

	var got []float64
	found, err := cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "closes", []float64{10, 12, 11}, time.Minute))
	found, err = cache.Get(ctx, "closes", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float64{10, 12, 11}, got)

	require.NoError(t, cache.Delete(ctx, "closes"))
	found, err = cache.Get(ctx, "closes", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
