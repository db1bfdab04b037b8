//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/txplain/tradeintent/internal/models"
)

// TestStoreAgainstRealRedis exercises save/load and TTL expiry against a
// real redis:7-alpine container, as opposed to store_test.go's miniredis
// fake, per the design notes' call for both a fast unit double and a real
// integration check of the serialization/TTL path.
func TestStoreAgainstRealRedis(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	store := NewWithClient(client, 200*time.Millisecond)

	mem := models.Memory{models.NewTextMessage(models.RoleUser, "hello")}
	require.NoError(t, store.SaveMemory(ctx, "sess-rt", mem))

	got, err := store.LoadMemory(ctx, "sess-rt")
	require.NoError(t, err)
	require.Len(t, got, 1)

	time.Sleep(400 * time.Millisecond)
	got, err = store.LoadMemory(ctx, "sess-rt")
	require.NoError(t, err)
	require.Empty(t, got, "session should have expired out of redis")
}
