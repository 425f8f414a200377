//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/review-harvester/pkg/review"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestManager_Integration_TTLExpiry(t *testing.T) {
	client := setupRedisContainer(t)
	manager := NewManager(client, time.Second)
	ctx := context.Background()

	outcome := review.Outcome{
		Kind:       review.OutcomeSuccess,
		Records:    []review.RawRecord{{Text: "good text", AuthorPlaytimeSeconds: 5000}},
		NextCursor: "AoJ4",
	}
	if err := manager.Set(ctx, testKey(), NewPageEntry(outcome, time.Second)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := manager.Get(ctx, testKey()); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	ttl, err := client.TTL(ctx, testKey().String()).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("redis TTL = %v, want (0, 1s]", ttl)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := manager.Get(ctx, testKey()); err != ErrCacheMiss {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}
