package testing

import (
	"context"
	"fmt"
	"os"
	gotesting "testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const redisImage = "redis:7-alpine"

// TestRedis is a redis connection plus a key prefix unique to one test
type TestRedis struct {
	Client *redis.Client
	Prefix string
}

// RequireRedis connects to TEST_REDIS_URL or a throwaway container, skipping the
// test when neither is usable. Keys under the returned prefix are removed on
// cleanup.
func RequireRedis(t *gotesting.T) *TestRedis {
	t.Helper()
	if gotesting.Short() {
		t.Skip("skipping redis test in short mode")
	}

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = startRedisContainer(t)
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("invalid redis url %q: %v", url, err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis unavailable: %v", err)
	}

	tr := &TestRedis{Client: client, Prefix: fmt.Sprintf("test:%s:", uuid.NewString())}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		iter := client.Scan(cleanupCtx, 0, tr.Prefix+"*", 100).Iterator()
		for iter.Next(cleanupCtx) {
			_ = client.Del(cleanupCtx, iter.Val()).Err()
		}
		_ = client.Close()
	})
	return tr
}

func startRedisContainer(t *gotesting.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("Failed to get redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%d/0", host, port.Int())
}
