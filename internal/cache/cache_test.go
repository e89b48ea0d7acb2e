package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediahub/mediahub/internal/cache"
	"github.com/mediahub/mediahub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rc.Close()) })

	return rc
}

// --- Ping ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	assert.NoError(t, rc.Ping(context.Background()))
}

// --- Set / Get / Delete ---

func TestSetGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k1", []byte("v1"), time.Minute))

	val, found, err := rc.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), val)
}

func TestGetMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	_, found, err := rc.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k2", []byte("v2"), time.Minute))
	require.NoError(t, rc.Delete(ctx, "k2"))

	_, found, err := rc.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetWithTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "short", []byte("x"), 500*time.Millisecond))

	_, found, err := rc.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(700 * time.Millisecond)

	_, found, err = rc.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- Job Status ---

func TestJobStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	jobID := uuid.New()

	_, found, err := rc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.SetJobStatus(ctx, jobID, models.JobStatusPending, time.Minute))

	status, found, err := rc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.JobStatusPending, status)

	require.NoError(t, rc.SetJobStatus(ctx, jobID, models.JobStatusCompleted, time.Minute))

	status, _, err = rc.GetJobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, status)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	key := cache.RateLimitKey("mh_abcd")
	for want := int64(1); want <= 3; want++ {
		got, err := rc.IncrWithExpiry(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIncrWithExpiry_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	key := cache.RateLimitKey("mh_ttl")
	_, err := rc.IncrWithExpiry(ctx, key, 500*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(700 * time.Millisecond)

	got, err := rc.IncrWithExpiry(ctx, key, 500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}
