//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return host, mapped.Port()
}

func TestRedisStoreIntegration(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")

	ctx := context.Background()
	client, err := NewRedisClient(ctx, fmt.Sprintf("%s:%s", host, port), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Hour, nil)
	record, err := store.Save(ctx, sampleAnalysis())
	require.NoError(t, err)

	loaded, err := store.Get(ctx, record.Code)
	require.NoError(t, err)
	assert.Equal(t, record.Code, loaded.Analysis.ReferenceCode)
	assert.Equal(t, "B1-HIP01", loaded.Analysis.Offers[0].ID)

	ttl, err := client.TTL(ctx, redisKeyPrefix+record.Code).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	_, err = store.Get(ctx, "SIM-1-000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreIntegration(t *testing.T) {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "creditsim_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/creditsim_test?sslmode=disable", host, port)
	migrator := NewMigrator(dsn, nil)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up(), "re-running migrations must be a no-op")

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool, nil)
	record, err := store.Save(ctx, sampleAnalysis())
	require.NoError(t, err)

	loaded, err := store.Get(ctx, record.Code)
	require.NoError(t, err)
	assert.Equal(t, record.Code, loaded.Code)
	assert.Equal(t, 9455.96, loaded.Analysis.Offers[0].MonthlyPayment)

	_, err = store.Get(ctx, "SIM-1-000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, migrator.Down(2))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
