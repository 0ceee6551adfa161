package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "memory", cfg.Driver)
	assert.Equal(t, "filesystem", cfg.ObjectBackend)
	assert.Equal(t, "./uploads", cfg.FilesystemRoot)
	assert.Equal(t, "http://localhost:3000/uploads", cfg.FilesystemBaseURL)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, 20, cfg.PostgresMaxConns)
	assert.Equal(t, 2, cfg.PostgresMinConns)
	assert.Equal(t, 10*time.Second, cfg.PostgresTimeout)
	assert.Equal(t, 3, cfg.RedisMaxRetries)
	assert.Equal(t, 10, cfg.RedisPoolSize)
}

func TestObjectStoreImplementations(t *testing.T) {
	var _ ObjectStore = (*FilesystemStore)(nil)
	var _ ObjectStore = (*S3Store)(nil)
}
