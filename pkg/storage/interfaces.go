package storage

import (
	"context"
	"io"
	"time"
)

// Object is an upload handed to an ObjectStore.
type Object struct {
	// Folder is the key prefix, e.g. "profile" or "logos".
	Folder string
	// OriginalName is the client-supplied file name; only its extension is used.
	OriginalName string
	Body         io.Reader
	Size         int64
}

// ObjectStore stores uploaded files and hands back a public URL.
type ObjectStore interface {
	// Upload stores the object under a fresh key and returns its public URL.
	Upload(ctx context.Context, obj Object) (string, error)
	// Delete removes the object behind url. URLs the store does not own
	// return ErrForeignURL.
	Delete(ctx context.Context, url string) error
	// Owns reports whether url points into this store.
	Owns(url string) bool
}

// Config for the persistence and object storage backends
type Config struct {
	Driver string // "postgres" or "memory"

	// PostgreSQL config
	PostgresURL         string
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	PostgresMaxLifetime time.Duration

	ObjectBackend string // "s3" or "filesystem"

	// Filesystem config
	FilesystemRoot    string
	FilesystemBaseURL string

	// S3 config
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3PublicBaseURL string
	S3CreateBucket  bool

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Driver:              "memory",
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		ObjectBackend:       "filesystem",
		FilesystemRoot:      "./uploads",
		FilesystemBaseURL:   "http://localhost:3000/uploads",
		S3Region:            "us-east-1",
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
	}
}
