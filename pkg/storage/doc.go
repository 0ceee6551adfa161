// Package storage holds the storage configuration and the object-storage
// boundary used for uploaded images.
//
// # Object storage
//
// ObjectStore takes raw bytes plus the client's file name and returns a
// public URL. Keys have the form <folder>/<uuid>.<ext> and the content type
// is derived from the extension (svg maps to image/svg+xml).
//
// Two implementations exist:
//
//   - S3Store: AWS S3 or any S3-compatible service (MinIO) via aws-sdk-go-v2.
//     Calls are wrapped in OpenTelemetry spans.
//   - FilesystemStore: writes under a local directory that the HTTP server
//     exposes under a public base URL.
//
// Delete only acts on URLs the store handed out; anything else returns
// ErrForeignURL.
//
// # Relational storage
//
// The PostgreSQL connection manager, schema migrations and the Redis client
// live in the postgres subpackage. The in-memory Identity Store used by tests
// and the memory driver lives in the memory subpackage.
package storage
