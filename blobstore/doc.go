// Package blobstore provides storage backends for saved index files.
//
// Store is the interface for writing, reading and listing named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 and S3-compatible services
//   - minio.Store: MinIO
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error          // Atomic write
//	    Open(ctx, name) (Blob, error)       // Open for reading
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
