// Package storage abstracts the object-storage gateway that holds evidence
// artifacts. The service never moves artifact bytes itself: clients write
// and read directly against presigned URLs issued here.
package storage

import (
	"context"
	"time"
)

// Credential is a time-limited presigned URL for a single write or read.
type Credential struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// ObjectInfo describes an object found by Head.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Gateway issues presigned credentials and probes object presence.
// Implementations return common.ErrorNotFound from Head when the object
// does not exist and wrap transport failures so callers can classify them.
type Gateway interface {
	// PresignPut returns a write credential for the given key.
	PresignPut(ctx context.Context, key, contentType string) (*Credential, error)

	// PresignGet returns a read credential for the given key.
	PresignGet(ctx context.Context, key string) (*Credential, error)

	// Head reports whether an object exists at key and its stored metadata.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}
