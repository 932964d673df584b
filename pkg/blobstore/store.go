// Package blobstore defines put/get access to story markdown, episode
// markdown, scene images, and episode PDFs under the deterministic key
// layout of spec §3 (C2, spec §4.2).
package blobstore

import "context"

// BlobStore is the capability interface C2 exposes. Puts are overwriting.
// GetText on a missing object fails with apperrors.KindNotFound; network
// or 5xx failures fail with apperrors.KindTransient.
type BlobStore interface {
	PutText(ctx context.Context, key, content, mime string) error
	PutBinary(ctx context.Context, key string, data []byte, mime string) error
	GetText(ctx context.Context, key string) (string, error)
}
