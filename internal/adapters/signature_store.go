// Package adapters contains thin cross-module glue: narrow interface
// implementations that let domain modules collaborate without importing each
// other's internals.
package adapters

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/adapters/storage"

	"github.com/google/uuid"
)

// SignatureStore persists captured signature images in object storage and
// returns the object key recorded on the signature row.
type SignatureStore struct {
	storage storage.StorageService
	bucket  string
}

// NewSignatureStore creates a signature store writing to the given bucket.
func NewSignatureStore(svc storage.StorageService, bucket string) *SignatureStore {
	return &SignatureStore{storage: svc, bucket: bucket}
}

// UploadSignature stores one signature artifact. Keys are unique per upload
// so a retried sign attempt never overwrites an earlier artifact.
func (s *SignatureStore) UploadSignature(ctx context.Context, entityType string, entityID uuid.UUID, level int, content []byte, contentType string) (string, error) {
	folder := fmt.Sprintf("%s/%s", entityType, entityID)
	fileName := fmt.Sprintf("level-%d-%d%s", level, time.Now().UnixMilli(), extensionFor(contentType))

	return s.storage.UploadFile(ctx, s.bucket, folder, fileName, contentType,
		bytes.NewReader(content), int64(len(content)))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
