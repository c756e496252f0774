package storage

import (
	"fmt"

	"procurement_backend/platform/apperr"
)

// Signature artifacts are captured as images; nothing else belongs in the
// signature bucket.
var allowedContentTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/svg+xml": true,
	"image/webp":    true,
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	if !allowedContentTypes[contentType] {
		return apperr.Validation(fmt.Sprintf("content type %s is not allowed for signatures", contentType))
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return apperr.Validation("file is empty")
	}
	if sizeBytes > s.maxFileSize {
		return apperr.Validation(fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxFileSize))
	}
	return nil
}
