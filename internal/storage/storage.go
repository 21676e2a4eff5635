package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage stores evidence files under opaque keys inside one bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// IsExternalURL reports whether ref points outside the bucket and must be passed through untouched.
func IsExternalURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// NewEvidenceKey returns a fresh key like pengajuan/2025/03/<uuid>.pdf.
func NewEvidenceKey(at time.Time, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("pengajuan/%04d/%02d/%s%s", at.Year(), int(at.Month()), uuid.NewString(), ext)
}
