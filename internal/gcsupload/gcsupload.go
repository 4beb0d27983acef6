// Package gcsupload puts CSV exports into the upload bucket so import
// jobs can reference them by gs:// URI.
package gcsupload

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// ObjectName builds the bucket path for an uploaded file:
// uploads/YYYY/MM/DD/<uuid>-<filename>.
func ObjectName(filename string, now time.Time) string {
	return fmt.Sprintf("uploads/%s/%s-%s", now.UTC().Format("2006/01/02"), uuid.New().String(), filename)
}

// Upload streams r into gs://bucket/object and returns the URI.
func Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	return UploadWithClient(ctx, client, bucket, object, contentType, r)
}

// UploadWithClient streams r into gs://bucket/object using the provided
// client.
func UploadWithClient(ctx context.Context, client *storage.Client, bucket, object, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadWithClient: copy to %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadWithClient: finalize %s/%s: %w", bucket, object, err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

// UploadFile uploads a local file.
func UploadFile(ctx context.Context, bucket, object, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("UploadFile: open %q: %w", path, err)
	}
	defer f.Close()

	return Upload(ctx, bucket, object, "text/csv", f)
}
