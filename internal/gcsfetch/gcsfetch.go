// Package gcsfetch reads uploaded CSV exports from Google Cloud Storage
// so import jobs can reference a gs:// URI instead of inlining the file.
package gcsfetch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

const uriScheme = "gs://"

// ParseURI splits a gs://bucket/object URI.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("ParseURI: not a gs:// uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, uriScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("ParseURI: malformed gs:// uri: %q", uri)
	}
	return bucket, object, nil
}

// Fetch downloads one object and returns its contents.
func Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: create storage client: %w", err)
	}
	defer client.Close()

	return FetchWithClient(ctx, client, bucket, object)
}

// FetchWithClient downloads one object using the provided client.
func FetchWithClient(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, error) {
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchWithClient: open %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("FetchWithClient: read %s/%s: %w", bucket, object, err)
	}
	return data, nil
}
