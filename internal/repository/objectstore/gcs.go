package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	drepo "StockPilot/internal/domain/repository"
)

// GCS stores objects in a Google Cloud Storage bucket. Credentials come from
// the environment (application default credentials).
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// PutIfAbsent uploads with a does-not-exist precondition so the object is
// never replaced.
func (g *GCS) PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) error {
	obj := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return g.mapErr(key, err)
	}
	if err := w.Close(); err != nil {
		return g.mapErr(key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs %s: %w", key, drepo.ErrNotFound)
		}
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s: %w", key, err)
	}
	return b, nil
}

func (g *GCS) URI(key string) string { return "gs://" + g.bucket + "/" + key }

func (g *GCS) Key(uri string) (string, error) {
	prefix := "gs://" + g.bucket + "/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("uri %q is not in bucket %s", uri, g.bucket)
	}
	return strings.TrimPrefix(uri, prefix), nil
}

func (g *GCS) Close() error { return g.client.Close() }

func (g *GCS) mapErr(key string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("gcs %s: %w", key, drepo.ErrObjectExists)
	}
	return fmt.Errorf("gcs write %s: %w", key, err)
}

var _ drepo.ObjectStore = (*GCS)(nil)
