package media

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSClient stores assets in a single Google Cloud Storage bucket.
// Object keys double as storage ids so Delete needs no lookup table.
type GCSClient struct {
	log           *zap.Logger
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

func NewGCSClient(ctx context.Context, log *zap.Logger, bucket, publicBaseURL string) (*GCSClient, error) {
	if bucket == "" {
		return nil, fmt.Errorf("media bucket name is empty")
	}

	var opts []option.ClientOption
	if host := os.Getenv("STORAGE_EMULATOR_HOST"); host != "" {
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSClient{
		log:           log.With(zap.String("component", "media")),
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (g *GCSClient) Upload(ctx context.Context, content []byte, dest string) (*StoredAsset, error) {
	w := g.client.Bucket(g.bucket).Object(dest).NewWriter(ctx)
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write object %s: %w", dest, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize object %s: %w", dest, err)
	}

	g.log.Debug("uploaded asset", zap.String("key", dest), zap.Int("bytes", len(content)))
	return &StoredAsset{
		StorageID: dest,
		URL:       fmt.Sprintf("%s/%s/%s", g.publicBaseURL, g.bucket, dest),
	}, nil
}

func (g *GCSClient) Delete(ctx context.Context, storageID string) error {
	if err := g.client.Bucket(g.bucket).Object(storageID).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", storageID, err)
	}
	return nil
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
