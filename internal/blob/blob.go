// Package blob publishes rendered pages to S3 compatible object storage.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pagebuilder/api/internal/config"
)

// ErrDisabled is returned when no object storage endpoint is configured.
var ErrDisabled = errors.New("object storage not configured")

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Publisher struct {
	client objectStore
	bucket string
	now    func() time.Time
}

// New connects to the configured endpoint. An empty endpoint returns ErrDisabled.
func New(cfg config.StorageConfig) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, ErrDisabled
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return newPublisher(client, cfg.Bucket), nil
}

func newPublisher(client objectStore, bucket string) *Publisher {
	return &Publisher{client: client, bucket: bucket, now: time.Now}
}

// Page is one rendered page to upload.
type Page struct {
	ID    int64
	Title string
	HTML  []byte
}

type Manifest struct {
	ProjectID   int64          `json:"projectId"`
	Bucket      string         `json:"bucket"`
	PublishedAt time.Time      `json:"publishedAt"`
	Pages       []ManifestPage `json:"pages"`
}

type ManifestPage struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Key   string `json:"key"`
	Size  int64  `json:"size"`
	ETag  string `json:"etag"`
}

func PageKey(projectID, pageID int64) string {
	return fmt.Sprintf("projects/%d/pages/%d.html", projectID, pageID)
}

func ManifestKey(projectID int64) string {
	return fmt.Sprintf("projects/%d/manifest.json", projectID)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (p *Publisher) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.bucket, err)
	}
	return nil
}

// Publish uploads every page and then the manifest describing them. The
// manifest is written last so readers never see it reference a missing page.
func (p *Publisher) Publish(ctx context.Context, projectID int64, pages []Page) (Manifest, error) {
	if err := p.EnsureBucket(ctx); err != nil {
		return Manifest{}, err
	}

	manifest := Manifest{
		ProjectID:   projectID,
		Bucket:      p.bucket,
		PublishedAt: p.now().UTC(),
		Pages:       make([]ManifestPage, 0, len(pages)),
	}
	for _, page := range pages {
		key := PageKey(projectID, page.ID)
		info, err := p.put(ctx, key, page.HTML, "text/html; charset=utf-8")
		if err != nil {
			return Manifest{}, err
		}
		manifest.Pages = append(manifest.Pages, ManifestPage{
			ID:    page.ID,
			Title: page.Title,
			Key:   key,
			Size:  info.Size,
			ETag:  info.ETag,
		})
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := p.put(ctx, ManifestKey(projectID), raw, "application/json"); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func (p *Publisher) put(ctx context.Context, key string, data []byte, contentType string) (minio.UploadInfo, error) {
	info, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return info, nil
}
