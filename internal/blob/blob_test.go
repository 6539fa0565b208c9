package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/api/internal/config"
)

type putCall struct {
	key         string
	body        string
	contentType string
}

type fakeObjectStore struct {
	exists   bool
	made     bool
	puts     []putCall
	failKey  string
	existErr error
}

func (f *fakeObjectStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existErr
}

func (f *fakeObjectStore) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made = true
	f.exists = true
	return nil
}

func (f *fakeObjectStore) PutObject(_ context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if object == f.failKey {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts = append(f.puts, putCall{key: object, body: string(body), contentType: opts.ContentType})
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size, ETag: "etag-" + object}, nil
}

func TestNewDisabledWithoutEndpoint(t *testing.T) {
	_, err := New(config.StorageConfig{})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestNewBuildsClient(t *testing.T) {
	p, err := New(config.StorageConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "sites"})
	require.NoError(t, err)
	assert.Equal(t, "sites", p.bucket)
}

func TestPublishUploadsPagesThenManifest(t *testing.T) {
	fake := &fakeObjectStore{}
	p := newPublisher(fake, "sites")
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	manifest, err := p.Publish(context.Background(), 7, []Page{
		{ID: 1, Title: "Home", HTML: []byte("<html>home</html>")},
		{ID: 2, Title: "About", HTML: []byte("<html>about</html>")},
	})
	require.NoError(t, err)
	assert.True(t, fake.made)

	require.Len(t, fake.puts, 3)
	assert.Equal(t, "projects/7/pages/1.html", fake.puts[0].key)
	assert.Equal(t, "text/html; charset=utf-8", fake.puts[0].contentType)
	assert.Equal(t, "projects/7/pages/2.html", fake.puts[1].key)
	assert.Equal(t, "projects/7/manifest.json", fake.puts[2].key)
	assert.Equal(t, "application/json", fake.puts[2].contentType)

	var stored Manifest
	require.NoError(t, json.Unmarshal([]byte(fake.puts[2].body), &stored))
	assert.Equal(t, manifest, stored)
	assert.Equal(t, fixed, stored.PublishedAt)
	require.Len(t, stored.Pages, 2)
	assert.Equal(t, int64(len("<html>home</html>")), stored.Pages[0].Size)
	assert.Equal(t, "etag-projects/7/pages/2.html", stored.Pages[1].ETag)
}

func TestPublishStopsBeforeManifestOnFailure(t *testing.T) {
	fake := &fakeObjectStore{exists: true, failKey: "projects/7/pages/2.html"}
	_, err := newPublisher(fake, "sites").Publish(context.Background(), 7, []Page{
		{ID: 1, HTML: []byte("a")},
		{ID: 2, HTML: []byte("b")},
	})
	require.Error(t, err)
	require.Len(t, fake.puts, 1)
	assert.False(t, fake.made)
}

func TestEnsureBucketError(t *testing.T) {
	fake := &fakeObjectStore{existErr: errors.New("dns")}
	require.Error(t, newPublisher(fake, "sites").EnsureBucket(context.Background()))
}
