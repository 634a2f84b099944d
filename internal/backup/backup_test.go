package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theme-section-installer/internal/config"
)

func TestStoreSaveAndLoad(t *testing.T) {
	objects := NewMemoryObjectStore()
	s := NewStore(objects, "asset-backups")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	key, err := s.Save(context.Background(), "demo.myshopify.com", 7, "sections/hero.liquid", "<old/>", "update")
	require.NoError(t, err)
	assert.Equal(t, "asset-backups/demo.myshopify.com/7/sections/hero.liquid/20260301T123000Z-update", key)

	body, err := s.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "<old/>", body)
	assert.Equal(t, []string{key}, objects.Keys())
}

func TestMemoryObjectStoreNotFound(t *testing.T) {
	_, err := NewMemoryObjectStore().GetObject(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeS3 struct {
	puts map[string]string
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.puts[*in.Bucket+"/"+*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	v, ok := f.puts[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func TestS3ObjectStore(t *testing.T) {
	client := &fakeS3{puts: map[string]string{}}
	store := NewS3ObjectStore(client, "bucket")
	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "a/b", []byte("body")))
	assert.Equal(t, "body", client.puts["bucket/a/b"])

	got, err := store.GetObject(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "body", string(got))

	_, err = store.GetObject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSaveWrapsErrors(t *testing.T) {
	client := &fakeS3{puts: map[string]string{}, err: errors.New("denied")}
	s := NewStore(NewS3ObjectStore(client, "bucket"), "p")
	_, err := s.Save(context.Background(), "demo.myshopify.com", 1, "sections/a.liquid", "x", "uninstall")
	assert.ErrorContains(t, err, "denied")
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(config.BackupConfig{Region: "us-east-1", Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NotNil(t, c)
	assert.Equal(t, "us-east-1", c.Options().Region)
	assert.True(t, c.Options().UsePathStyle)
}
