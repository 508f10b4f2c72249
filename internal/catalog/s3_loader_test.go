package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"storefront/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string][]byte
	calls   []string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.calls = append(f.calls, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) ([]model.Product, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) ([]model.Product, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

func TestS3Loader_Load(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"bucket/catalog/products.jsonl.gz": gzipLines(t, []string{logoLine}),
	}}
	loader := NewS3LoaderWithClient(client, "bucket", zerolog.Nop())

	products, err := loader.Load(context.Background(), "catalog/products.jsonl.gz")

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "logo", products[0].ID)
	assert.Equal(t, []string{"bucket/catalog/products.jsonl.gz"}, client.calls)
}

func TestS3Loader_Load_Errors(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"bucket/bad.gz": []byte("not gzip"),
	}}
	loader := NewS3LoaderWithClient(client, "bucket", zerolog.Nop())

	_, err := loader.Load(context.Background(), "missing.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get object from S3")

	_, err = loader.Load(context.Background(), "bad.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestFallbackLoader_S3Success(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.Product, error) {
			assert.Equal(t, "catalog/products.gz", path, "S3 key should have prefix")
			return []model.Product{{ID: "from-s3"}}, nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.Product, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	products, err := NewFallbackLoader(s3Loader, fileLoader, "catalog/", zerolog.Nop()).
		Load(context.Background(), "products.gz")

	require.NoError(t, err)
	assert.Equal(t, "from-s3", products[0].ID)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.Product, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.Product, error) {
			assert.Equal(t, "products.gz", path, "local file path should not have prefix")
			return []model.Product{{ID: "from-disk"}}, nil
		},
	}

	products, err := NewFallbackLoader(s3Loader, fileLoader, "catalog/", zerolog.Nop()).
		Load(context.Background(), "products.gz")

	require.NoError(t, err)
	assert.Equal(t, "from-disk", products[0].ID)
}

func TestFallbackLoader_NoS3(t *testing.T) {
	called := false
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.Product, error) {
			called = true
			return nil, nil
		},
	}

	_, err := NewFallbackLoader(nil, fileLoader, "catalog/", zerolog.Nop()).Load(context.Background(), "p.gz")

	require.NoError(t, err)
	assert.True(t, called)
}
