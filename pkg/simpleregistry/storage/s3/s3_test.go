package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/simpleregistry"
	repomemory "github.com/tendant/simple-registry/pkg/simpleregistry/repo/memory"
)

func newTestBackend(t *testing.T, config Config) *Backend {
	t.Helper()
	if config.AccessKeyID == "" {
		config.AccessKeyID = "test-key"
		config.SecretAccessKey = "test-secret"
	}
	backend, err := New(context.Background(), config)
	require.NoError(t, err)
	return backend
}

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(context.Background(), Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend := newTestBackend(t, Config{Bucket: "registry"})
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})

	t.Run("CustomPresignDuration", func(t *testing.T) {
		backend := newTestBackend(t, Config{Bucket: "registry", PresignDuration: 7200})
		assert.Equal(t, 7200*time.Second, backend.presignDuration)
	})
}

func TestS3Backend_Key(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: "/foo/package.json", want: "foo/package.json"},
		{prefix: "dists", key: "/foo/package.json", want: "dists/foo/package.json"},
		{prefix: "dists/", key: "foo/package.json", want: "dists/foo/package.json"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+tt.key, func(t *testing.T) {
			backend := newTestBackend(t, Config{Bucket: "registry", Prefix: tt.prefix})
			assert.Equal(t, tt.want, backend.key(tt.key))
		})
	}
}

func TestS3Backend_GetDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("Presigned", func(t *testing.T) {
		backend := newTestBackend(t, Config{
			Bucket:       "registry",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
		})

		url, err := backend.GetDownloadURL(ctx, "/foo/-/foo-1.0.0.tgz", "foo-1.0.0.tgz")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/registry/foo/-/foo-1.0.0.tgz?"), url)
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Contains(t, url, "X-Amz-Expires=3600")
		assert.Contains(t, url, "response-content-disposition=")
	})

	t.Run("PresignDisabled", func(t *testing.T) {
		backend := newTestBackend(t, Config{Bucket: "registry", DisablePresign: true})

		_, err := backend.GetDownloadURL(ctx, "/foo/-/foo-1.0.0.tgz", "foo-1.0.0.tgz")
		assert.ErrorIs(t, err, simpleregistry.ErrDirectDownloadRequired)
	})
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantObject     bool
		wantBucketGone bool
	}{
		{name: "NoSuchKey", err: &types.NoSuchKey{}, wantObject: true},
		{name: "NotFound", err: &types.NotFound{}, wantObject: true, wantBucketGone: true},
		{name: "NoSuchBucket", err: fmt.Errorf("get: %w", &types.NoSuchBucket{}), wantObject: false, wantBucketGone: true},
		{name: "NoSuchBucketCode", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, wantObject: false, wantBucketGone: true},
		{name: "GenericNotFoundCode", err: &smithy.GenericAPIError{Code: "NotFound"}, wantObject: true, wantBucketGone: true},
		{name: "AccessDenied", err: &smithy.GenericAPIError{Code: "AccessDenied"}},
		{name: "Plain", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantObject, isNotFound(tt.err))
			assert.Equal(t, tt.wantBucketGone, isBucketMissing(tt.err))
		})
	}
}

// TestS3Backend_MissingBucketIsUnavailable points the backend at an endpoint
// that answers every request with NoSuchBucket.
func TestS3Backend_MissingBucketIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchBucket</Code><Message>The specified bucket does not exist</Message><BucketName>registry</BucketName></Error>`)
	}))
	defer srv.Close()

	backend := newTestBackend(t, Config{
		Bucket:       "registry",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	})
	ctx := context.Background()

	_, err := backend.Download(ctx, "/foo/1.0.0/package.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, simpleregistry.ErrObjectNotFound)

	versions := repomemory.NewVersionRepository()
	dists, err := simpleregistry.NewDistRepository(versions, backend, simpleregistry.WithBackendName("s3"))
	require.NoError(t, err)

	data, err := dists.ReadDistBytes(ctx, simpleregistry.Dist{Path: "/foo/1.0.0/package.json"})
	assert.Nil(t, data)
	assert.ErrorIs(t, err, simpleregistry.ErrStorageUnavailable)
}

// TestS3Backend_MinIO runs against a live S3-compatible endpoint. Set
// S3_TEST_ENDPOINT, S3_TEST_ACCESS_KEY, S3_TEST_SECRET_KEY and S3_TEST_BUCKET.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 os.Getenv("S3_TEST_BUCKET"),
		AccessKeyID:            os.Getenv("S3_TEST_ACCESS_KEY"),
		SecretAccessKey:        os.Getenv("S3_TEST_SECRET_KEY"),
		Endpoint:               endpoint,
		UsePathStyle:           true,
		Prefix:                 fmt.Sprintf("test-%d", time.Now().UnixNano()),
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	key := "/foo/1.0.0/package.json"
	content := `{"name":"foo"}`

	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, simpleregistry.ErrObjectNotFound)

	require.NoError(t, backend.Upload(ctx, key, strings.NewReader(content)))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), meta.Size)

	reader, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, backend.Delete(ctx, key))
	require.NoError(t, backend.Delete(ctx, key))

	_, err = backend.GetObjectMeta(ctx, key)
	assert.ErrorIs(t, err, simpleregistry.ErrObjectNotFound)
}
