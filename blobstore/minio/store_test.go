package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/segcoll/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance at MINIO_ENDPOINT
// (default localhost:9000). It is skipped when none is reachable.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "segcoll-test"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	require.NoError(t, store.Put(ctx, "q/seg-0-v1", []byte("segment")))
	require.NoError(t, store.Put(ctx, "q/manifest-v1", []byte("manifest")))

	data, err := store.Get(ctx, "q/seg-0-v1")
	require.NoError(t, err)
	require.Equal(t, []byte("segment"), data)

	names, err := store.List(ctx, "q/")
	require.NoError(t, err)
	require.Equal(t, []string{"q/manifest-v1", "q/seg-0-v1"}, names)

	require.NoError(t, store.Delete(ctx, "q/seg-0-v1"))
	require.NoError(t, store.Delete(ctx, "q/manifest-v1"))

	_, err = store.Get(ctx, "q/seg-0-v1")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}
