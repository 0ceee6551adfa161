package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects      map[string][]byte
	contentTypes map[string]string
	bucketExists bool
	created      bool
	putErr       error
	deleteErr    error
	createErr    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
		bucketExists: true,
	}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.contentTypes[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = true
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit", Config{S3PublicBaseURL: "https://cdn.grinplace.com/", S3Bucket: "b"}, "https://cdn.grinplace.com"},
		{"custom endpoint", Config{S3Endpoint: "http://localhost:9000", S3Bucket: "grinplace"}, "http://localhost:9000/grinplace"},
		{"aws", Config{S3Bucket: "grinplace", S3Region: "eu-west-1"}, "https://grinplace.s3.eu-west-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestS3Store_Upload(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, Config{S3Bucket: "grinplace", S3Region: "us-east-1"})

	url, err := store.Upload(context.Background(), Object{
		Folder:       "profile",
		OriginalName: "logo.svg",
		Body:         strings.NewReader("<svg/>"),
		Size:         6,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://grinplace.s3.us-east-1.amazonaws.com/profile/"))
	assert.True(t, strings.HasSuffix(url, ".svg"))

	key := strings.TrimPrefix(url, "https://grinplace.s3.us-east-1.amazonaws.com/")
	assert.Equal(t, []byte("<svg/>"), fake.objects[key])
	assert.Equal(t, "image/svg+xml", fake.contentTypes[key])
}

func TestS3Store_UploadError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := newS3Store(fake, Config{S3Bucket: "grinplace"})

	_, err := store.Upload(context.Background(), Object{Folder: "profile", OriginalName: "a.png", Body: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload to s3")
}

func TestS3Store_Delete(t *testing.T) {
	fake := newFakeS3()
	store := newS3Store(fake, Config{S3Bucket: "grinplace", S3PublicBaseURL: "https://cdn.grinplace.com"})
	ctx := context.Background()

	fake.objects["profile/a.png"] = []byte("x")

	require.NoError(t, store.Delete(ctx, "https://cdn.grinplace.com/profile/a.png"))
	assert.NotContains(t, fake.objects, "profile/a.png")

	assert.ErrorIs(t, store.Delete(ctx, "https://elsewhere.com/profile/a.png"), ErrForeignURL)

	fake.deleteErr = errors.New("boom")
	err := store.Delete(ctx, "https://cdn.grinplace.com/profile/b.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete object")
}

func TestS3Store_EnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		fake := newFakeS3()
		store := newS3Store(fake, Config{S3Bucket: "grinplace"})
		require.NoError(t, store.ensureBucket(context.Background()))
		assert.False(t, fake.created)
	})

	t.Run("created", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		store := newS3Store(fake, Config{S3Bucket: "grinplace"})
		require.NoError(t, store.ensureBucket(context.Background()))
		assert.True(t, fake.created)
		assert.NoError(t, store.HealthCheck(context.Background()))
	})

	t.Run("race with another creator", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		fake.createErr = &types.BucketAlreadyOwnedByYou{}
		store := newS3Store(fake, Config{S3Bucket: "grinplace"})
		assert.NoError(t, store.ensureBucket(context.Background()))
	})

	t.Run("create fails", func(t *testing.T) {
		fake := newFakeS3()
		fake.bucketExists = false
		fake.createErr = errors.New("forbidden")
		store := newS3Store(fake, Config{S3Bucket: "grinplace"})
		err := store.ensureBucket(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create bucket")
	})
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{S3Region: "us-east-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 bucket is required")
}
