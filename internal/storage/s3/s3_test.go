package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/videohub/internal/storage"
)

var _ storage.Storage = (*Storage)(nil)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	body    string
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.err
}

func TestUpload(t *testing.T) {
	fake := &fakeS3{}
	s := newWithClient(fake, Config{Bucket: "videohub-assets", Endpoint: "http://minio:9000/"})

	res, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "avatars/abc.png",
		ContentType: "image/png",
		Size:        5,
		Data:        strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/videohub-assets/avatars/abc.png", res.URL)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "videohub-assets", aws.ToString(put.Bucket))
	assert.Equal(t, "avatars/abc.png", aws.ToString(put.Key))
	assert.Equal(t, "image/png", aws.ToString(put.ContentType))
	assert.Equal(t, int64(5), aws.ToInt64(put.ContentLength))
	assert.Equal(t, "hello", fake.body)
}

func TestUpload_Error(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	s := newWithClient(fake, Config{Bucket: "b", Region: "eu-west-1"})

	_, err := s.Upload(context.Background(), &storage.UploadInput{Key: "k", Data: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	_, err = s.Upload(context.Background(), &storage.UploadInput{Key: "k"})
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"aws", Config{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
		{"custom endpoint", Config{Bucket: "b", Endpoint: "http://localhost:9000"}, "http://localhost:9000/b"},
		{"cdn override", Config{Bucket: "b", Endpoint: "http://localhost:9000", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestDeleteGetURLPing(t *testing.T) {
	fake := &fakeS3{}
	s := newWithClient(fake, Config{Bucket: "b", PublicBaseURL: "https://cdn.example.com"})
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "avatars/x.png"))
	assert.Equal(t, []string{"avatars/x.png"}, fake.deletes)

	url, err := s.GetURL(ctx, "/avatars/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/x.png", url)

	_, err = s.GetURL(ctx, "")
	assert.Error(t, err)

	require.NoError(t, s.Ping(ctx))
	fake.err = errors.New("no such bucket")
	assert.Error(t, s.Ping(ctx))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNew_BuildsClient(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:       "videohub-assets",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	url, err := s.GetURL(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/videohub-assets/k", url)
}
