package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yeirin/internal/platform/config"
)

type fakeS3 struct {
	s3iface.S3API
	lastPut *s3.PutObjectInput
	body    string
	putErr  error
	deleted []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3StoreWithClient(fake, config.S3Config{Bucket: "reports", Region: "ap-northeast-2"})

	obj, err := store.Put(context.Background(), "reports/r1/a.pdf", strings.NewReader("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "reports", aws.StringValue(fake.lastPut.Bucket))
	assert.Equal(t, "application/pdf", aws.StringValue(fake.lastPut.ContentType))
	assert.Equal(t, "%PDF", fake.body)
	assert.Equal(t, "https://reports.s3.ap-northeast-2.amazonaws.com/reports/r1/a.pdf", obj.URL)
}

func TestS3StoreCustomEndpointURL(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{}, config.S3Config{Bucket: "b", Endpoint: "http://minio:9000/"})
	obj, err := store.Put(context.Background(), "k", strings.NewReader("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/b/k", obj.URL)
}

func TestS3StorePutError(t *testing.T) {
	store := NewS3StoreWithClient(&fakeS3{putErr: errors.New("denied")}, config.S3Config{Bucket: "b"})
	_, err := store.Put(context.Background(), "k", strings.NewReader("x"), "image/png")
	assert.ErrorContains(t, err, "denied")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Put(context.Background(), "k", strings.NewReader("hello"), "image/png")
	require.NoError(t, err)

	data, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(context.Background(), "k"))
	_, ok = store.Get("k")
	assert.False(t, ok)
}
