// Package objectstore uploads report attachments to S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"yeirin/internal/platform/config"
)

// Object is the metadata returned after a successful upload.
type Object struct {
	Key string
	URL string
}

// S3Store writes objects to one bucket.
type S3Store struct {
	client    s3iface.S3API
	bucket    string
	publicURL string
}

// NewS3Store builds an S3 client from static credentials. A custom endpoint
// (MinIO, NCP Object Storage) switches to path-style addressing.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	awsCfg := &aws.Config{
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:      aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}
	return NewS3StoreWithClient(s3.New(sess), cfg), nil
}

// NewS3StoreWithClient is used by tests to inject a fake S3API.
func NewS3StoreWithClient(client s3iface.S3API, cfg config.S3Config) *S3Store {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: publicURL}
}

// Put uploads body under key. Objects stay private; the returned URL is
// resolvable only through the configured public endpoint or a presigned link.
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) (Object, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Object{Key: key, URL: s.publicURL + "/" + key}, nil
}

// Delete removes key; used to roll back an upload whose metadata write failed.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// MemoryStore keeps objects in process; used when S3 is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.ReadSeeker, _ string) (Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("read object body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return Object{Key: key, URL: "memory://" + key}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns a stored object; only the in-memory store supports reads.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return bytes.Clone(data), ok
}
