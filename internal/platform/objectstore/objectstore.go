// Package objectstore issues time-limited retrieval URLs for evidence files
// held in S3-compatible storage.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"securitypassport/internal/platform/config"
)

// RetrievalURL grants read access to one object until it expires.
type RetrievalURL struct {
	URL       string
	ExpiresIn time.Duration
}

// Presigner is the subset of the minio client used here.
type Presigner interface {
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

type Store struct {
	client Presigner
	bucket string
	ttl    time.Duration
}

// New builds a presigning client. With Region set, presigning is local and
// no request reaches the storage service until the URL is used.
func New(cfg config.S3Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("objectstore: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return NewWithClient(client, cfg.Bucket, cfg.RetrievalURLTTL), nil
}

func NewWithClient(client Presigner, bucket string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Store{client: client, bucket: bucket, ttl: ttl}
}

// RetrievalURL presigns a GET for key.
func (s *Store) RetrievalURL(ctx context.Context, key string) (RetrievalURL, error) {
	if key == "" {
		return RetrievalURL{}, errors.New("objectstore: empty storage key")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return RetrievalURL{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return RetrievalURL{URL: u.String(), ExpiresIn: s.ttl}, nil
}
