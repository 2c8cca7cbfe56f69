// Package storage provides the document object store reached through
// presigned URLs: the API hands the client a PUT URL, the client uploads
// directly, then registers the file metadata.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type ObjectStore interface {
	// PresignUpload returns a URL the client can PUT the file to, valid for
	// the returned duration.
	PresignUpload(ctx context.Context, key, mimeType string) (string, time.Duration, error)
	// PresignDownload returns a time-limited GET URL for the object.
	PresignDownload(ctx context.Context, key string) (string, time.Duration, error)
}

type Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	URLExpiry    time.Duration
}

type s3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
}

func NewS3Store(ctx context.Context, cfg Config) (ObjectStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	opts := s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := s3.New(opts)

	if cfg.URLExpiry == 0 {
		cfg.URLExpiry = 15 * time.Minute
	}

	return &s3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

func (s *s3Store) PresignUpload(ctx context.Context, key, mimeType string) (string, time.Duration, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}, s3.WithPresignExpires(s.cfg.URLExpiry))
	if err != nil {
		return "", 0, fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, s.cfg.URLExpiry, nil
}

func (s *s3Store) PresignDownload(ctx context.Context, key string) (string, time.Duration, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.URLExpiry))
	if err != nil {
		return "", 0, fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, s.cfg.URLExpiry, nil
}

// ObjectKey builds the storage key for one uploaded document version.
func ObjectKey(physicianID uuid.UUID, documentType, fileName string) string {
	return fmt.Sprintf("physicians/%s/%s/%s-%s", physicianID, documentType, uuid.New(), fileName)
}
