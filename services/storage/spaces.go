package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SpacesClient handles object storage on DigitalOcean Spaces (S3-compatible).
// Generated invoices and uploaded payment receipts live here.
type SpacesClient struct {
	s3Client *s3.S3
	bucket   string
	region   string
	endpoint string
	cdnURL   string
}

// SpacesConfig holds configuration for Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	// Create AWS session with DigitalOcean Spaces endpoint
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		region:   config.Region,
		endpoint: config.Endpoint,
		cdnURL:   config.CDNURL,
	}, nil
}

// UploadFile uploads a file to Spaces. Invoices and receipts are financial
// documents, so objects are private; serve them through DownloadFile.
func (s *SpacesClient) UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        aws.ReadSeekCloser(data),
		ACL:         aws.String("private"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key), nil
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, key), nil
}

// UploadBytes uploads bytes to Spaces
func (s *SpacesClient) UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return s.UploadFile(ctx, key, bytes.NewReader(data), contentType)
}

// DownloadFile downloads a file from Spaces
func (s *SpacesClient) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	return data, nil
}

// DeleteFile removes an object from Spaces
func (s *SpacesClient) DeleteFile(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks whether an object is present in the bucket
func (s *SpacesClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}
