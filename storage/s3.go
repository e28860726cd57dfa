package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/privibase/relay/interfaces"
)

// S3Backend persists the registry snapshot as a single object in Amazon S3
// or a compatible service.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	key         string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates an S3 snapshot backend. If accessKey and secretKey
// are empty the default credential chain is used, which also covers public
// buckets for reads.
func NewS3Backend(bucketName, key, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, key, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		key:         key,
		log:         log,
		locationURI: uri,
	}, nil
}

// Load retrieves the snapshot object. Returns ErrSnapshotNotFound when the
// object does not exist.
func (b *S3Backend) Load(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, interfaces.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot object body: %w", err)
	}

	b.log.Debug("Loaded snapshot from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.key),
		slog.Int("size", len(data)))

	return data, nil
}

// Store overwrites the snapshot object with the given content.
func (b *S3Backend) Store(ctx context.Context, data []byte) error {
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot object: %w", err)
	}

	b.log.Debug("Stored snapshot in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.key),
		slog.Int("size", len(data)))

	return nil
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}
