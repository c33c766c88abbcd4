// Package archive copies training logs to S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mmynk/rowflow/internal/config"
	"github.com/mmynk/rowflow/internal/csvlog"
	"github.com/mmynk/rowflow/internal/models"
)

// objectPutter is the subset of *s3.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads partitions as CSV objects.
type Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// New builds an Archiver from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing for MinIO and friends.
func New(ctx context.Context, cfg config.S3Config) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newWithClient(client objectPutter, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for storageID's log archived on day.
func (a *Archiver) Key(storageID string, day time.Time) string {
	return path.Join(a.prefix, storageID, ExportFilename(day))
}

// Upload writes entries as one CSV object and returns its key.
func (a *Archiver) Upload(ctx context.Context, storageID string, entries []models.Entry, day time.Time) (string, error) {
	var buf bytes.Buffer
	if err := csvlog.WriteLog(&buf, entries); err != nil {
		return "", fmt.Errorf("failed to encode log: %w", err)
	}

	key := a.Key(storageID, day)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Bucket returns the target bucket.
func (a *Archiver) Bucket() string {
	return a.bucket
}

// ExportFilename is the download name of a log exported on day.
func ExportFilename(day time.Time) string {
	return "rowing_log_" + day.Format(models.DateLayout) + ".csv"
}
