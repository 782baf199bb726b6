package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"pix-reconciler/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the subset of the S3 API used by the archive.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive implements ports.ReportArchive on any S3-compatible bucket.
type S3Archive struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// Option customises an S3Archive.
type Option func(*S3Archive)

// WithNow overrides the time source used to build object keys.
func WithNow(now func() time.Time) Option {
	return func(a *S3Archive) { a.now = now }
}

// New wraps an existing S3 client.
func New(client ObjectPutter, bucket, prefix string, log zerolog.Logger, opts ...Option) *S3Archive {
	a := &S3Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds the S3 client from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive.bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			// MinIO, Backblaze B2 and friends
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("Report archive initialised")
	return New(client, cfg.Bucket, cfg.Prefix, log), nil
}

// Key returns the object key for a local file: <prefix>/<YYYY>/<MM>/<file>.
func (a *S3Archive) Key(localPath string) string {
	now := a.now().UTC()
	parts := []string{now.Format("2006"), now.Format("01"), filepath.Base(localPath)}
	if a.prefix != "" {
		parts = append([]string{a.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Upload copies the file at localPath to the bucket and returns its key.
func (a *S3Archive) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := a.Key(localPath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(contentType(localPath)),
		ContentLength: aws.Int64(info.Size()),
		Metadata: map[string]string{
			"upload-source": "pix-reconciler",
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading s3://%s/%s: %w", a.bucket, key, err)
	}

	a.log.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int64("size", info.Size()).
		Msg("Report archived")
	return key, nil
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
