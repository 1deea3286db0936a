package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"time"
)

// S3Config configures the S3-backed ObjectStore.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	CDNDomain       string // preferred for PublicURL when set
}

// S3Store is an ObjectStore backed by Amazon S3 (or an S3-compatible
// endpoint). Uploads go through s3manager (multipart-aware); reads and
// presigns use the plain s3 client.
type S3Store struct {
	s3       *s3.S3
	uploader *s3manager.Uploader
	config   S3Config
}

// NewS3Store builds an S3Store, resolving credentials from config if
// present, else the default provider chain.
func NewS3Store(config S3Config) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket name must be configured")
	}
	cfg := &aws.Config{}
	if config.Region != "" {
		cfg = cfg.WithRegion(config.Region)
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create AWS session: %w", err)
	}
	return &S3Store{
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		config:   config,
	}, nil
}

// Put uploads content to key, returning a storage:// URL. Uses
// s3manager.Uploader, which transparently switches to multipart for large
// payloads.
func (s *S3Store) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3manager.UploadInput{
		Body:                 bytes.NewReader(content),
		Bucket:               aws.String(s.config.Bucket),
		ContentType:          aws.String(contentType),
		Key:                  aws.String(key),
		ServerSideEncryption: aws.String("AES256"),
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("objectstore: put blob %s: %w", key, err)
	}
	return fmt.Sprintf("storage://%s/%s", s.config.Bucket, key), nil
}

// Get fetches the full content of key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: get blob %s: %w", key, err)
	}
	defer out.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("objectstore: read blob %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// Presign returns a time-limited signed GET URL for key.
func (s *S3Store) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.s3.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("objectstore: presign blob %s: %w", key, err)
	}
	return url, nil
}

// PublicURL prefers a CDN domain when configured, else a durable direct
// S3 URL, per spec.md §6's persistence layout rule.
func (s *S3Store) PublicURL(key string) string {
	if s.config.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.config.CDNDomain, key)
	}
	region := s.config.Region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, region, key)
}

// HeadExists reports whether key already exists in the bucket, used by
// the S3-upload step handler's collision-handling rule.
func (s *S3Store) HeadExists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("objectstore: head %s: %w", key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	return containsAny(err.Error(), "NotFound", "404", "NoSuchKey")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}
