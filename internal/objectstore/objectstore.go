// Package objectstore issues time-limited signed grants against an
// S3-compatible bucket. It never reads or writes objects itself.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageContentType is the only content type accepted for visit photos.
const ImageContentType = "image/jpeg"

// ErrNotConfigured is returned by a Presigner built without a bucket.
var ErrNotConfigured = errors.New("object store not configured")

// Config describes the bucket and how to reach it.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// Grant is a signed URL the client can use without further credentials.
type Grant struct {
	URL       string
	Method    string
	Key       string
	ExpiresAt time.Time
}

// Presigner signs GET and PUT requests for single objects.
type Presigner struct {
	client  *s3.PresignClient
	bucket  string
	timeout time.Duration
	now     func() time.Time
}

// New builds a Presigner. An empty bucket yields a Presigner whose grants
// fail with ErrNotConfigured, so the rest of the API still works locally.
func New(cfg Config) (*Presigner, error) {
	p := &Presigner{bucket: strings.TrimSpace(cfg.Bucket), timeout: cfg.Timeout, now: time.Now}
	if p.bucket == "" {
		return p, nil
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("object store bucket %q needs an access key id and secret", p.bucket)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("object store bucket %q needs a region", p.bucket)
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.PathStyle,
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		// S3-compatible services (MinIO, R2) generally want path-style addressing.
		opts.UsePathStyle = true
	}

	p.client = s3.NewPresignClient(s3.New(opts))
	return p, nil
}

// Configured reports whether grants can be issued.
func (p *Presigner) Configured() bool {
	return p != nil && p.client != nil
}

// PresignGet returns a read grant for key valid for ttl. The object's
// existence is not checked.
func (p *Presigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (Grant, error) {
	if !p.Configured() {
		return Grant{}, ErrNotConfigured
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	issued := p.now()
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return Grant{}, fmt.Errorf("presign get %s: %w", key, err)
	}
	return Grant{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: issued.Add(ttl)}, nil
}

// PresignPut returns an upload grant for key, bound to contentType.
func (p *Presigner) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (Grant, error) {
	if !p.Configured() {
		return Grant{}, ErrNotConfigured
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	issued := p.now()
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return Grant{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return Grant{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: issued.Add(ttl)}, nil
}

func (p *Presigner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// VisitImageKey is the object key for a photo uploaded at t:
// {owner}/{placeId}/{unixMillis}.jpg. Per-user, per-place and time ordered.
func VisitImageKey(owner, placeID string, t time.Time) string {
	return owner + "/" + placeID + "/" + strconv.FormatInt(t.UnixMilli(), 10) + ".jpg"
}
