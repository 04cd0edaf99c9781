package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSignedURLTTL = 3600 * time.Second

// s3API is the narrow slice of the S3 client used here, an interface
// for testability.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, input *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds S3-compatible storage configuration. Endpoint is empty
// for AWS itself and set for MinIO, DigitalOcean Spaces and the like.
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Endpoint  string
}

// Configured reports whether the config is complete enough to build a
// client.
func (c Config) Configured() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Client wraps an S3-compatible object store. A nil *Client is the
// "storage not configured" state; callers must check before use.
type Client struct {
	api       s3API
	presigner presignAPI
	bucket    string
	log       zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if !cfg.Configured() {
		return nil
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	raw := s3.New(opts)

	return &Client{
		api:       raw,
		presigner: s3.NewPresignClient(raw),
		bucket:    cfg.Bucket,
		log:       logger,
	}
}

// NewWithAPI wires explicit API implementations, used by tests.
func NewWithAPI(api s3API, presigner presignAPI, bucket string, logger zerolog.Logger) *Client {
	return &Client{api: api, presigner: presigner, bucket: bucket, log: logger}
}

func (c *Client) Bucket() string {
	return c.bucket
}

// TestConnection verifies the credentials can reach the bucket and
// translates the common S3 failures into operator-readable messages.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return fmt.Errorf("bucket %q does not exist", c.bucket)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("access denied to bucket %q, check the key permissions", c.bucket)
		case "InvalidAccessKeyId":
			return errors.New("the access key id is not recognized")
		case "SignatureDoesNotMatch":
			return errors.New("the secret key does not match the access key")
		}
	}
	return fmt.Errorf("storage connection failed: %w", err)
}

// UploadOptions controls where an uploaded object lands and how its
// key is derived.
type UploadOptions struct {
	// Folder is the key prefix, "uploads" when empty.
	Folder string
	// PreserveName keeps the sanitized original name as the key
	// basename. Without it the key is synthesized from a timestamp, a
	// random suffix and the sanitized extension.
	PreserveName bool
}

func objectKey(fileName string, opts UploadOptions) string {
	folder := "uploads"
	if opts.Folder != "" {
		folder = SanitizeFileName(opts.Folder)
	}

	name := SanitizeFileName(fileName)
	if !opts.PreserveName {
		ext := path.Ext(name)
		name = fmt.Sprintf("%s-%s%s", time.Now().UTC().Format("20060102150405"), uuid.New().String()[:8], ext)
	}
	return folder + "/" + name
}

// UploadPublicFile stores a file intended to be served through the
// local /files proxy. It returns the proxy path and the object key.
func (c *Client) UploadPublicFile(ctx context.Context, fileName string, body io.Reader, contentType string, opts UploadOptions) (string, string, error) {
	key, err := c.upload(ctx, objectKey(fileName, opts), body, contentType, nil)
	if err != nil {
		return "", "", err
	}
	return "/files/" + key, key, nil
}

// UploadPrivateFile stores a file reachable only through signed URLs
// and returns the object key.
func (c *Client) UploadPrivateFile(ctx context.Context, fileName string, body io.Reader, contentType string, opts UploadOptions) (string, error) {
	return c.upload(ctx, objectKey(fileName, opts), body, contentType, nil)
}

func (c *Client) upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// UploadFile streams a local file to the given object key. The backup
// engine uses this for dump archives under the backups/ prefix.
func (c *Client) UploadFile(ctx context.Context, localPath, key, contentType string, metadata map[string]string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		Body:     file,
		Metadata: metadata,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// SignedURL generates a presigned GET URL for a private object. A zero
// or negative ttl falls back to one hour.
func (c *Client) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// GetFile reads an object fully into memory. Any retrieval failure is
// logged and reported as a nil slice; the proxy handler turns that into
// a 404.
func (c *Client) GetFile(ctx context.Context, key string) []byte {
	stream, err := c.GetFileStream(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("object retrieval failed")
		return nil
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("object read failed")
		return nil
	}
	return data
}

// GetFileStream opens an object for streaming. The caller closes it.
func (c *Client) GetFileStream(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return out.Body, nil
}

// DeleteFile removes an object. Deleting an absent key is not an error
// on S3, which keeps retention cleanup idempotent.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
